// Package player owns the 20 ms pacing loop: it pulls frames from the
// current audio source, runs them through the packetizer, writes them to
// the voice transport and self-corrects timing drift. Control operations
// run in the caller's domain and talk to the loop only through signals,
// worker futures and the event channel.
package player

import (
	"errors"
	"sync"
	"time"

	"github.com/halcyonix/chorale/internal/audio"
	"github.com/halcyonix/chorale/internal/opus"
	"github.com/halcyonix/chorale/internal/playlist"
	"github.com/halcyonix/chorale/internal/voice"
	"github.com/halcyonix/chorale/internal/worker"
)

var (
	ErrNotConnected   = errors.New("player: voice transport not connected")
	ErrAlreadyPlaying = errors.New("player: already playing")
	ErrNotPlaying     = errors.New("player: not playing")
)

type Config struct {
	// FrameInterval is the pacing cadence. Zero means the 20 ms opus frame
	// duration; tests shorten it.
	FrameInterval time.Duration

	// DestroyOnDisconnect ends the session when the transport drops instead
	// of blocking until it reconnects.
	DestroyOnDisconnect bool

	// NewEncoder builds the per-session opus encoder used for PCM sources.
	// Nil means the libopus-backed default.
	NewEncoder func() (opus.Encoder, error)
}

type Player struct {
	cfg       Config
	transport voice.Transport
	pool      *worker.Pool
	pl        *playlist.Playlist

	mu     sync.Mutex
	status Status
	sess   *session
	after  AfterFunc

	events chan Event
}

// New builds a player bound to one voice transport. The worker pool is
// shared by the caller; the player never creates an implicit global one.
func New(cfg Config, transport voice.Transport, pool *worker.Pool) *Player {
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = opus.FrameDuration
	}
	if cfg.NewEncoder == nil {
		cfg.NewEncoder = func() (opus.Encoder, error) { return opus.NewEncoder() }
	}
	return &Player{
		cfg:       cfg,
		transport: transport,
		pool:      pool,
		pl:        playlist.New(),
		events:    make(chan Event, 16),
	}
}

// Play enqueues track (when non-nil) and starts playback of the track under
// the cursor if the player is idle. When a session is already running the
// track stays queued and ErrAlreadyPlaying tells the caller so.
func (p *Player) Play(track *playlist.Track) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if track != nil {
		p.pl.Add(track)
	}
	if p.sess != nil {
		return ErrAlreadyPlaying
	}
	if !p.transport.Ready() {
		return ErrNotConnected
	}
	cur := p.pl.Current()
	if cur == nil {
		return playlist.ErrNoMoreTracks
	}
	return p.startSessionLocked(cur, false)
}

// startSessionLocked spins up the pacing goroutine for track. Caller holds
// p.mu.
func (p *Player) startSessionLocked(track *playlist.Track, recreate bool) error {
	if recreate {
		if err := track.Source.Recreate(); err != nil {
			return err
		}
	}
	var enc opus.Encoder
	if !track.Source.IsOpus() {
		var err error
		if enc, err = p.cfg.NewEncoder(); err != nil {
			return err
		}
	}
	params, hasCrypto := p.transport.Crypto()
	sess := newSession(track, enc, params, hasCrypto)
	p.sess = sess
	p.status = StatusPlaying
	go p.run(sess)
	return nil
}

// Stop ends the current playback session. The bound source is cleaned up
// and the after callback fires with no next track.
func (p *Player) Stop() error {
	p.mu.Lock()
	sess := p.sess
	p.mu.Unlock()
	if sess == nil {
		return ErrNotPlaying
	}
	sess.setReason(reasonStop, nil, false)
	sess.cancel()
	<-sess.doneCh
	return nil
}

// Pause suspends the loop. With playSilence the loop keeps emitting silence
// frames every tick; otherwise it blocks. Pause returns only after the loop
// has acknowledged, guaranteeing no audio frame is delivered mid-transition.
func (p *Player) Pause(playSilence bool) error {
	p.mu.Lock()
	sess := p.sess
	if sess == nil || p.status != StatusPlaying {
		p.mu.Unlock()
		return ErrNotPlaying
	}
	p.status = StatusPaused
	p.mu.Unlock()

	sess.setSilence(playSilence)
	sess.resumed.Clear()
	select {
	case <-sess.paused.WaitCh():
	case <-sess.doneCh:
	}
	return nil
}

// Resume lifts a pause and clears any silence-playing state.
func (p *Player) Resume() error {
	p.mu.Lock()
	sess := p.sess
	if sess == nil || p.status != StatusPaused {
		p.mu.Unlock()
		return ErrNotPlaying
	}
	p.status = StatusPlaying
	p.mu.Unlock()

	sess.setSilence(false)
	sess.resumed.Set()
	return nil
}

// Seek jumps forward in the current source by seconds.
func (p *Player) Seek(seconds float64) error {
	return p.seekWith(func(src audio.Source) error { return src.Seek(seconds) })
}

// Rewind jumps backward in the current source by seconds.
func (p *Player) Rewind(seconds float64) error {
	return p.seekWith(func(src audio.Source) error { return src.Rewind(seconds) })
}

// seekWith pauses the loop, delegates to the source, and resumes. Resume is
// guaranteed on every exit path so a failed seek never leaves the player
// half-paused.
func (p *Player) seekWith(op func(audio.Source) error) error {
	p.mu.Lock()
	sess := p.sess
	p.mu.Unlock()
	if sess == nil {
		return ErrNotPlaying
	}
	if !sess.source.Seekable() {
		return audio.ErrIllegalSeek
	}

	wasPlaying := sess.resumed.IsSet()
	if wasPlaying {
		sess.resumed.Clear()
		select {
		case <-sess.paused.WaitCh():
		case <-sess.doneCh:
		}
		defer sess.resumed.Set()
	}
	return op(sess.source)
}

// NextTrack advances the playlist cursor and plays that track. At the end
// of the playlist it returns ErrNoMoreTracks without moving the cursor.
func (p *Player) NextTrack() (*playlist.Track, error) {
	return p.switchTrack(func() (*playlist.Track, error) { return p.pl.Next() }, false)
}

// PreviousTrack retreats the cursor and replays that track from the start.
func (p *Player) PreviousTrack() (*playlist.Track, error) {
	return p.switchTrack(func() (*playlist.Track, error) { return p.pl.Previous() }, true)
}

// JumpToPos repositions the cursor and plays the track at pos, restarting
// it from the beginning.
func (p *Player) JumpToPos(pos int) (*playlist.Track, error) {
	return p.switchTrack(func() (*playlist.Track, error) { return p.pl.JumpTo(pos) }, true)
}

func (p *Player) switchTrack(move func() (*playlist.Track, error), recreate bool) (*playlist.Track, error) {
	p.mu.Lock()
	if !p.transport.Ready() {
		p.mu.Unlock()
		return nil, ErrNotConnected
	}
	target, err := move()
	if err != nil {
		p.mu.Unlock()
		return nil, err
	}
	sess := p.sess
	if sess == nil {
		defer p.mu.Unlock()
		return target, p.startSessionLocked(target, recreate)
	}
	sess.setReason(reasonSwitch, target, recreate)
	p.mu.Unlock()

	sess.cancel()
	<-sess.doneCh
	return target, nil
}

// AddTrack appends a track to the playlist without starting playback.
func (p *Player) AddTrack(track *playlist.Track) {
	p.pl.Add(track)
}

// RemoveTrack removes a track by identity. Removing the currently playing
// track does not interrupt its session; advancing is the caller's call.
func (p *Player) RemoveTrack(track *playlist.Track) error {
	return p.pl.Remove(track)
}

// RemoveTrackAt removes the track at pos.
func (p *Player) RemoveTrackAt(pos int) error {
	return p.pl.RemoveAt(pos)
}

// RemoveAllTracks clears the playlist and resets the cursor.
func (p *Player) RemoveAllTracks() {
	p.pl.Clear()
}

// Tracks returns a snapshot of the playlist.
func (p *Player) Tracks() []*playlist.Track {
	return p.pl.Tracks()
}

// CurrentTrack returns the track under the playlist cursor.
func (p *Player) CurrentTrack() *playlist.Track {
	return p.pl.Current()
}

// TrackIndex returns the playlist cursor position.
func (p *Player) TrackIndex() int {
	return p.pl.Pos()
}

// RegisterAfterCallback sets the function invoked once per playback
// session, after the source is cleaned up.
func (p *Player) RegisterAfterCallback(fn AfterFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.after = fn
}

// Events exposes the loop's message channel: one EventTrackEnded per
// playback session.
func (p *Player) Events() <-chan Event {
	return p.events
}

func (p *Player) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Position reports elapsed seconds of the currently playing source.
func (p *Player) Position() float64 {
	p.mu.Lock()
	sess := p.sess
	p.mu.Unlock()
	if sess == nil {
		return 0
	}
	return sess.source.StreamDuration()
}
