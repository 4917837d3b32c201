// Package playlist holds the ordered track sequence and cursor the player
// consumes.
package playlist

import (
	"errors"
	"sync"

	"github.com/halcyonix/chorale/internal/audio"
)

var (
	ErrTrackNotFound = errors.New("playlist: track not found")
	ErrNoMoreTracks  = errors.New("playlist: no more tracks")
)

// Track binds an audio source to display metadata. Identity is pointer
// identity: two tracks with identical fields are still distinct entries.
type Track struct {
	Source    audio.Source
	Name      string
	Artist    string
	URL       string
	StreamURL string
	Thumbnail string

	// Length is the playable length in seconds, zero for live streams.
	Length int
	// Start is the second within the underlying stream this track begins
	// at, non-zero for chapter-split tracks.
	Start  int
	IsLive bool

	// Collection is the title of the album or playlist the track was
	// queued from, empty for standalone adds.
	Collection string

	// RequestedBy is the user id that queued the track.
	RequestedBy string
}

// Playlist is an ordered sequence of tracks plus a cursor. All mutation is
// serialized by one mutex; whenever the sequence is non-empty the cursor
// satisfies 0 <= pos < len. The cursor is clamped at the ends, never
// wrapped.
type Playlist struct {
	mu     sync.Mutex
	tracks []*Track
	pos    int
}

func New() *Playlist {
	return &Playlist{}
}

// Add appends a track.
func (p *Playlist) Add(t *Track) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tracks = append(p.tracks, t)
}

// JumpTo repositions the cursor and returns the track at pos.
func (p *Playlist) JumpTo(pos int) (*Track, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pos < 0 || pos >= len(p.tracks) {
		return nil, ErrTrackNotFound
	}
	p.pos = pos
	return p.tracks[pos], nil
}

// Next advances the cursor by one and returns that track. At the last
// position it returns ErrNoMoreTracks without moving the cursor.
func (p *Playlist) Next() (*Track, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pos+1 >= len(p.tracks) {
		return nil, ErrNoMoreTracks
	}
	p.pos++
	return p.tracks[p.pos], nil
}

// Previous retreats the cursor by one and returns that track. At the first
// position it returns ErrNoMoreTracks without moving the cursor.
func (p *Playlist) Previous() (*Track, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pos-1 < 0 || len(p.tracks) == 0 {
		return nil, ErrNoMoreTracks
	}
	p.pos--
	return p.tracks[p.pos], nil
}

// Current returns the track under the cursor, or nil when empty.
func (p *Playlist) Current() *Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.tracks) == 0 {
		return nil
	}
	return p.tracks[p.pos]
}

// Remove deletes a track by identity. Remaining entries are renumbered
// contiguously; the cursor keeps pointing at the same remaining track where
// possible. Removing the track under the cursor leaves the cursor clamped in
// range; advancing playback is the caller's job.
func (p *Playlist) Remove(t *Track) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, existing := range p.tracks {
		if existing == t {
			p.removeAtLocked(i)
			return nil
		}
	}
	return ErrTrackNotFound
}

// RemoveAt deletes the track at pos.
func (p *Playlist) RemoveAt(pos int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pos < 0 || pos >= len(p.tracks) {
		return ErrTrackNotFound
	}
	p.removeAtLocked(pos)
	return nil
}

func (p *Playlist) removeAtLocked(i int) {
	p.tracks = append(p.tracks[:i], p.tracks[i+1:]...)
	if i < p.pos {
		p.pos--
	}
	if p.pos >= len(p.tracks) && p.pos > 0 {
		p.pos = len(p.tracks) - 1
	}
	if p.pos < 0 {
		p.pos = 0
	}
}

// Clear drops every track and resets the cursor to zero.
func (p *Playlist) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tracks = nil
	p.pos = 0
}

// Tracks returns a snapshot copy of the sequence.
func (p *Playlist) Tracks() []*Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Track, len(p.tracks))
	copy(out, p.tracks)
	return out
}

// Pos returns the cursor position.
func (p *Playlist) Pos() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pos
}

func (p *Playlist) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tracks)
}
