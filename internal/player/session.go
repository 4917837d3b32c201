package player

import (
	"context"
	"sync"

	"github.com/halcyonix/chorale/internal/audio"
	"github.com/halcyonix/chorale/internal/opus"
	"github.com/halcyonix/chorale/internal/playlist"
	"github.com/halcyonix/chorale/internal/rtp"
	"github.com/halcyonix/chorale/internal/voice"
)

type stopReason int

const (
	// reasonEnd covers natural stream exhaustion and tick failures; the
	// player advances the playlist cursor itself.
	reasonEnd stopReason = iota
	// reasonStop is an explicit stop; playback does not advance.
	reasonStop
	// reasonSwitch means a control operation already repositioned the
	// cursor; the session's target track plays next.
	reasonSwitch
)

// session is one playback of one source. The pacing goroutine owns the RTP
// counters and the source reference for the session's whole life; the
// control domain only touches the signals and the reason fields.
type session struct {
	ctx    context.Context
	cancel context.CancelFunc

	track  *playlist.Track
	source audio.Source

	enc       opus.Encoder
	pkt       *rtp.Packetizer
	crypto    voice.CryptoParams
	hasCrypto bool

	sequence  uint16
	timestamp uint32

	resumed *signal
	paused  *signal

	mu           sync.Mutex
	silence      bool
	reason       stopReason
	next         *playlist.Track
	recreateNext bool

	doneCh chan struct{}
}

func newSession(track *playlist.Track, enc opus.Encoder, params voice.CryptoParams, hasCrypto bool) *session {
	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{
		ctx:       ctx,
		cancel:    cancel,
		track:     track,
		source:    track.Source,
		enc:       enc,
		crypto:    params,
		hasCrypto: hasCrypto,
		resumed:   newSignal(true),
		paused:    newSignal(false),
		doneCh:    make(chan struct{}),
	}
	if hasCrypto {
		sess.pkt = rtp.NewPacketizer(params.SecretKey, params.Mode, enc)
	}
	return sess
}

// setReason records why the session is ending. First caller wins so a
// control operation's switch target is never clobbered by the loop's own
// teardown.
func (s *session) setReason(reason stopReason, next *playlist.Track, recreate bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reason != reasonEnd {
		return
	}
	s.reason = reason
	s.next = next
	s.recreateNext = recreate
}

func (s *session) stopReason() (stopReason, *playlist.Track, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason, s.next, s.recreateNext
}

func (s *session) setSilence(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.silence = on
}

func (s *session) playSilence() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.silence
}
