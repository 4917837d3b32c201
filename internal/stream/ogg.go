package stream

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/jonas747/ogg"

	"github.com/halcyonix/chorale/internal/audio"
	"github.com/halcyonix/chorale/internal/opus"
)

// oggHeaderPackets is the number of leading metadata packets in an ogg/opus
// stream (OpusHead and OpusTags).
const oggHeaderPackets = 2

// OpenFunc opens (or reopens) the byte stream that backs a source.
type OpenFunc func() (io.ReadCloser, error)

// OggOpusSource yields the opus packets of an ogg container one per Read,
// bypassing the encode step. It does not seek; tracks that need seeking go
// through FFmpegSource instead.
type OggOpusSource struct {
	mu     sync.Mutex
	open   OpenFunc
	rc     io.ReadCloser
	dec    *ogg.PacketDecoder
	skip   int
	frames int64
	closed bool
}

// NewOggOpusSource builds a source whose stream is opened lazily and can be
// reopened by Recreate.
func NewOggOpusSource(open OpenFunc) *OggOpusSource {
	return &OggOpusSource{open: open, skip: oggHeaderPackets}
}

// OggOpusFromReader wraps an already-open stream. Recreate is unsupported,
// so tracks backed by it cannot be replayed.
func OggOpusFromReader(rc io.ReadCloser) *OggOpusSource {
	used := false
	return &OggOpusSource{
		open: func() (io.ReadCloser, error) {
			if used {
				return nil, audio.ErrNotSupported
			}
			used = true
			return rc, nil
		},
		skip: oggHeaderPackets,
	}
}

func (s *OggOpusSource) Read() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, nil
	}
	if s.dec == nil {
		rc, err := s.open()
		if err != nil {
			return nil, fmt.Errorf("stream: open ogg: %w", err)
		}
		s.rc = rc
		s.dec = ogg.NewPacketDecoder(ogg.NewDecoder(rc))
	}

	for {
		packet, _, err := s.dec.Decode()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, nil
			}
			return nil, fmt.Errorf("stream: decode ogg: %w", err)
		}
		if s.skip > 0 {
			s.skip--
			continue
		}
		s.frames++
		return packet, nil
	}
}

func (s *OggOpusSource) IsOpus() bool   { return true }
func (s *OggOpusSource) Seekable() bool { return false }

func (s *OggOpusSource) Seek(float64) error   { return audio.ErrIllegalSeek }
func (s *OggOpusSource) Rewind(float64) error { return audio.ErrIllegalSeek }

func (s *OggOpusSource) StreamDuration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return float64(s.frames) * opus.FrameDuration.Seconds()
}

func (s *OggOpusSource) SetVolume(float64) error            { return audio.ErrNotSupported }
func (s *OggOpusSource) SetEqualizer(audio.Equalizer) error { return audio.ErrNotSupported }

func (s *OggOpusSource) Recreate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rc != nil {
		_ = s.rc.Close()
	}
	rc, err := s.open()
	if err != nil {
		return fmt.Errorf("stream: reopen ogg: %w", err)
	}
	s.rc = rc
	s.dec = ogg.NewPacketDecoder(ogg.NewDecoder(rc))
	s.skip = oggHeaderPackets
	s.frames = 0
	s.closed = false
	return nil
}

func (s *OggOpusSource) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.rc == nil {
		return nil
	}
	err := s.rc.Close()
	s.rc = nil
	s.dec = nil
	return err
}
