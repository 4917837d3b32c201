package stream

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/halcyonix/chorale/internal/audio"
	"github.com/halcyonix/chorale/internal/opus"
)

// DCA framing: each opus packet is preceded by its length as a
// little-endian uint16.

// DCASource yields the opus packets of a DCA stream one per Read.
type DCASource struct {
	mu     sync.Mutex
	open   OpenFunc
	rc     io.ReadCloser
	br     *bufio.Reader
	frames int64
	closed bool
}

func NewDCASource(open OpenFunc) *DCASource {
	return &DCASource{open: open}
}

func (s *DCASource) Read() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, nil
	}
	if s.br == nil {
		rc, err := s.open()
		if err != nil {
			return nil, fmt.Errorf("stream: open dca: %w", err)
		}
		s.rc = rc
		s.br = bufio.NewReaderSize(rc, 32*1024)
	}

	for {
		var hdr [2]byte
		if _, err := io.ReadFull(s.br, hdr[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, nil
			}
			return nil, fmt.Errorf("stream: read dca length: %w", err)
		}
		n := binary.LittleEndian.Uint16(hdr[:])
		if n == 0 {
			continue
		}
		packet := make([]byte, int(n))
		if _, err := io.ReadFull(s.br, packet); err != nil {
			return nil, fmt.Errorf("stream: read dca packet: %w", err)
		}
		s.frames++
		return packet, nil
	}
}

func (s *DCASource) IsOpus() bool   { return true }
func (s *DCASource) Seekable() bool { return false }

func (s *DCASource) Seek(float64) error   { return audio.ErrIllegalSeek }
func (s *DCASource) Rewind(float64) error { return audio.ErrIllegalSeek }

func (s *DCASource) StreamDuration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return float64(s.frames) * opus.FrameDuration.Seconds()
}

func (s *DCASource) SetVolume(float64) error            { return audio.ErrNotSupported }
func (s *DCASource) SetEqualizer(audio.Equalizer) error { return audio.ErrNotSupported }

func (s *DCASource) Recreate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rc != nil {
		_ = s.rc.Close()
	}
	rc, err := s.open()
	if err != nil {
		return fmt.Errorf("stream: reopen dca: %w", err)
	}
	s.rc = rc
	s.br = bufio.NewReaderSize(rc, 32*1024)
	s.frames = 0
	s.closed = false
	return nil
}

func (s *DCASource) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.rc == nil {
		return nil
	}
	err := s.rc.Close()
	s.rc = nil
	s.br = nil
	return err
}

// EncodePCMToDCA reads s16le 48 kHz stereo PCM from r, opus-encodes it and
// writes DCA-framed packets to w. Trailing partial frames are dropped.
func EncodePCMToDCA(r io.Reader, w io.Writer) error {
	enc, err := opus.NewEncoder()
	if err != nil {
		return err
	}

	br := bufio.NewReaderSize(r, 64*1024)
	frame := make([]byte, opus.FrameBytes)
	for {
		if _, err := io.ReadFull(br, frame); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil
			}
			return fmt.Errorf("stream: read pcm: %w", err)
		}
		packet, err := enc.Encode(frame)
		if err != nil {
			return fmt.Errorf("stream: opus encode: %w", err)
		}
		if len(packet) > 0xFFFF {
			return fmt.Errorf("stream: opus packet too large: %d", len(packet))
		}
		var hdr [2]byte
		binary.LittleEndian.PutUint16(hdr[:], uint16(len(packet)))
		if _, err := w.Write(hdr[:]); err != nil {
			return fmt.Errorf("stream: write dca length: %w", err)
		}
		if _, err := w.Write(packet); err != nil {
			return fmt.Errorf("stream: write dca packet: %w", err)
		}
	}
}
