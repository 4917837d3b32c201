package audio

import (
	"fmt"
	"io"
	"sync"

	"github.com/halcyonix/chorale/internal/opus"
)

// bytesPerSecond is the raw byte rate of s16le 48 kHz stereo PCM:
// 1000/20 frames per second times opus.FrameBytes.
const bytesPerSecond = 1000 / 20 * opus.FrameBytes

// PCMSource reads raw signed 16-bit 48 kHz stereo PCM from an io.ReadSeeker.
//
// Seek and rewind are plain byte-offset arithmetic on the underlying stream:
// target = current ± seconds * 1000/20 * frame size, clamped at zero. The
// elapsed duration is recomputed from the resulting offset with the inverse
// formula so it stays consistent with integer byte truncation.
type PCMSource struct {
	mu       sync.Mutex
	stream   io.ReadSeeker
	duration float64
	volume   float64
	eq       Equalizer
}

// NewPCMSource wraps stream, which must yield raw s16le 48 kHz stereo PCM.
func NewPCMSource(stream io.ReadSeeker) *PCMSource {
	return &PCMSource{stream: stream, volume: 1.0}
}

func (s *PCMSource) Read() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	frame := make([]byte, opus.FrameBytes)
	n, err := io.ReadFull(s.stream, frame)
	if err == io.EOF || err == io.ErrUnexpectedEOF || n != opus.FrameBytes {
		// Partial trailing frames are dropped, matching the 20 ms contract.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("audio: read pcm: %w", err)
	}
	s.duration += opus.FrameDuration.Seconds()

	if s.eq != nil {
		frame, err = s.eq.Convert(frame)
		if err != nil {
			return nil, fmt.Errorf("audio: equalize: %w", err)
		}
	}
	if s.volume != 1.0 {
		ApplyGain(frame, s.volume)
	}
	return frame, nil
}

func (s *PCMSource) IsOpus() bool   { return false }
func (s *PCMSource) Seekable() bool { return true }

func (s *PCMSource) Seek(seconds float64) error {
	return s.seekBy(seconds)
}

func (s *PCMSource) Rewind(seconds float64) error {
	return s.seekBy(-seconds)
}

func (s *PCMSource) seekBy(seconds float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.stream.Seek(0, io.SeekCurrent)
	if err != nil {
		return ErrIllegalSeek
	}
	target := cur + int64(seconds*bytesPerSecond)
	if target < 0 {
		target = 0
	}
	if _, err := s.stream.Seek(target, io.SeekStart); err != nil {
		return fmt.Errorf("audio: seek: %w", err)
	}
	s.duration = float64(target) / bytesPerSecond
	return nil
}

func (s *PCMSource) StreamDuration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

func (s *PCMSource) SetVolume(volume float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if volume < 0 {
		volume = 0
	}
	s.volume = volume
	return nil
}

func (s *PCMSource) SetEqualizer(eq Equalizer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eq = eq
	return nil
}

func (s *PCMSource) Recreate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.stream.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("audio: recreate: %w", err)
	}
	s.duration = 0
	return nil
}

func (s *PCMSource) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.stream.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// ApplyGain scales interleaved s16le samples in place, clamping at the
// int16 range. Volume 1.0 is unity, 2.0 is the cap.
func ApplyGain(pcm []byte, volume float64) {
	if volume > 2.0 {
		volume = 2.0
	}
	for i := 0; i+1 < len(pcm); i += 2 {
		sample := int16(uint16(pcm[i]) | uint16(pcm[i+1])<<8)
		scaled := int32(float64(sample) * volume)
		if scaled > 32767 {
			scaled = 32767
		} else if scaled < -32768 {
			scaled = -32768
		}
		pcm[i] = byte(uint16(scaled))
		pcm[i+1] = byte(uint16(scaled) >> 8)
	}
}
