package audio

import (
	"context"
	"sync"
)

// BufferedSource wraps a Source with a prefetch goroutine and a bounded
// frame queue, smoothing out sources whose reads have jittery latency
// (network streams, subprocess pipes). It implements AsyncSource so the
// player waits on the queue instead of parking a worker lane in the
// underlying read.
//
// Buffering trades seekability away: positions resolved by the inner
// source no longer match what the listener has heard.
type BufferedSource struct {
	inner    Source
	capacity int

	mu      sync.Mutex
	frames  chan []byte
	stop    chan struct{}
	readErr error
	started bool
	drained float64
}

// NewBufferedSource wraps src with a queue of capacity frames. Capacity is
// playback latency: 50 frames is one second of audio.
func NewBufferedSource(src Source, capacity int) *BufferedSource {
	if capacity <= 0 {
		capacity = 50
	}
	return &BufferedSource{inner: src, capacity: capacity}
}

func (s *BufferedSource) startLocked() {
	if s.started {
		return
	}
	s.started = true
	s.frames = make(chan []byte, s.capacity)
	s.stop = make(chan struct{})
	go s.fill(s.frames, s.stop)
}

// fill drains the inner source into the queue. The queue being closed is
// the end-of-stream marker; a read failure is stored for the consumer.
func (s *BufferedSource) fill(frames chan<- []byte, stop <-chan struct{}) {
	defer close(frames)
	for {
		frame, err := s.inner.Read()
		if err != nil {
			s.mu.Lock()
			s.readErr = err
			s.mu.Unlock()
			return
		}
		if len(frame) == 0 {
			return
		}
		select {
		case frames <- frame:
		case <-stop:
			return
		}
	}
}

func (s *BufferedSource) ReadContext(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	s.startLocked()
	frames := s.frames
	s.mu.Unlock()

	select {
	case frame, ok := <-frames:
		if !ok {
			s.mu.Lock()
			defer s.mu.Unlock()
			return nil, s.readErr
		}
		s.mu.Lock()
		s.drained++
		s.mu.Unlock()
		return frame, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *BufferedSource) Read() ([]byte, error) {
	return s.ReadContext(context.Background())
}

func (s *BufferedSource) IsOpus() bool   { return s.inner.IsOpus() }
func (s *BufferedSource) Seekable() bool { return false }

func (s *BufferedSource) Seek(float64) error   { return ErrIllegalSeek }
func (s *BufferedSource) Rewind(float64) error { return ErrIllegalSeek }

// StreamDuration counts frames handed to the consumer, not frames read
// from the inner source, so prefetch depth never inflates the position.
func (s *BufferedSource) StreamDuration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drained * 0.02
}

func (s *BufferedSource) SetVolume(volume float64) error  { return s.inner.SetVolume(volume) }
func (s *BufferedSource) SetEqualizer(eq Equalizer) error { return s.inner.SetEqualizer(eq) }

func (s *BufferedSource) stopFillLocked() {
	if !s.started {
		return
	}
	close(s.stop)
	s.started = false
}

func (s *BufferedSource) Recreate() error {
	s.mu.Lock()
	s.stopFillLocked()
	s.readErr = nil
	s.drained = 0
	s.mu.Unlock()
	return s.inner.Recreate()
}

func (s *BufferedSource) Cleanup() error {
	s.mu.Lock()
	s.stopFillLocked()
	s.mu.Unlock()
	return s.inner.Cleanup()
}
