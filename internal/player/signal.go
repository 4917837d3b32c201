package player

import "sync"

// signal is a set/wait boolean flag, the only state shared between the
// control domain and a pacing goroutine besides worker futures.
type signal struct {
	mu  sync.Mutex
	set bool
	ch  chan struct{} // closed while set
}

func newSignal(set bool) *signal {
	s := &signal{set: set, ch: make(chan struct{})}
	if set {
		close(s.ch)
	}
	return s
}

func (s *signal) Set() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		s.set = true
		close(s.ch)
	}
}

func (s *signal) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set {
		s.set = false
		s.ch = make(chan struct{})
	}
}

func (s *signal) IsSet() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set
}

// WaitCh returns a channel closed once the signal is set.
func (s *signal) WaitCh() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch
}
