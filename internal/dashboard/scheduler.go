package dashboard

import (
	"sync"
	"time"
)

// scheduler owns a periodic tick and its teardown. The facade holds one per
// cadence (data refresh, display clock) instead of ambient global timers.
type scheduler struct {
	interval time.Duration

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	running bool
}

func newScheduler(interval time.Duration) *scheduler {
	return &scheduler{interval: interval}
}

// Start runs fn every interval until Stop is called. Starting a running
// scheduler is a no-op.
func (s *scheduler) Start(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go func(stop, done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				fn()
			}
		}
	}(s.stop, s.done)
}

// Stop cancels the tick and waits for the loop to exit
func (s *scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop, done := s.stop, s.done
	s.mu.Unlock()

	close(stop)
	<-done
}
