package bridge

import (
	"context"
	"sync"
)

// slot is a mutex with strict FIFO handoff. Callers that arrive while the
// slot is held are granted it in arrival order, which keeps bridge exchanges
// unambiguous: the next request frame is only written once the previous
// exchange has fully resolved.
type slot struct {
	mu      sync.Mutex
	busy    bool
	waiters []chan struct{}
}

func (s *slot) acquire(ctx context.Context) error {
	s.mu.Lock()
	if !s.busy {
		s.busy = true
		s.mu.Unlock()
		return nil
	}

	ready := make(chan struct{})
	s.waiters = append(s.waiters, ready)
	s.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		s.mu.Lock()
		for i, w := range s.waiters {
			if w == ready {
				s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
				s.mu.Unlock()
				return ctx.Err()
			}
		}
		s.mu.Unlock()
		// A release already signaled us; the slot is ours, hand it on.
		s.release()
		return ctx.Err()
	}
}

func (s *slot) release() {
	s.mu.Lock()
	if len(s.waiters) == 0 {
		s.busy = false
		s.mu.Unlock()
		return
	}
	next := s.waiters[0]
	s.waiters = s.waiters[1:]
	s.mu.Unlock()
	close(next)
}
