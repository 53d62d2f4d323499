package ops

import (
	"sync"
	"time"
)

// Suppressor folds repeated identical events. Within a window the first
// occurrence of a key passes; later duplicates are counted and only released
// as one aggregate once threshold duplicates have accumulated. Duplicates
// still below the threshold when the window closes are dropped as noise.
type Suppressor struct {
	mu        sync.Mutex
	window    time.Duration
	threshold int
	now       func() time.Time
	bursts    map[string]*burst
}

type burst struct {
	started    time.Time
	suppressed int
}

const pruneAbove = 1024

// NewSuppressor creates a suppressor. threshold below 1 is treated as 1, which disables suppression.
func NewSuppressor(window time.Duration, threshold int) *Suppressor {
	if threshold < 1 {
		threshold = 1
	}
	return &Suppressor{
		window:    window,
		threshold: threshold,
		now:       time.Now,
		bursts:    make(map[string]*burst),
	}
}

// Observe records one occurrence of key. When emit is true the caller should
// publish one event standing for occurrences identical ones.
func (s *Suppressor) Observe(key string) (emit bool, occurrences int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	b, ok := s.bursts[key]
	if !ok || now.Sub(b.started) >= s.window {
		if len(s.bursts) > pruneAbove {
			s.prune(now)
		}
		s.bursts[key] = &burst{started: now}
		return true, 1
	}
	if s.threshold == 1 {
		return true, 1
	}
	b.suppressed++
	if b.suppressed >= s.threshold {
		n := b.suppressed
		b.suppressed = 0
		return true, n
	}
	return false, 0
}

func (s *Suppressor) prune(now time.Time) {
	for k, b := range s.bursts {
		if now.Sub(b.started) >= s.window {
			delete(s.bursts, k)
		}
	}
}
