// Package lock provides the per-therapist decision lock used by the
// verification service. A held lock refuses a second holder instead of
// queueing it, so concurrent decisions for one therapist fail fast.
package lock

import (
	"context"
	"sync"

	"carebridge/pkg/platform/sentinel"
)

// Release gives the lock back. It is safe to call more than once.
type Release func()

// InProcess serves a single service instance.
type InProcess struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewInProcess() *InProcess {
	return &InProcess{held: make(map[string]struct{})}
}

// Acquire returns sentinel.ErrLocked when key is already held.
func (l *InProcess) Acquire(_ context.Context, key string) (Release, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return nil, sentinel.ErrLocked
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, nil
}
