package memory

import (
	"context"
	"sync"

	id "carebridge/pkg/domain"
	audit "carebridge/pkg/platform/audit"
)

// InMemoryStore keeps events per therapist. Used in tests and single-process development.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.TherapistID][]audit.Event
	order  []audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.TherapistID][]audit.Event)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[id.TherapistID][]audit.Event)
	s.order = nil
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.TherapistID] = append(s.events[event.TherapistID], event)
	s.order = append(s.order, event)
	return nil
}

func (s *InMemoryStore) ListByTherapist(_ context.Context, therapistID id.TherapistID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[therapistID]...), nil
}

// ListRecent returns up to limit events, oldest first.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := max(len(s.order)-limit, 0)
	return append([]audit.Event{}, s.order[start:]...), nil
}
