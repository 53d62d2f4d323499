package store

import (
	"context"
	"sync"

	"carebridge/internal/verification/models"
	id "carebridge/pkg/domain"
	"carebridge/pkg/platform/sentinel"
)

// InMemory keeps records in a map guarded by one RWMutex.
type InMemory struct {
	mu      sync.RWMutex
	records map[id.TherapistID]*models.Record
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[id.TherapistID]*models.Record)}
}

func (s *InMemory) Create(_ context.Context, r *models.Record) error {
	if err := r.CheckInvariants(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[r.ID]; exists {
		return sentinel.ErrConflict
	}
	s.records[r.ID] = r.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, therapistID id.TherapistID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[therapistID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return r.Clone(), nil
}

// List returns records newest first. With no statuses every record is returned.
func (s *InMemory) List(_ context.Context, statuses ...models.AccountStatus) ([]*models.Record, error) {
	want := statusSet(statuses)
	s.mu.RLock()
	out := make([]*models.Record, 0, len(s.records))
	for _, r := range s.records {
		if want != nil && !want[r.AccountStatus] {
			continue
		}
		out = append(out, r.Clone())
	}
	s.mu.RUnlock()
	sortNewestFirst(out)
	return out, nil
}

// RunInTx stages every Execute made with the returned context and applies
// them only when fn returns nil. A staged record whose stored version changed
// in the meantime fails the commit with sentinel.ErrConflict. Nested calls
// join the outer unit of work.
func (s *InMemory) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := stagedFrom(ctx); ok {
		return fn(ctx)
	}
	tx := &stagedTx{writes: make(map[id.TherapistID]stagedWrite)}
	if err := fn(context.WithValue(ctx, stagedKey{}, tx)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for therapistID, w := range tx.writes {
		if s.records[therapistID] != w.base {
			return sentinel.ErrConflict
		}
	}
	for therapistID, w := range tx.writes {
		s.records[therapistID] = w.next
	}
	return nil
}

type stagedKey struct{}

type stagedWrite struct {
	base *models.Record
	next *models.Record
}

type stagedTx struct {
	mu     sync.Mutex
	writes map[id.TherapistID]stagedWrite
}

func stagedFrom(ctx context.Context) (*stagedTx, bool) {
	tx, ok := ctx.Value(stagedKey{}).(*stagedTx)
	return tx, ok
}

// Execute runs validate then mutate under the write lock. The stored record
// is only replaced when both succeed and the result passes CheckTransition.
// Inside RunInTx the result is staged until the unit of work commits.
func (s *InMemory) Execute(ctx context.Context, therapistID id.TherapistID, validate ValidateFunc, mutate MutateFunc) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[therapistID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	base := current
	tx, staged := stagedFrom(ctx)
	if staged {
		tx.mu.Lock()
		defer tx.mu.Unlock()
		if w, ok := tx.writes[therapistID]; ok {
			base, current = w.base, w.next
		}
	}

	if err := validate(current.Clone()); err != nil {
		return nil, err
	}
	next := current.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}
	if err := models.CheckTransition(current, next); err != nil {
		return nil, err
	}
	if staged {
		tx.writes[therapistID] = stagedWrite{base: base, next: next}
		return next.Clone(), nil
	}
	s.records[therapistID] = next
	return next.Clone(), nil
}
