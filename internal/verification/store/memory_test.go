package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"carebridge/internal/verification/models"
	"carebridge/internal/verification/workflow"
	id "carebridge/pkg/domain"
	dErrors "carebridge/pkg/domain-errors"
	"carebridge/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	now   time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) newRecord(createdAt time.Time) *models.Record {
	return models.NewRecord(id.NewTherapistID(), "Jo", "Lane", "jo@example.com", "PSY-7", "OR", createdAt)
}

func (s *InMemoryStoreSuite) decide(stage models.Stage, decision models.Decision) (ValidateFunc, MutateFunc) {
	return func(r *models.Record) error { return workflow.Actionable(r, stage) },
		func(r *models.Record) error { return r.ApplyDecision(stage, decision, "", s.now) }
}

func (s *InMemoryStoreSuite) TestCreateAndFind() {
	s.Run("round trips a record", func() {
		r := s.newRecord(s.now)
		s.Require().NoError(s.store.Create(s.ctx, r))

		found, err := s.store.FindByID(s.ctx, r.ID)
		s.Require().NoError(err)
		s.Equal(r, found)
		s.NotSame(r, found)
	})

	s.Run("duplicate id conflicts", func() {
		r := s.newRecord(s.now)
		s.Require().NoError(s.store.Create(s.ctx, r))
		s.ErrorIs(s.store.Create(s.ctx, r), sentinel.ErrConflict)
	})

	s.Run("record breaking an invariant is refused", func() {
		r := s.newRecord(s.now)
		r.AccountStatus = models.AccountActive
		err := s.store.Create(s.ctx, r)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("unknown id is not found", func() {
		_, err := s.store.FindByID(s.ctx, id.NewTherapistID())
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryStoreSuite) TestList() {
	older := s.newRecord(s.now.Add(-time.Hour))
	newer := s.newRecord(s.now)
	rejected := s.newRecord(s.now.Add(-2 * time.Hour))
	rejected.AccountStatus = models.AccountRejected
	for _, r := range []*models.Record{older, rejected, newer} {
		s.Require().NoError(s.store.Create(s.ctx, r))
	}

	s.Run("all records newest first", func() {
		list, err := s.store.List(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(list, 3)
		s.Equal([]id.TherapistID{newer.ID, older.ID, rejected.ID},
			[]id.TherapistID{list[0].ID, list[1].ID, list[2].ID})
	})

	s.Run("filtered by status", func() {
		list, err := s.store.List(s.ctx, models.AccountRejected)
		s.Require().NoError(err)
		s.Require().Len(list, 1)
		s.Equal(rejected.ID, list[0].ID)
	})
}

func (s *InMemoryStoreSuite) TestExecute() {
	s.Run("applies a valid decision", func() {
		r := s.newRecord(s.now)
		s.Require().NoError(s.store.Create(s.ctx, r))

		validate, mutate := s.decide(models.StageLicense, models.DecisionApproved)
		updated, err := s.store.Execute(s.ctx, r.ID, validate, mutate)
		s.Require().NoError(err)
		s.True(updated.LicenseVerified)
		s.Equal(models.BackgroundInProgress, updated.BackgroundCheckStatus)

		stored, _ := s.store.FindByID(s.ctx, r.ID)
		s.Equal(updated, stored)
	})

	s.Run("validation failure leaves the record untouched", func() {
		r := s.newRecord(s.now)
		s.Require().NoError(s.store.Create(s.ctx, r))

		validate, mutate := s.decide(models.StageFinal, models.DecisionApproved)
		_, err := s.store.Execute(s.ctx, r.ID, validate, mutate)
		s.ErrorIs(err, models.ErrStageNotActionable)

		stored, _ := s.store.FindByID(s.ctx, r.ID)
		s.Equal(r, stored)
	})

	s.Run("mutation breaking an invariant is not persisted", func() {
		r := s.newRecord(s.now)
		s.Require().NoError(s.store.Create(s.ctx, r))

		_, err := s.store.Execute(s.ctx, r.ID,
			func(*models.Record) error { return nil },
			func(r *models.Record) error {
				r.AccountStatus = models.AccountActive
				return nil
			})
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))

		stored, _ := s.store.FindByID(s.ctx, r.ID)
		s.Equal(models.AccountOnboarding, stored.AccountStatus)
	})

	s.Run("mutate error aborts", func() {
		r := s.newRecord(s.now)
		s.Require().NoError(s.store.Create(s.ctx, r))
		boom := errors.New("boom")

		_, err := s.store.Execute(s.ctx, r.ID,
			func(*models.Record) error { return nil },
			func(*models.Record) error { return boom })
		s.ErrorIs(err, boom)
	})

	s.Run("unknown id is not found", func() {
		validate, mutate := s.decide(models.StageLicense, models.DecisionApproved)
		_, err := s.store.Execute(s.ctx, id.NewTherapistID(), validate, mutate)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestConcurrentExecute verifies only one of many racing decisions on the same
// stage is applied.
func (s *InMemoryStoreSuite) TestConcurrentExecute() {
	r := s.newRecord(s.now)
	s.Require().NoError(s.store.Create(s.ctx, r))

	const goroutines = 20
	var (
		wg      sync.WaitGroup
		applied atomic.Int32
		refused atomic.Int32
	)
	validate, mutate := s.decide(models.StageLicense, models.DecisionApproved)
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Execute(s.ctx, r.ID, validate, mutate)
			switch {
			case err == nil:
				applied.Add(1)
			case errors.Is(err, models.ErrStageNotActionable):
				refused.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), applied.Load())
	s.Equal(int32(goroutines-1), refused.Load())
}

func (s *InMemoryStoreSuite) TestRunInTx() {
	s.Run("failed unit of work leaves the record untouched", func() {
		r := s.newRecord(s.now)
		s.Require().NoError(s.store.Create(s.ctx, r))
		validate, mutate := s.decide(models.StageLicense, models.DecisionApproved)

		boom := errors.New("audit down")
		err := s.store.RunInTx(s.ctx, func(ctx context.Context) error {
			staged, err := s.store.Execute(ctx, r.ID, validate, mutate)
			s.Require().NoError(err)
			s.True(staged.LicenseVerified)

			stored, err := s.store.FindByID(s.ctx, r.ID)
			s.Require().NoError(err)
			s.False(stored.LicenseVerified, "staged write must not be visible before commit")
			return boom
		})
		s.ErrorIs(err, boom)

		stored, err := s.store.FindByID(s.ctx, r.ID)
		s.Require().NoError(err)
		s.Equal(r, stored)
	})

	s.Run("successful unit of work commits staged writes", func() {
		r := s.newRecord(s.now)
		s.Require().NoError(s.store.Create(s.ctx, r))

		err := s.store.RunInTx(s.ctx, func(ctx context.Context) error {
			validate, mutate := s.decide(models.StageLicense, models.DecisionApproved)
			if _, err := s.store.Execute(ctx, r.ID, validate, mutate); err != nil {
				return err
			}
			validate, mutate = s.decide(models.StageBackgroundCheck, models.DecisionApproved)
			_, err := s.store.Execute(ctx, r.ID, validate, mutate)
			return err
		})
		s.Require().NoError(err)

		stored, err := s.store.FindByID(s.ctx, r.ID)
		s.Require().NoError(err)
		s.True(stored.LicenseVerified)
		s.Equal(models.BackgroundCompleted, stored.BackgroundCheckStatus)
	})

	s.Run("commit conflicts when the record changed underneath", func() {
		r := s.newRecord(s.now)
		s.Require().NoError(s.store.Create(s.ctx, r))
		validate, mutate := s.decide(models.StageLicense, models.DecisionApproved)

		err := s.store.RunInTx(s.ctx, func(ctx context.Context) error {
			if _, err := s.store.Execute(ctx, r.ID, validate, mutate); err != nil {
				return err
			}
			rejectValidate, rejectMutate := s.decide(models.StageLicense, models.DecisionRejected)
			_, err := s.store.Execute(s.ctx, r.ID, rejectValidate, rejectMutate)
			return err
		})
		s.ErrorIs(err, sentinel.ErrConflict)

		stored, err := s.store.FindByID(s.ctx, r.ID)
		s.Require().NoError(err)
		s.Equal(models.AccountRejected, stored.AccountStatus)
		s.False(stored.LicenseVerified)
	})
}
