// Package service applies administrator decisions to Canonical Records on
// the verification service side of the wire.
package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"carebridge/internal/verification/lock"
	"carebridge/internal/verification/metrics"
	"carebridge/internal/verification/models"
	"carebridge/internal/verification/store"
	"carebridge/internal/verification/workflow"
	id "carebridge/pkg/domain"
	dErrors "carebridge/pkg/domain-errors"
	audit "carebridge/pkg/platform/audit"
	"carebridge/pkg/platform/sentinel"
	"carebridge/pkg/requestcontext"
)

// Store persists records. Execute holds the record exclusively across
// validate and mutate.
type Store interface {
	Create(ctx context.Context, r *models.Record) error
	FindByID(ctx context.Context, therapistID id.TherapistID) (*models.Record, error)
	List(ctx context.Context, statuses ...models.AccountStatus) ([]*models.Record, error)
	Execute(ctx context.Context, therapistID id.TherapistID, validate store.ValidateFunc, mutate store.MutateFunc) (*models.Record, error)
}

// Locker serializes decisions per therapist across instances.
type Locker interface {
	Acquire(ctx context.Context, key string) (lock.Release, error)
}

// TxRunner scopes a decision and its compliance audit to one transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// AuditPublisher records compliance events. A returned error aborts the decision.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// OpsTracker records best-effort operational events.
type OpsTracker interface {
	Track(ctx context.Context, event audit.Event)
}

type noTx struct{}

func (noTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type Service struct {
	store      Store
	locker     Locker
	tx         TxRunner
	compliance AuditPublisher
	ops        OpsTracker
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

type Option func(*Service)

func WithLocker(l Locker) Option {
	return func(s *Service) {
		s.locker = l
	}
}

// WithTxRunner makes the decision and its compliance audit commit together.
// Without it a store that can run units of work itself is used.
func WithTxRunner(tx TxRunner) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.compliance = p
	}
}

func WithOpsTracker(t OpsTracker) Option {
	return func(s *Service) {
		s.ops = t
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	s := &Service{
		store:  store,
		locker: lock.NewInProcess(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		if runner, ok := store.(TxRunner); ok {
			s.tx = runner
		} else {
			s.tx = noTx{}
		}
	}
	if s.compliance == nil {
		return nil, errors.New("audit publisher is required")
	}
	return s, nil
}

// List returns records newest first. status is "all", "" or an account status.
func (s *Service) List(ctx context.Context, status string) ([]*models.Record, error) {
	var statuses []models.AccountStatus
	switch status {
	case "", "all":
	default:
		st := models.AccountStatus(status)
		if !st.IsValid() {
			return nil, dErrors.New(dErrors.CodeBadRequest, "status must be all, onboarding, active, rejected or suspended")
		}
		statuses = append(statuses, st)
	}
	records, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list therapists")
	}
	return records, nil
}

// Get returns one record with its workflow summary.
func (s *Service) Get(ctx context.Context, therapistID id.TherapistID) (*models.Record, workflow.Summary, error) {
	r, err := s.store.FindByID(ctx, therapistID)
	if err != nil {
		return nil, workflow.Summary{}, wrapStoreErr(err, "failed to load therapist")
	}
	return r, workflow.Summarize(r), nil
}

// RegisterInput is a therapist's self-registration.
type RegisterInput struct {
	FirstName     string
	LastName      string
	Email         string
	LicenseNumber string
	LicenseState  string
}

func (in *RegisterInput) normalize() error {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.LicenseNumber = strings.TrimSpace(in.LicenseNumber)
	in.LicenseState = strings.ToUpper(strings.TrimSpace(in.LicenseState))

	switch {
	case in.FirstName == "" || in.LastName == "":
		return dErrors.New(dErrors.CodeValidation, "first_name and last_name are required")
	case in.LicenseNumber == "":
		return dErrors.New(dErrors.CodeValidation, "license_number is required")
	case len(in.LicenseState) != 2:
		return dErrors.New(dErrors.CodeValidation, "license_state must be a two-letter state code")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return dErrors.New(dErrors.CodeValidation, "email is invalid")
	}
	return nil
}

// Register creates a fresh record: license unverified, background check not
// started, account onboarding.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.Record, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	r := models.NewRecord(id.NewTherapistID(), in.FirstName, in.LastName, in.Email,
		in.LicenseNumber, in.LicenseState, requestcontext.Now(ctx).UTC())
	if err := s.store.Create(ctx, r); err != nil {
		return nil, wrapStoreErr(err, "failed to register therapist")
	}
	s.logger.InfoContext(ctx, "therapist registered",
		"therapist_id", r.ID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return r, nil
}

// Decide applies one decision for stage. The target stage must project as
// current and the record must not be terminal. Concurrent decisions for the
// same therapist are refused with models.ErrDecisionInProgress.
func (s *Service) Decide(ctx context.Context, therapistID id.TherapistID, stage models.Stage, decision models.Decision, notes string) (*models.Record, error) {
	start := time.Now()
	if !stage.IsDecidable() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "stage must be license, background_check or final")
	}

	release, err := s.locker.Acquire(ctx, therapistID.String())
	if err != nil {
		if errors.Is(err, sentinel.ErrLocked) {
			s.refused(ctx, therapistID, stage, decision, "in_progress")
			return nil, models.DecisionInProgress()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "decision lock unavailable")
	}
	defer release()

	now := requestcontext.Now(ctx).UTC()
	var updated *models.Record
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		r, err := s.store.Execute(ctx, therapistID,
			func(r *models.Record) error {
				return workflow.Actionable(r, stage)
			},
			func(r *models.Record) error {
				return r.ApplyDecision(stage, decision, notes, now)
			},
		)
		if err != nil {
			return err
		}
		updated = r
		return s.compliance.Emit(ctx, audit.Event{
			Timestamp:   now,
			TherapistID: therapistID,
			Action:      string(audit.EventVerificationDecided),
			Stage:       string(stage),
			Decision:    string(decision),
			Reason:      string(r.AccountStatus),
			RequestID:   requestcontext.RequestID(ctx),
			ActorID:     requestcontext.ActorID(ctx),
			ClientIP:    requestcontext.ClientIP(ctx),
			UserAgent:   requestcontext.UserAgent(ctx),
		})
	})
	if err != nil {
		if errors.Is(err, models.ErrStageNotActionable) {
			s.refused(ctx, therapistID, stage, decision, "not_actionable")
			return nil, err
		}
		s.metrics.IncrementDecision(string(stage), string(decision), "error")
		s.logger.ErrorContext(ctx, "decision failed",
			"therapist_id", therapistID.String(),
			"stage", string(stage),
			"decision", string(decision),
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return nil, wrapStoreErr(err, "failed to apply decision")
	}

	s.metrics.IncrementDecision(string(stage), string(decision), "applied")
	s.metrics.ObserveDecision(string(stage), start)
	s.logger.InfoContext(ctx, "decision applied",
		"therapist_id", therapistID.String(),
		"stage", string(stage),
		"decision", string(decision),
		"account_status", string(updated.AccountStatus),
		"actor_id", requestcontext.ActorID(ctx),
		"request_id", requestcontext.RequestID(ctx),
	)
	return updated, nil
}

func (s *Service) refused(ctx context.Context, therapistID id.TherapistID, stage models.Stage, decision models.Decision, reason string) {
	s.metrics.IncrementDecision(string(stage), string(decision), reason)
	s.logger.InfoContext(ctx, "decision refused",
		"therapist_id", therapistID.String(),
		"stage", string(stage),
		"reason", reason,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.ops != nil {
		s.ops.Track(ctx, audit.Event{
			TherapistID: therapistID,
			Action:      string(audit.EventDecisionRefused),
			Stage:       string(stage),
			Decision:    string(decision),
			Reason:      reason,
			RequestID:   requestcontext.RequestID(ctx),
			ActorID:     requestcontext.ActorID(ctx),
		})
	}
}

// wrapStoreErr translates store sentinels into domain errors. Domain errors
// pass through unchanged.
func wrapStoreErr(err error, msg string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "therapist not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "therapist already exists")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
