// Package executor submits stage decisions on behalf of an administrator.
//
// The Executor owns the admin-side copy of every therapist record, the
// per-therapist notes buffer and the per-therapist single-flight guard.
// Records are only ever replaced whole with what the verification service
// returns; nothing is patched optimistically.
package executor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"carebridge/internal/verification/metrics"
	"carebridge/internal/verification/models"
	"carebridge/internal/verification/workflow"
	id "carebridge/pkg/domain"
	dErrors "carebridge/pkg/domain-errors"
	audit "carebridge/pkg/platform/audit"
)

// ServiceClient is the verification service as the executor sees it.
type ServiceClient interface {
	ListTherapists(ctx context.Context) ([]*models.Record, error)
	UpdateStage(ctx context.Context, therapistID id.TherapistID, stage models.Stage, decision models.Decision, notes string) (*models.Record, error)
}

// AuditTracker receives operational events about failed submissions.
type AuditTracker interface {
	Track(ctx context.Context, event audit.Event)
}

type Executor struct {
	client  ServiceClient
	tracker AuditTracker
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer

	mu       sync.Mutex
	records  map[id.TherapistID]*models.Record
	order    []id.TherapistID
	inFlight map[id.TherapistID]struct{}
	notes    map[id.TherapistID]string
	// seq increases on every decision; stamps hold the seq of each record's
	// last decision so a refresh that started earlier cannot overwrite it.
	seq    uint64
	stamps map[id.TherapistID]uint64

	roster singleflight.Group
}

type Option func(*Executor)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) {
		e.metrics = m
	}
}

func WithAuditTracker(t AuditTracker) Option {
	return func(e *Executor) {
		e.tracker = t
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Executor) {
		e.tracer = tp.Tracer("carebridge/verification/executor")
	}
}

// New creates an Executor with an empty roster.
func New(client ServiceClient, opts ...Option) (*Executor, error) {
	if client == nil {
		return nil, errors.New("service client is required")
	}
	e := &Executor{
		client:   client,
		logger:   slog.New(slog.DiscardHandler),
		tracer:   otel.Tracer("carebridge/verification/executor"),
		records:  make(map[id.TherapistID]*models.Record),
		inFlight: make(map[id.TherapistID]struct{}),
		notes:    make(map[id.TherapistID]string),
		stamps:   make(map[id.TherapistID]uint64),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Refresh reloads the roster. Concurrent callers share one ListTherapists call;
// a caller whose ctx ends stops waiting without failing the others, and the
// shared call is bounded by the client's timeout. Records with a decision in
// flight, or decided after the refresh began, keep their newer local copy.
func (e *Executor) Refresh(ctx context.Context) ([]*models.Record, error) {
	shared := context.WithoutCancel(ctx)
	ch := e.roster.DoChan("roster", func() (any, error) {
		e.mu.Lock()
		startSeq := e.seq
		e.mu.Unlock()

		records, err := e.client.ListTherapists(shared)
		if err != nil {
			return nil, err
		}
		e.replaceRoster(records, startSeq)
		return nil, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			e.logger.WarnContext(ctx, "roster refresh failed", "error", res.Err)
			return nil, res.Err
		}
	}
	return e.Roster(), nil
}

func (e *Executor) replaceRoster(records []*models.Record, startSeq uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := make(map[id.TherapistID]*models.Record, len(records))
	order := make([]id.TherapistID, 0, len(records))
	for _, r := range records {
		if _, dup := next[r.ID]; dup {
			continue
		}
		next[r.ID] = r.Clone()
		order = append(order, r.ID)
	}
	for therapistID, local := range e.records {
		_, busy := e.inFlight[therapistID]
		if !busy && e.stamps[therapistID] <= startSeq {
			continue
		}
		if _, ok := next[therapistID]; !ok {
			order = append(order, therapistID)
		}
		next[therapistID] = local
	}
	for therapistID := range e.notes {
		if _, ok := next[therapistID]; !ok {
			delete(e.notes, therapistID)
		}
	}
	e.records = next
	e.order = order
	e.metrics.SetRosterSize(len(order))
}

// Roster returns copies of every record in service order.
func (e *Executor) Roster() []*models.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*models.Record, 0, len(e.order))
	for _, therapistID := range e.order {
		out = append(out, e.records[therapistID].Clone())
	}
	return out
}

// Record returns a copy of one therapist's record.
func (e *Executor) Record(therapistID id.TherapistID) (*models.Record, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.records[therapistID]
	return r.Clone(), ok
}

// Summary projects the current record for one therapist.
func (e *Executor) Summary(therapistID id.TherapistID) (workflow.Summary, bool) {
	r, ok := e.Record(therapistID)
	if !ok {
		return workflow.Summary{}, false
	}
	return workflow.Summarize(r), true
}

// SetNotes replaces the buffered notes for a therapist.
func (e *Executor) SetNotes(therapistID id.TherapistID, notes string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if notes == "" {
		delete(e.notes, therapistID)
		return
	}
	e.notes[therapistID] = notes
}

func (e *Executor) Notes(therapistID id.TherapistID) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.notes[therapistID]
}

// InFlight reports whether a decision for therapistID is outstanding.
func (e *Executor) InFlight(therapistID id.TherapistID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.inFlight[therapistID]
	return ok
}

// SubmitDecision sends one decision for stage. Non-empty notes are sent as
// given; otherwise the buffered notes are sent.
//
// The stage must project as current; otherwise models.ErrStageNotActionable
// is returned without contacting the service. A second submission for the
// same therapist while one is outstanding fails with
// models.ErrDecisionInProgress. Once sent, the call is not cancelled by ctx;
// the client's timeout bounds it.
func (e *Executor) SubmitDecision(ctx context.Context, therapistID id.TherapistID, stage models.Stage, decision models.Decision, notes string) (*models.Record, error) {
	notes, err := e.acquire(therapistID, stage, notes)
	if err != nil {
		e.logger.InfoContext(ctx, "decision refused locally",
			"therapist_id", therapistID.String(),
			"stage", string(stage),
			"decision", string(decision),
			"error", err,
		)
		return nil, err
	}
	defer e.release(therapistID)

	ctx, span := e.tracer.Start(context.WithoutCancel(ctx), "executor.SubmitDecision",
		trace.WithAttributes(
			attribute.String("therapist.id", therapistID.String()),
			attribute.String("verification.stage", string(stage)),
			attribute.String("verification.decision", string(decision)),
		))
	defer span.End()

	start := time.Now()
	updated, err := e.client.UpdateStage(ctx, therapistID, stage, decision, notes)
	e.metrics.ObserveSubmission(string(stage), time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.reportFailure(ctx, therapistID, stage, decision, err)
		return nil, err
	}

	e.mu.Lock()
	e.seq++
	e.stamps[therapistID] = e.seq
	if _, known := e.records[therapistID]; !known {
		e.order = append(e.order, therapistID)
	}
	e.records[therapistID] = updated.Clone()
	delete(e.notes, therapistID)
	e.mu.Unlock()

	e.logger.InfoContext(ctx, "decision applied",
		"therapist_id", therapistID.String(),
		"stage", string(stage),
		"decision", string(decision),
		"account_status", string(updated.AccountStatus),
	)
	return updated, nil
}

// acquire checks the guard and the local precondition under one lock and,
// when both pass, marks the therapist in flight.
func (e *Executor) acquire(therapistID id.TherapistID, stage models.Stage, notes string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, busy := e.inFlight[therapistID]; busy {
		e.metrics.IncrementRejection("in_progress")
		return "", models.DecisionInProgress()
	}
	r, ok := e.records[therapistID]
	if !ok {
		return "", dErrors.New(dErrors.CodeNotFound, "therapist is not in the roster; refresh and retry")
	}
	if err := workflow.Actionable(r, stage); err != nil {
		e.metrics.IncrementRejection("not_actionable")
		return "", err
	}
	e.inFlight[therapistID] = struct{}{}
	if notes == "" {
		notes = e.notes[therapistID]
	}
	return notes, nil
}

func (e *Executor) release(therapistID id.TherapistID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inFlight, therapistID)
}

func (e *Executor) reportFailure(ctx context.Context, therapistID id.TherapistID, stage models.Stage, decision models.Decision, err error) {
	var (
		reason string
		action audit.AuditEvent
	)
	switch {
	case errors.Is(err, models.ErrTransport):
		reason, action = "transport", audit.EventServiceUnreachable
	case errors.Is(err, models.ErrUnauthorized):
		reason, action = "unauthorized", audit.EventDecisionForbidden
	case errors.Is(err, models.ErrStageNotActionable), errors.Is(err, models.ErrDecisionInProgress):
		// The service saw a newer record than ours.
		reason, action = "stale", audit.EventDecisionRefused
	default:
		reason, action = "rejected", audit.EventDecisionRefused
	}
	e.metrics.IncrementRejection(reason)
	e.logger.WarnContext(ctx, "decision failed",
		"therapist_id", therapistID.String(),
		"stage", string(stage),
		"decision", string(decision),
		"reason", reason,
		"retryable", models.IsRetryable(err),
		"error", err,
	)
	if e.tracker != nil {
		e.tracker.Track(ctx, audit.Event{
			TherapistID: therapistID,
			Action:      string(action),
			Stage:       string(stage),
			Decision:    string(decision),
			Reason:      reason,
		})
	}
}
