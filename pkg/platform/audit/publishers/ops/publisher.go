// Package ops publishes operational audit events with fail-open semantics.
// Persistence failures are logged and counted, never returned; repeated
// identical events are folded by a Suppressor.
package ops

import (
	"context"
	"log/slog"
	"strings"
	"time"

	audit "carebridge/pkg/platform/audit"
)

type Publisher struct {
	store      audit.Store
	suppressor *Suppressor
	logger     *slog.Logger
	metrics    *Metrics
}

type Option func(*Publisher)

func WithSuppressor(s *Suppressor) Option {
	return func(p *Publisher) {
		p.suppressor = s
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Track records event unless it is suppressed as a duplicate.
func (p *Publisher) Track(ctx context.Context, event audit.Event) {
	if p.suppressor != nil {
		emit, n := p.suppressor.Observe(suppressionKey(event))
		if !emit {
			p.metrics.IncSuppressed()
			return
		}
		event.Occurrences = n
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.Category = audit.AuditEvent(event.Action).Category()

	if err := p.store.Append(ctx, event); err != nil {
		p.metrics.IncPersistFailures()
		p.logger.WarnContext(ctx, "ops audit dropped",
			"action", event.Action,
			"error", err,
		)
		return
	}
	p.metrics.IncTracked()
}

func suppressionKey(e audit.Event) string {
	return strings.Join([]string{e.Action, e.TherapistID.String(), e.Stage, e.Reason}, "|")
}
