// Package logstore writes audit events to a structured logger. It is the
// audit sink when no broker is configured.
package logstore

import (
	"context"
	"fmt"
	"log/slog"

	audit "carebridge/pkg/platform/audit"
)

type Store struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Store {
	return &Store{logger: logger}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	attrs := []any{
		"category", string(event.Category),
		"action", event.Action,
		"request_id", event.RequestID,
	}
	if !event.TherapistID.IsNil() {
		attrs = append(attrs, "therapist_id", event.TherapistID.String())
	}
	if event.Stage != "" {
		attrs = append(attrs, "stage", event.Stage, "decision", event.Decision)
	}
	if event.Reason != "" {
		attrs = append(attrs, "reason", event.Reason)
	}
	if event.ActorID != "" {
		attrs = append(attrs, "actor_id", event.ActorID)
	}
	if event.Occurrences > 1 {
		attrs = append(attrs, "occurrences", event.Occurrences)
	}
	s.logger.InfoContext(ctx, "audit", attrs...)
	return nil
}

// Publish lets the outbox relay forward rows to the log when no broker is configured.
func (s *Store) Publish(ctx context.Context, _ []byte, _ string, value []byte) error {
	event, err := audit.Decode(value)
	if err != nil {
		return fmt.Errorf("relay audit row to log: %w", err)
	}
	return s.Append(ctx, event)
}
