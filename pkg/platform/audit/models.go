package audit

import (
	"context"
	"time"

	id "carebridge/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance, such as
	// approving or rejecting a clinician. These require guaranteed persistence.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring:
	// decisions attempted without permission.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be suppressed or aggregated.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category    EventCategory
	Timestamp   time.Time
	TherapistID id.TherapistID
	Action      string
	Stage       string
	Decision    string
	Reason      string
	RequestID   string
	// ActorID is the administrator who performed the action.
	ActorID   string
	ClientIP  string
	UserAgent string
	// Occurrences counts identical events folded into this one. Zero means one.
	Occurrences int
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

type AuditEvent string

const (
	EventVerificationDecided AuditEvent = "verification_decided"
	EventDecisionRefused     AuditEvent = "verification_decision_refused"
	EventDecisionForbidden   AuditEvent = "verification_decision_forbidden"
	EventServiceUnreachable  AuditEvent = "verification_service_unreachable"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventVerificationDecided: CategoryCompliance,
	EventDecisionForbidden:   CategorySecurity,
	EventDecisionRefused:     CategoryOperations,
	EventServiceUnreachable:  CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
