package audit

import (
	"encoding/json"
	"fmt"
	"time"

	id "carebridge/pkg/domain"
)

// payload is the JSON form published to the audit topic.
type payload struct {
	Category    string `json:"category"`
	Timestamp   string `json:"timestamp"`
	TherapistID string `json:"therapist_id,omitempty"`
	Action      string `json:"action"`
	Stage       string `json:"stage,omitempty"`
	Decision    string `json:"decision,omitempty"`
	Reason      string `json:"reason,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
	ActorID     string `json:"actor_id,omitempty"`
	ClientIP    string `json:"client_ip,omitempty"`
	UserAgent   string `json:"user_agent,omitempty"`
	Occurrences int    `json:"occurrences,omitempty"`
}

// Encode serializes an event for a broker or outbox row. The category is
// always derived from the action.
func Encode(e Event) ([]byte, error) {
	p := payload{
		Category:    string(AuditEvent(e.Action).Category()),
		Timestamp:   e.Timestamp.UTC().Format(time.RFC3339Nano),
		Action:      e.Action,
		Stage:       e.Stage,
		Decision:    e.Decision,
		Reason:      e.Reason,
		RequestID:   e.RequestID,
		ActorID:     e.ActorID,
		ClientIP:    e.ClientIP,
		UserAgent:   e.UserAgent,
		Occurrences: e.Occurrences,
	}
	if !e.TherapistID.IsNil() {
		p.TherapistID = e.TherapistID.String()
	}
	return json.Marshal(p)
}

// Decode is the inverse of Encode.
func Decode(raw []byte) (Event, error) {
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Event{}, fmt.Errorf("decode audit payload: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, p.Timestamp)
	if err != nil {
		return Event{}, fmt.Errorf("decode audit timestamp: %w", err)
	}
	e := Event{
		Category:    EventCategory(p.Category),
		Timestamp:   ts,
		Action:      p.Action,
		Stage:       p.Stage,
		Decision:    p.Decision,
		Reason:      p.Reason,
		RequestID:   p.RequestID,
		ActorID:     p.ActorID,
		ClientIP:    p.ClientIP,
		UserAgent:   p.UserAgent,
		Occurrences: p.Occurrences,
	}
	if p.TherapistID != "" {
		e.TherapistID, err = id.ParseTherapistID(p.TherapistID)
		if err != nil {
			return Event{}, err
		}
	}
	return e, nil
}
