// Package domain holds typed identifiers shared across packages.
package domain

import (
	"github.com/google/uuid"

	dErrors "carebridge/pkg/domain-errors"
)

// TherapistID identifies a therapist's canonical verification record.
type TherapistID uuid.UUID

// NewTherapistID returns a random TherapistID.
func NewTherapistID() TherapistID {
	return TherapistID(uuid.New())
}

// ParseTherapistID parses s at a trust boundary. Empty, malformed and nil
// UUIDs are rejected with CodeInvalidInput.
func ParseTherapistID(s string) (TherapistID, error) {
	u, err := parseUUID(s, "therapist ID")
	if err != nil {
		return TherapistID{}, err
	}
	return TherapistID(u), nil
}

// MustParseTherapistID is ParseTherapistID for fixtures; it panics on bad input.
func MustParseTherapistID(s string) TherapistID {
	id, err := ParseTherapistID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (id TherapistID) String() string {
	return uuid.UUID(id).String()
}

// IsNil reports whether id is the zero value.
func (id TherapistID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

func (id TherapistID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *TherapistID) UnmarshalText(b []byte) error {
	parsed, err := ParseTherapistID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	// uuid.Parse also accepts braced and urn forms; only the canonical form is allowed.
	if len(s) != 36 {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" must not be nil")
	}
	return u, nil
}
