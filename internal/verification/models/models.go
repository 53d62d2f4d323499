// Package models defines the therapist verification record and the closed
// enumerations the workflow is computed from.
package models

import (
	"time"

	id "carebridge/pkg/domain"
)

// BackgroundCheckStatus is the outcome of the background check stage.
type BackgroundCheckStatus string

const (
	BackgroundNotStarted BackgroundCheckStatus = "not_started"
	BackgroundInProgress BackgroundCheckStatus = "in_progress"
	BackgroundCompleted  BackgroundCheckStatus = "completed"
	BackgroundFailed     BackgroundCheckStatus = "failed"
)

func (s BackgroundCheckStatus) IsValid() bool {
	switch s {
	case BackgroundNotStarted, BackgroundInProgress, BackgroundCompleted, BackgroundFailed:
		return true
	}
	return false
}

// AccountStatus answers whether the therapist may see clients.
type AccountStatus string

const (
	AccountOnboarding AccountStatus = "onboarding"
	AccountActive     AccountStatus = "active"
	AccountRejected   AccountStatus = "rejected"
	// AccountSuspended is set out of band. No decision moves a record into or out of it.
	AccountSuspended AccountStatus = "suspended"
)

func (s AccountStatus) IsValid() bool {
	switch s {
	case AccountOnboarding, AccountActive, AccountRejected, AccountSuspended:
		return true
	}
	return false
}

// IsTerminal reports whether no further pipeline decision may be applied.
func (s AccountStatus) IsTerminal() bool {
	return s == AccountActive || s == AccountRejected || s == AccountSuspended
}

// AccountStatuses lists every account status in display order.
var AccountStatuses = []AccountStatus{AccountOnboarding, AccountActive, AccountRejected, AccountSuspended}

// Record is the canonical verification record for one therapist. The
// verification service owns it; clients replace it whole and never patch it.
type Record struct {
	ID                    id.TherapistID
	FirstName             string
	LastName              string
	Email                 string
	LicenseNumber         string
	LicenseState          string
	CreatedAt             time.Time
	LicenseVerified       bool
	BackgroundCheckStatus BackgroundCheckStatus
	AccountStatus         AccountStatus
	VerificationNotes     string
}

// NewRecord returns a freshly registered record: license unverified, background
// check not started, account onboarding.
func NewRecord(therapistID id.TherapistID, firstName, lastName, email, licenseNumber, licenseState string, createdAt time.Time) *Record {
	return &Record{
		ID:                    therapistID,
		FirstName:             firstName,
		LastName:              lastName,
		Email:                 email,
		LicenseNumber:         licenseNumber,
		LicenseState:          licenseState,
		CreatedAt:             createdAt,
		BackgroundCheckStatus: BackgroundNotStarted,
		AccountStatus:         AccountOnboarding,
	}
}

// Clone returns an independent copy.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// FullName is used by list views.
func (r *Record) FullName() string {
	switch {
	case r.FirstName == "":
		return r.LastName
	case r.LastName == "":
		return r.FirstName
	}
	return r.FirstName + " " + r.LastName
}
