package models

import (
	"time"

	id "carebridge/pkg/domain"
	dErrors "carebridge/pkg/domain-errors"
)

// TherapistResponse is the wire form of a Record returned by the verification service.
type TherapistResponse struct {
	ID                    string    `json:"id"`
	FirstName             string    `json:"first_name"`
	LastName              string    `json:"last_name"`
	Email                 string    `json:"email"`
	CreatedAt             time.Time `json:"created_at"`
	LicenseNumber         string    `json:"license_number"`
	LicenseState          string    `json:"license_state"`
	LicenseVerified       bool      `json:"license_verified"`
	BackgroundCheckStatus string    `json:"background_check_status"`
	AccountStatus         string    `json:"account_status"`
	VerificationNotes     string    `json:"verification_notes"`
}

// DecisionRequest is the body of POST /api/therapists/{id}/verification.
type DecisionRequest struct {
	Stage  string `json:"stage"`
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

// Parse validates the request into a domain stage and decision.
func (r *DecisionRequest) Parse() (Stage, Decision, error) {
	if r.Stage == "" {
		return "", "", dErrors.New(dErrors.CodeValidation, "stage is required")
	}
	if r.Status == "" {
		return "", "", dErrors.New(dErrors.CodeValidation, "status is required")
	}
	stage, err := ParseWireStage(r.Stage)
	if err != nil {
		return "", "", err
	}
	switch Decision(r.Status) {
	case DecisionApproved, DecisionRejected:
		return stage, Decision(r.Status), nil
	}
	return "", "", dErrors.New(dErrors.CodeBadRequest, "status must be approved or rejected")
}

// NewDecisionRequest builds the wire body for a decision.
func NewDecisionRequest(stage Stage, decision Decision, notes string) DecisionRequest {
	return DecisionRequest{Stage: stage.WireName(), Status: string(decision), Notes: notes}
}

// ToResponse converts a Record to its wire form.
func ToResponse(r *Record) TherapistResponse {
	return TherapistResponse{
		ID:                    r.ID.String(),
		FirstName:             r.FirstName,
		LastName:              r.LastName,
		Email:                 r.Email,
		CreatedAt:             r.CreatedAt.UTC(),
		LicenseNumber:         r.LicenseNumber,
		LicenseState:          r.LicenseState,
		LicenseVerified:       r.LicenseVerified,
		BackgroundCheckStatus: string(r.BackgroundCheckStatus),
		AccountStatus:         string(r.AccountStatus),
		VerificationNotes:     r.VerificationNotes,
	}
}

// FromResponse converts wire data to a Record. Unknown enum values are
// rejected so the projection only ever sees the closed domain.
func FromResponse(resp TherapistResponse) (*Record, error) {
	therapistID, err := id.ParseTherapistID(resp.ID)
	if err != nil {
		return nil, err
	}
	bg := BackgroundCheckStatus(resp.BackgroundCheckStatus)
	if !bg.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown background_check_status "+resp.BackgroundCheckStatus)
	}
	account := AccountStatus(resp.AccountStatus)
	if !account.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown account_status "+resp.AccountStatus)
	}
	return &Record{
		ID:                    therapistID,
		FirstName:             resp.FirstName,
		LastName:              resp.LastName,
		Email:                 resp.Email,
		CreatedAt:             resp.CreatedAt,
		LicenseNumber:         resp.LicenseNumber,
		LicenseState:          resp.LicenseState,
		LicenseVerified:       resp.LicenseVerified,
		BackgroundCheckStatus: bg,
		AccountStatus:         account,
		VerificationNotes:     resp.VerificationNotes,
	}, nil
}
