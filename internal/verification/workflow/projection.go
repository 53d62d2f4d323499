// Package workflow derives the four-stage verification stepper from a record.
//
// Everything here is pure domain logic - no I/O, no hidden state. List views,
// detail views, the decision executor and the verification service all read
// stage status from Project and nowhere else.
package workflow

import "carebridge/internal/verification/models"

// Projection holds one status per stage, indexed like models.Stages.
type Projection [models.StageCount]models.StageStatus

// Project computes every stage's status. It is total: any record, including
// one that breaks the cross-field invariants, yields a projection.
func Project(r *models.Record) Projection {
	return Projection{
		registrationStatus(),
		licenseStatus(r),
		backgroundStatus(r),
		finalStatus(r),
	}
}

func registrationStatus() models.StageStatus {
	// The record exists, so registration happened.
	return models.StatusCompleted
}

func licenseStatus(r *models.Record) models.StageStatus {
	switch {
	case r.AccountStatus == models.AccountRejected && !r.LicenseVerified:
		return models.StatusFailed
	case r.LicenseVerified:
		return models.StatusCompleted
	default:
		return models.StatusCurrent
	}
}

func backgroundStatus(r *models.Record) models.StageStatus {
	switch {
	case !r.LicenseVerified:
		return models.StatusPending
	case r.BackgroundCheckStatus == models.BackgroundFailed:
		return models.StatusFailed
	case r.BackgroundCheckStatus == models.BackgroundCompleted:
		return models.StatusCompleted
	default:
		return models.StatusCurrent
	}
}

func finalStatus(r *models.Record) models.StageStatus {
	switch {
	case r.BackgroundCheckStatus != models.BackgroundCompleted:
		return models.StatusPending
	case r.AccountStatus == models.AccountRejected:
		return models.StatusFailed
	case r.AccountStatus == models.AccountActive:
		return models.StatusCompleted
	default:
		return models.StatusCurrent
	}
}

// Status returns the projected status of stage, or pending for an unknown stage.
func (p Projection) Status(stage models.Stage) models.StageStatus {
	i := stage.Index()
	if i < 0 {
		return models.StatusPending
	}
	return p[i]
}

// Current returns the first stage projected as current.
func (p Projection) Current() (models.Stage, bool) {
	for i, s := range p {
		if s == models.StatusCurrent {
			return models.Stages[i], true
		}
	}
	return "", false
}

// Failed reports whether any stage is failed.
func (p Projection) Failed() bool {
	for _, s := range p {
		if s == models.StatusFailed {
			return true
		}
	}
	return false
}

// Actionable reports whether a decision for stage may be submitted against r.
// The stage must be decidable and current, and the account must not be in a
// terminal state. A non-nil error wraps models.ErrStageNotActionable.
func Actionable(r *models.Record, stage models.Stage) error {
	if !stage.IsDecidable() {
		return models.StageNotActionable(stage, models.StatusCompleted)
	}
	if status := Project(r).Status(stage); status != models.StatusCurrent {
		return models.StageNotActionable(stage, status)
	}
	if r.AccountStatus.IsTerminal() {
		return models.TerminalRecord(r.AccountStatus)
	}
	return nil
}
