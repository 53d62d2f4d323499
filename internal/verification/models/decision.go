package models

import (
	"fmt"
	"strings"
	"time"

	dErrors "carebridge/pkg/domain-errors"
)

// ApplyDecision moves the record past stage. The caller must already have
// established that stage is current and the record is not terminal.
//
// Approving the license starts the background check. Any rejection makes the
// account rejected; a background rejection also marks the check failed.
func (r *Record) ApplyDecision(stage Stage, decision Decision, notes string, now time.Time) error {
	if r.AccountStatus.IsTerminal() {
		return TerminalRecord(r.AccountStatus)
	}
	approved := decision == DecisionApproved
	switch stage {
	case StageLicense:
		if approved {
			r.LicenseVerified = true
			r.BackgroundCheckStatus = BackgroundInProgress
		} else {
			r.AccountStatus = AccountRejected
		}
	case StageBackgroundCheck:
		if approved {
			r.BackgroundCheckStatus = BackgroundCompleted
		} else {
			r.BackgroundCheckStatus = BackgroundFailed
			r.AccountStatus = AccountRejected
		}
	case StageFinal:
		if approved {
			r.AccountStatus = AccountActive
		} else {
			r.AccountStatus = AccountRejected
		}
	default:
		return dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("stage %q accepts no decision", stage))
	}
	r.AppendNote(stage, decision, notes, now)
	return nil
}

// AppendNote adds one line to the notes trail. Existing text is never rewritten.
func (r *Record) AppendNote(stage Stage, decision Decision, notes string, now time.Time) {
	line := fmt.Sprintf("%s %s %s", now.UTC().Format(time.RFC3339), stage, decision)
	if n := strings.TrimSpace(notes); n != "" {
		line += ": " + n
	}
	if r.VerificationNotes == "" {
		r.VerificationNotes = line
		return
	}
	r.VerificationNotes += "\n" + line
}

// CheckInvariants verifies the cross-field rules every reachable record obeys:
// an active account has a verified license and a completed background check,
// and no background check runs before the license is verified.
func (r *Record) CheckInvariants() error {
	if !r.BackgroundCheckStatus.IsValid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "unknown background check status")
	}
	if !r.AccountStatus.IsValid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "unknown account status")
	}
	if r.AccountStatus == AccountActive && (!r.LicenseVerified || r.BackgroundCheckStatus != BackgroundCompleted) {
		return dErrors.New(dErrors.CodeInvariantViolation, "active account requires verified license and completed background check")
	}
	if !r.LicenseVerified && r.BackgroundCheckStatus != BackgroundNotStarted {
		return dErrors.New(dErrors.CodeInvariantViolation, "background check cannot start before license verification")
	}
	return nil
}

// CheckTransition verifies that after differs from before only in ways a
// decision may cause. Once rejected, only the notes may grow, and notes are
// append-only throughout.
func CheckTransition(before, after *Record) error {
	if before.ID != after.ID || !before.CreatedAt.Equal(after.CreatedAt) {
		return dErrors.New(dErrors.CodeInvariantViolation, "record identity changed")
	}
	if !strings.HasPrefix(after.VerificationNotes, before.VerificationNotes) {
		return dErrors.New(dErrors.CodeInvariantViolation, "verification notes are append-only")
	}
	if before.AccountStatus == AccountRejected {
		frozen := *after
		frozen.VerificationNotes = before.VerificationNotes
		frozen.CreatedAt = before.CreatedAt
		if frozen != *before {
			return dErrors.New(dErrors.CodeInvariantViolation, "rejected record is terminal")
		}
	}
	return after.CheckInvariants()
}
