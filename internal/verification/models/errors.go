package models

import (
	"errors"
	"fmt"

	dErrors "carebridge/pkg/domain-errors"
)

// Decision failures. Callers match them with errors.Is; each is wrapped in a
// domain error carrying the matching code for transport mapping.
var (
	// ErrStageNotActionable: the target stage is not current. Raised locally, never sent.
	ErrStageNotActionable = errors.New("stage not actionable")
	// ErrDecisionInProgress: another decision for the same therapist is outstanding.
	ErrDecisionInProgress = errors.New("decision in progress")
	// ErrTransport: the verification service could not be reached or failed. Retryable.
	ErrTransport = errors.New("verification service unavailable")
	// ErrUnauthorized: the caller may not decide. Not retried.
	ErrUnauthorized = errors.New("not authorized to submit decisions")
)

func StageNotActionable(stage Stage, status StageStatus) error {
	return dErrors.Wrap(ErrStageNotActionable, dErrors.CodeInvalidState,
		fmt.Sprintf("%s is %s, only the current stage accepts a decision", stage.Label(), status))
}

func TerminalRecord(status AccountStatus) error {
	return dErrors.Wrap(ErrStageNotActionable, dErrors.CodeInvalidState,
		fmt.Sprintf("account is %s, no further decisions are accepted", status))
}

func DecisionInProgress() error {
	return dErrors.Wrap(ErrDecisionInProgress, dErrors.CodeConflict, "a decision for this therapist is already in flight")
}

// TransportError wraps cause so it still matches ErrTransport.
func TransportError(msg string, cause error) error {
	if cause == nil {
		return dErrors.Wrap(ErrTransport, dErrors.CodeUnavailable, msg)
	}
	return dErrors.Wrap(fmt.Errorf("%w: %w", ErrTransport, cause), dErrors.CodeUnavailable, msg)
}

func Unauthorized(msg string) error {
	return dErrors.Wrap(ErrUnauthorized, dErrors.CodeUnauthorized, msg)
}

// IsRetryable reports whether err is a transport failure worth retrying.
// Local precondition and authorization failures are not.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransport)
}
