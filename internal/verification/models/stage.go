package models

import (
	"strings"

	dErrors "carebridge/pkg/domain-errors"
)

// Stage is one of the four ordered pipeline steps.
type Stage string

const (
	StageRegistration    Stage = "registration"
	StageLicense         Stage = "license"
	StageBackgroundCheck Stage = "background_check"
	StageFinal           Stage = "final"
)

// Stages lists the pipeline in order.
var Stages = [StageCount]Stage{StageRegistration, StageLicense, StageBackgroundCheck, StageFinal}

// StageCount is the fixed number of pipeline stages.
const StageCount = 4

// Label is the human-facing stage name.
func (s Stage) Label() string {
	switch s {
	case StageRegistration:
		return "Registration"
	case StageLicense:
		return "License Verification"
	case StageBackgroundCheck:
		return "Background Check"
	case StageFinal:
		return "Final Activation"
	}
	return string(s)
}

// Index returns the stage's position in Stages, or -1.
func (s Stage) Index() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}

// IsDecidable reports whether an administrator can submit a decision for s.
// Registration is passed by creating the record and accepts no decision.
func (s Stage) IsDecidable() bool {
	return s == StageLicense || s == StageBackgroundCheck || s == StageFinal
}

// ParseDecisionStage parses a stage that accepts decisions.
func ParseDecisionStage(s string) (Stage, error) {
	st := Stage(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsDecidable() {
		return "", dErrors.New(dErrors.CodeBadRequest, "stage must be one of license, background_check, final")
	}
	return st, nil
}

// The verification service names the license stage "documents" on the wire.
const (
	WireStageDocuments       = "documents"
	WireStageBackgroundCheck = "background_check"
	WireStageFinal           = "final"
)

// WireName returns the stage name used in verification requests.
func (s Stage) WireName() string {
	if s == StageLicense {
		return WireStageDocuments
	}
	return string(s)
}

// ParseWireStage maps a wire stage name back to its Stage.
func ParseWireStage(s string) (Stage, error) {
	switch s {
	case WireStageDocuments:
		return StageLicense, nil
	case WireStageBackgroundCheck:
		return StageBackgroundCheck, nil
	case WireStageFinal:
		return StageFinal, nil
	}
	return "", dErrors.New(dErrors.CodeBadRequest, "stage must be one of documents, background_check, final")
}

// StageStatus is a stage's projected position.
type StageStatus string

const (
	StatusPending   StageStatus = "pending"
	StatusCurrent   StageStatus = "current"
	StatusCompleted StageStatus = "completed"
	StatusFailed    StageStatus = "failed"
)

// Decision is an administrator's verdict on a stage.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// ParseDecision accepts the wire values plus the approve/reject verbs used by the console.
func ParseDecision(s string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approved", "approve":
		return DecisionApproved, nil
	case "rejected", "reject":
		return DecisionRejected, nil
	}
	return "", dErrors.New(dErrors.CodeBadRequest, "status must be approved or rejected")
}
