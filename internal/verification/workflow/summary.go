package workflow

import "carebridge/internal/verification/models"

const (
	LabelCompleted = "Completed"
	LabelRejected  = "Rejected"
)

// ProgressCount is the number of completed stages, 0 through 4.
func (p Projection) ProgressCount() int {
	n := 0
	for _, s := range p {
		if s == models.StatusCompleted {
			n++
		}
	}
	return n
}

// CurrentStepLabel names the first current stage, "Rejected" when a stage
// failed, or "Completed" when all stages are complete.
func (p Projection) CurrentStepLabel() string {
	if p.Failed() {
		return LabelRejected
	}
	if stage, ok := p.Current(); ok {
		return stage.Label()
	}
	// Without a failed or current stage every stage is completed.
	return LabelCompleted
}

// OverallBadge passes the account status through unchanged.
func OverallBadge(r *models.Record) models.AccountStatus {
	return r.AccountStatus
}

// StageView is one row of the stepper.
type StageView struct {
	Stage  models.Stage       `json:"stage"`
	Label  string             `json:"label"`
	Status models.StageStatus `json:"status"`
}

// Summary is the aggregate list and detail views render.
type Summary struct {
	Stages      []StageView          `json:"stages"`
	Progress    int                  `json:"progress"`
	CurrentStep string               `json:"current_step"`
	Badge       models.AccountStatus `json:"badge"`
}

// Summarize projects r and derives every aggregate in one pass.
func Summarize(r *models.Record) Summary {
	p := Project(r)
	views := make([]StageView, 0, models.StageCount)
	for i, stage := range models.Stages {
		views = append(views, StageView{Stage: stage, Label: stage.Label(), Status: p[i]})
	}
	return Summary{
		Stages:      views,
		Progress:    p.ProgressCount(),
		CurrentStep: p.CurrentStepLabel(),
		Badge:       OverallBadge(r),
	}
}
