package workflow

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"carebridge/internal/verification/models"
	id "carebridge/pkg/domain"
)

type ProjectionSuite struct {
	suite.Suite
}

func TestProjectionSuite(t *testing.T) {
	suite.Run(t, new(ProjectionSuite))
}

var (
	completed = models.StatusCompleted
	current   = models.StatusCurrent
	pending   = models.StatusPending
	failed    = models.StatusFailed
)

func record(licenseVerified bool, bg models.BackgroundCheckStatus, account models.AccountStatus) *models.Record {
	r := models.NewRecord(id.NewTherapistID(), "Jun", "Okafor", "jun@example.com", "LMFT-88", "NY",
		time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	r.LicenseVerified = licenseVerified
	r.BackgroundCheckStatus = bg
	r.AccountStatus = account
	return r
}

// reachable walks every decision path from a fresh record. Each non-rejected
// state also yields a suspended copy; rejection is final even for out-of-band changes.
func reachable() []*models.Record {
	type key struct {
		license bool
		bg      models.BackgroundCheckStatus
		account models.AccountStatus
	}
	seen := map[key]*models.Record{}
	queue := []*models.Record{record(false, models.BackgroundNotStarted, models.AccountOnboarding)}
	now := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	for len(queue) > 0 {
		r := queue[0]
		queue = queue[1:]
		k := key{r.LicenseVerified, r.BackgroundCheckStatus, r.AccountStatus}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = r
		if r.AccountStatus == models.AccountOnboarding || r.AccountStatus == models.AccountActive {
			s := r.Clone()
			s.AccountStatus = models.AccountSuspended
			queue = append(queue, s)
		}
		for _, stage := range models.Stages {
			if Actionable(r, stage) != nil {
				continue
			}
			for _, d := range []models.Decision{models.DecisionApproved, models.DecisionRejected} {
				next := r.Clone()
				if err := next.ApplyDecision(stage, d, "", now); err == nil {
					queue = append(queue, next)
				}
			}
		}
	}
	out := make([]*models.Record, 0, len(seen))
	for _, r := range seen {
		out = append(out, r)
	}
	return out
}

// every combination of field values, including ones that break the invariants.
func allCombinations() []*models.Record {
	var out []*models.Record
	for _, lv := range []bool{false, true} {
		for _, bg := range []models.BackgroundCheckStatus{
			models.BackgroundNotStarted, models.BackgroundInProgress, models.BackgroundCompleted, models.BackgroundFailed,
		} {
			for _, acct := range models.AccountStatuses {
				out = append(out, record(lv, bg, acct))
			}
		}
	}
	return out
}

func describe(r *models.Record) string {
	return fmt.Sprintf("license=%t bg=%s account=%s", r.LicenseVerified, r.BackgroundCheckStatus, r.AccountStatus)
}

func (s *ProjectionSuite) TestScenarios() {
	s.Run("fresh record waits on license", func() {
		r := record(false, models.BackgroundNotStarted, models.AccountOnboarding)
		p := Project(r)
		s.Equal(Projection{completed, current, pending, pending}, p)
		s.Equal("License Verification", p.CurrentStepLabel())
		s.Equal(1, p.ProgressCount())
	})

	s.Run("license approved, background running", func() {
		r := record(true, models.BackgroundInProgress, models.AccountOnboarding)
		p := Project(r)
		s.Equal(Projection{completed, completed, current, pending}, p)
		s.Equal("Background Check", p.CurrentStepLabel())
	})

	s.Run("background failed", func() {
		r := record(true, models.BackgroundFailed, models.AccountRejected)
		p := Project(r)
		s.Equal(Projection{completed, completed, failed, pending}, p)
		s.Equal(models.AccountRejected, OverallBadge(r))
		s.Equal(LabelRejected, p.CurrentStepLabel())
	})

	s.Run("fully activated", func() {
		r := record(true, models.BackgroundCompleted, models.AccountActive)
		p := Project(r)
		s.Equal(Projection{completed, completed, completed, completed}, p)
		s.Equal(4, p.ProgressCount())
		s.Equal(LabelCompleted, p.CurrentStepLabel())
	})

	s.Run("license rejected", func() {
		p := Project(record(false, models.BackgroundNotStarted, models.AccountRejected))
		s.Equal(Projection{completed, failed, pending, pending}, p)
		s.Equal(1, p.ProgressCount())
	})

	s.Run("final rejected", func() {
		p := Project(record(true, models.BackgroundCompleted, models.AccountRejected))
		s.Equal(Projection{completed, completed, completed, failed}, p)
		s.Equal(LabelRejected, p.CurrentStepLabel())
	})

	s.Run("awaiting final activation", func() {
		p := Project(record(true, models.BackgroundCompleted, models.AccountOnboarding))
		s.Equal(Projection{completed, completed, completed, current}, p)
		s.Equal("Final Activation", p.CurrentStepLabel())
	})

	s.Run("verified license with check not yet started is still a current background stage", func() {
		p := Project(record(true, models.BackgroundNotStarted, models.AccountOnboarding))
		s.Equal(Projection{completed, completed, current, pending}, p)
	})
}

func (s *ProjectionSuite) TestTotalAndDeterministic() {
	for _, r := range allCombinations() {
		s.Run(describe(r), func() {
			snapshot := *r
			var first Projection
			s.NotPanics(func() { first = Project(r) })
			s.Equal(first, Project(r))
			s.Equal(snapshot, *r, "projection must not mutate the record")
			for _, st := range first {
				s.Contains([]models.StageStatus{pending, current, completed, failed}, st)
			}
			s.Equal(completed, first[0])
		})
	}
}

func (s *ProjectionSuite) TestReachableStatesObeyInvariants() {
	states := reachable()
	s.Require().NotEmpty(states)
	for _, r := range states {
		s.NoError(r.CheckInvariants(), describe(r))
	}
}

func (s *ProjectionSuite) TestAtMostOneCurrentStage() {
	for _, r := range reachable() {
		n := 0
		for _, st := range Project(r) {
			if st == current {
				n++
			}
		}
		s.LessOrEqual(n, 1, describe(r))
	}
}

func (s *ProjectionSuite) TestLaterStagesPendingUntilEarlierCompleted() {
	for _, r := range reachable() {
		p := Project(r)
		for i := range p {
			if p[i] == completed {
				continue
			}
			for j := i + 1; j < len(p); j++ {
				s.Equal(pending, p[j], "%s: stage %d must be pending while stage %d is %s", describe(r), j, i, p[i])
			}
		}
	}
}

func (s *ProjectionSuite) TestFailureIsTerminal() {
	for _, r := range reachable() {
		p := Project(r)
		if !p.Failed() {
			continue
		}
		s.Equal(models.AccountRejected, OverallBadge(r), describe(r))
		s.Equal(LabelRejected, p.CurrentStepLabel())
		for _, stage := range models.Stages {
			s.ErrorIs(Actionable(r, stage), models.ErrStageNotActionable, "%s stage %s", describe(r), stage)
		}
	}
}

func (s *ProjectionSuite) TestProgressNeverDecreasesAlongDecisions() {
	now := time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)
	for _, r := range reachable() {
		before := Project(r).ProgressCount()
		for _, stage := range models.Stages {
			if Actionable(r, stage) != nil {
				continue
			}
			for _, d := range []models.Decision{models.DecisionApproved, models.DecisionRejected} {
				next := r.Clone()
				s.Require().NoError(next.ApplyDecision(stage, d, "", now))
				s.GreaterOrEqual(Project(next).ProgressCount(), before, "%s after %s %s", describe(r), stage, d)
			}
		}
	}
}

func TestActionable(t *testing.T) {
	fresh := record(false, models.BackgroundNotStarted, models.AccountOnboarding)
	require.NoError(t, Actionable(fresh, models.StageLicense))

	err := Actionable(fresh, models.StageFinal)
	require.ErrorIs(t, err, models.ErrStageNotActionable)
	assert.Contains(t, err.Error(), "pending")

	assert.ErrorIs(t, Actionable(fresh, models.StageRegistration), models.ErrStageNotActionable)

	suspended := record(true, models.BackgroundCompleted, models.AccountSuspended)
	assert.Equal(t, current, Project(suspended).Status(models.StageFinal), "projection ignores suspension")
	assert.ErrorIs(t, Actionable(suspended, models.StageFinal), models.ErrStageNotActionable)
}

func TestSummarize(t *testing.T) {
	r := record(true, models.BackgroundInProgress, models.AccountOnboarding)
	sum := Summarize(r)

	require.Len(t, sum.Stages, 4)
	assert.Equal(t, StageView{Stage: models.StageLicense, Label: "License Verification", Status: completed}, sum.Stages[1])
	assert.Equal(t, 2, sum.Progress)
	assert.Equal(t, "Background Check", sum.CurrentStep)
	assert.Equal(t, models.AccountOnboarding, sum.Badge)
}

func TestOverallBadgeIsPassthrough(t *testing.T) {
	for _, r := range allCombinations() {
		assert.Equal(t, r.AccountStatus, OverallBadge(r))
	}
}
