package verification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string, headers map[string]string) error
	GetLastStatusCode() int
	GetResponseField(field string) (any, error)
	GetResponseList() ([]any, error)
	SetVar(name, value string)
	GetVar(name string) string
}

// RegisterSteps registers verification pipeline step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &verificationSteps{tc: tc}

	ctx.Step(`^a therapist "([^"]*)" registers with license "([^"]*)" in "([^"]*)"$`, steps.therapistRegisters)
	ctx.Step(`^I (approve|reject) the "([^"]*)" stage$`, steps.decideStage)
	ctx.Step(`^I (approve|reject) the "([^"]*)" stage with notes "([^"]*)"$`, steps.decideStageWithNotes)
	ctx.Step(`^I view the therapist$`, steps.viewTherapist)
	ctx.Step(`^I list therapists with status "([^"]*)"$`, steps.listWithStatus)

	ctx.Step(`^the stages should be "([^"]*)"$`, steps.stagesShouldBe)
	ctx.Step(`^the current step should be "([^"]*)"$`, steps.currentStepShouldBe)
	ctx.Step(`^the progress should be (\d+)$`, steps.progressShouldBe)
	ctx.Step(`^the account status should be "([^"]*)"$`, steps.accountStatusShouldBe)
	ctx.Step(`^the verification notes should mention "([^"]*)"$`, steps.notesShouldMention)
	ctx.Step(`^the therapist should be in the list$`, steps.therapistShouldBeListed)
}

type verificationSteps struct {
	tc TestContext
}

func (s *verificationSteps) therapistRegisters(ctx context.Context, name, license, state string) error {
	first, last, _ := strings.Cut(name, " ")
	email := fmt.Sprintf("%s.%d@e2e.carebridge.test", strings.ToLower(first), time.Now().UnixNano())
	if err := s.tc.POST("/api/therapists", map[string]string{
		"first_name":     first,
		"last_name":      last,
		"email":          email,
		"license_number": license,
		"license_state":  state,
	}); err != nil {
		return err
	}
	if s.tc.GetLastStatusCode() != 201 {
		return fmt.Errorf("registration returned %d", s.tc.GetLastStatusCode())
	}
	therapistID, err := s.tc.GetResponseField("id")
	if err != nil {
		return err
	}
	s.tc.SetVar("therapist_id", fmt.Sprint(therapistID))
	return nil
}

func (s *verificationSteps) decideStage(ctx context.Context, verb, stage string) error {
	return s.decideStageWithNotes(ctx, verb, stage, "")
}

func (s *verificationSteps) decideStageWithNotes(ctx context.Context, verb, stage, notes string) error {
	body := map[string]string{
		"stage":  stage,
		"status": verb + "d",
	}
	if notes != "" {
		body["notes"] = notes
	}
	return s.tc.POST("/api/therapists/"+s.tc.GetVar("therapist_id")+"/verification", body)
}

func (s *verificationSteps) viewTherapist(ctx context.Context) error {
	return s.tc.GET("/api/therapists/"+s.tc.GetVar("therapist_id"), nil)
}

func (s *verificationSteps) listWithStatus(ctx context.Context, status string) error {
	return s.tc.GET("/api/therapists?status="+status, nil)
}

func (s *verificationSteps) stagesShouldBe(ctx context.Context, want string) error {
	raw, err := s.tc.GetResponseField("workflow.stages")
	if err != nil {
		return err
	}
	stages, ok := raw.([]any)
	if !ok {
		return fmt.Errorf("workflow.stages is not a list")
	}
	got := make([]string, 0, len(stages))
	for _, st := range stages {
		view, _ := st.(map[string]any)
		got = append(got, fmt.Sprint(view["status"]))
	}
	if strings.Join(got, ",") != want {
		return fmt.Errorf("expected stages %s, got %s", want, strings.Join(got, ","))
	}
	return nil
}

func (s *verificationSteps) currentStepShouldBe(ctx context.Context, want string) error {
	return s.fieldEquals("workflow.current_step", want)
}

func (s *verificationSteps) progressShouldBe(ctx context.Context, want int) error {
	return s.fieldEquals("workflow.progress", fmt.Sprint(want))
}

func (s *verificationSteps) accountStatusShouldBe(ctx context.Context, want string) error {
	if err := s.fieldEquals("account_status", want); err == nil {
		return nil
	}
	return s.fieldEquals("therapist.account_status", want)
}

func (s *verificationSteps) notesShouldMention(ctx context.Context, text string) error {
	notes, err := s.tc.GetResponseField("verification_notes")
	if err != nil {
		return err
	}
	if !strings.Contains(fmt.Sprint(notes), text) {
		return fmt.Errorf("notes %q do not mention %q", notes, text)
	}
	return nil
}

func (s *verificationSteps) therapistShouldBeListed(ctx context.Context) error {
	list, err := s.tc.GetResponseList()
	if err != nil {
		return err
	}
	want := s.tc.GetVar("therapist_id")
	for _, item := range list {
		if rec, ok := item.(map[string]any); ok && rec["id"] == want {
			return nil
		}
	}
	return fmt.Errorf("therapist %s not in list of %d", want, len(list))
}

func (s *verificationSteps) fieldEquals(field, want string) error {
	got, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if fmt.Sprint(got) != want {
		return fmt.Errorf("expected %s=%q, got %v", field, want, got)
	}
	return nil
}
