package common

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string, headers map[string]string) error
	GetLastStatusCode() int
	GetResponseField(field string) (any, error)
	GetAdminToken() string
	SetAccessToken(token string)
	LastBody() string
}

// RegisterSteps registers shared step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^the verification service is running$`, steps.serviceIsRunning)
	ctx.Step(`^I am an administrator$`, steps.iAmAnAdministrator)
	ctx.Step(`^I am not authenticated$`, steps.iAmNotAuthenticated)
	ctx.Step(`^I use the token "([^"]*)"$`, steps.iUseTheToken)
	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, steps.responseFieldShouldEqual)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) serviceIsRunning(ctx context.Context) error {
	if err := s.tc.GET("/healthz", nil); err != nil {
		return err
	}
	if s.tc.GetLastStatusCode() != 200 {
		return fmt.Errorf("health check returned %d", s.tc.GetLastStatusCode())
	}
	return nil
}

func (s *commonSteps) iAmAnAdministrator(ctx context.Context) error {
	if s.tc.GetAdminToken() == "" {
		return godog.ErrPending
	}
	s.tc.SetAccessToken(s.tc.GetAdminToken())
	return nil
}

func (s *commonSteps) iAmNotAuthenticated(ctx context.Context) error {
	s.tc.SetAccessToken("")
	return nil
}

func (s *commonSteps) iUseTheToken(ctx context.Context, token string) error {
	s.tc.SetAccessToken(token)
	return nil
}

func (s *commonSteps) responseStatusShouldBe(ctx context.Context, status int) error {
	if got := s.tc.GetLastStatusCode(); got != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, got, s.tc.LastBody())
	}
	return nil
}

func (s *commonSteps) responseFieldShouldEqual(ctx context.Context, field, want string) error {
	got, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if fmt.Sprint(got) != want {
		return fmt.Errorf("expected %s=%q, got %v", field, want, got)
	}
	return nil
}
