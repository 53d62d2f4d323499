package e2e

import (
	"github.com/cucumber/godog"

	"carebridge/e2e/steps/common"
	"carebridge/e2e/steps/verification"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (service checks, status assertions)
	common.RegisterSteps(ctx, tc)

	// Register verification pipeline steps
	verification.RegisterSteps(ctx, tc)
}
