package e2e

import (
	"github.com/cucumber/godog"

	"consentledger/e2e/steps/access"
	"consentledger/e2e/steps/common"
	"consentledger/e2e/steps/consent"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	consent.RegisterSteps(ctx, tc)
	access.RegisterSteps(ctx, tc)
}
