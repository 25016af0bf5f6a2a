package e2e

import (
	"context"
	"os"
	"testing"

	"github.com/cucumber/godog"
)

func TestFeatures(t *testing.T) {
	tc := NewTestContext()
	if tc.BaseURL == "" || tc.AppSecret == "" {
		t.Skip("E2E_BASE_URL and E2E_APP_SECRET are required for the e2e suite")
	}

	suite := godog.TestSuite{
		ScenarioInitializer: func(ctx *godog.ScenarioContext) {
			ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
				tc.Reset()
				return ctx, nil
			})
			RegisterSteps(ctx, tc)
		},
		Options: &godog.Options{
			Format:   formatFromEnv(),
			Paths:    []string{"features"},
			Strict:   true,
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("e2e scenarios failed")
	}
}

func formatFromEnv() string {
	if f := os.Getenv("E2E_FORMAT"); f != "" {
		return f
	}
	return "pretty"
}
