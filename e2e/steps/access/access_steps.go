package access

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any, headers map[string]string) error
	GET(path string, headers map[string]string) error
	GetResponseField(field string) (any, error)
	GetAppID() string
	GetAppSecret() string
	GetLastResponseStatus() int
	Recall(key string) string
}

// RegisterSteps registers data access and access log steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &accessSteps{tc: tc}

	ctx.Step(`^my app requests "([^"]*)" of "([^"]*)" for "([^"]*)"$`, steps.request)
	ctx.Step(`^my app requests "([^"]*)" of "([^"]*)" for "([^"]*)" claiming app_id "([^"]*)"$`, steps.requestClaiming)
	ctx.Step(`^an unauthenticated caller requests "([^"]*)" of "([^"]*)" for "([^"]*)"$`, steps.requestWithout)
	ctx.Step(`^a caller with secret "([^"]*)" requests "([^"]*)" of "([^"]*)" for "([^"]*)"$`, steps.requestWithSecret)
	ctx.Step(`^access should be allowed$`, steps.allowed)
	ctx.Step(`^access should be denied with reason "([^"]*)"$`, steps.denied)
	ctx.Step(`^the access log of "([^"]*)" should have (\d+) entr(?:y|ies)$`, steps.logCount)
	ctx.Step(`^the newest access log of "([^"]*)" should record "([^"]*)" by my app$`, steps.newestLog)
}

type accessSteps struct {
	tc TestContext
}

func (s *accessSteps) userID(alias string) string {
	if v := s.tc.Recall("user:" + alias); v != "" {
		return v
	}
	return alias
}

func (s *accessSteps) body(alias, dataType, purpose string) map[string]string {
	return map[string]string{"user_id": s.userID(alias), "data_type": dataType, "purpose": purpose}
}

func (s *accessSteps) bearer(secret string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + secret}
}

func (s *accessSteps) request(_ context.Context, dataType, alias, purpose string) error {
	return s.tc.POST("/data-access", s.body(alias, dataType, purpose), s.bearer(s.tc.GetAppSecret()))
}

func (s *accessSteps) requestClaiming(_ context.Context, dataType, alias, purpose, claimed string) error {
	body := s.body(alias, dataType, purpose)
	body["app_id"] = claimed
	return s.tc.POST("/data-access", body, s.bearer(s.tc.GetAppSecret()))
}

func (s *accessSteps) requestWithout(_ context.Context, dataType, alias, purpose string) error {
	return s.tc.POST("/data-access", s.body(alias, dataType, purpose), nil)
}

func (s *accessSteps) requestWithSecret(_ context.Context, secret, dataType, alias, purpose string) error {
	return s.tc.POST("/data-access", s.body(alias, dataType, purpose), s.bearer(secret))
}

func (s *accessSteps) allowed(_ context.Context) error {
	if got := s.tc.GetLastResponseStatus(); got != http.StatusOK {
		return fmt.Errorf("expected 200, got %d", got)
	}
	v, err := s.tc.GetResponseField("allowed")
	if err != nil {
		return err
	}
	if v != true {
		return fmt.Errorf("expected allowed=true, got %v", v)
	}
	return nil
}

func (s *accessSteps) denied(_ context.Context, reason string) error {
	if got := s.tc.GetLastResponseStatus(); got != http.StatusForbidden {
		return fmt.Errorf("expected 403, got %d", got)
	}
	v, err := s.tc.GetResponseField("reason")
	if err != nil {
		return err
	}
	if v != reason {
		return fmt.Errorf("expected reason %q, got %v", reason, v)
	}
	return nil
}

func (s *accessSteps) logs(alias string) ([]any, error) {
	if err := s.tc.GET("/logs/"+s.userID(alias), nil); err != nil {
		return nil, err
	}
	v, err := s.tc.GetResponseField("logs")
	if err != nil {
		return nil, err
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("logs is not an array: %v", v)
	}
	return list, nil
}

func (s *accessSteps) logCount(_ context.Context, alias string, n int) error {
	list, err := s.logs(alias)
	if err != nil {
		return err
	}
	if len(list) != n {
		return fmt.Errorf("expected %d access log entries, got %d", n, len(list))
	}
	return nil
}

func (s *accessSteps) newestLog(_ context.Context, alias, result string) error {
	list, err := s.logs(alias)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return fmt.Errorf("no access log entries")
	}
	newest, _ := list[0].(map[string]any)
	if got := fmt.Sprint(newest["result"]); got != result {
		return fmt.Errorf("expected result %q, got %q", result, got)
	}
	if got := fmt.Sprint(newest["app_id"]); got != s.tc.GetAppID() {
		return fmt.Errorf("expected app_id %q, got %q", s.tc.GetAppID(), got)
	}
	return nil
}
