package consent

import (
	"context"
	"fmt"
	"time"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any, headers map[string]string) error
	GET(path string, headers map[string]string) error
	GetResponseField(field string) (any, error)
	GetAppID() string
	Remember(key, value string)
	Recall(key string) string
}

// RegisterSteps registers consent-related step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &consentSteps{tc: tc}

	ctx.Step(`^a new user "([^"]*)"$`, steps.newUser)
	ctx.Step(`^"([^"]*)" grants my app consent to use "([^"]*)" for "([^"]*)"$`, steps.grant)
	ctx.Step(`^"([^"]*)" grants my app consent to use "([^"]*)" for "([^"]*)" expiring (\d+) seconds? ago$`, steps.grantExpired)
	ctx.Step(`^"([^"]*)" revokes that consent$`, steps.revokeLast)
	ctx.Step(`^I revoke consent "([^"]*)"$`, steps.revokeByID)
	ctx.Step(`^I list the consents of "([^"]*)"$`, steps.list)
	ctx.Step(`^the consent list should have (\d+) entr(?:y|ies)$`, steps.listShouldHave)
	ctx.Step(`^the newest consent should have status "([^"]*)"$`, steps.newestStatus)
}

type consentSteps struct {
	tc TestContext
}

// newUser maps a scenario alias to a user id unique to this run, so
// scenarios do not see each other's consents.
func (s *consentSteps) newUser(_ context.Context, alias string) error {
	s.tc.Remember("user:"+alias, fmt.Sprintf("%s-%d", alias, time.Now().UnixNano()))
	return nil
}

func (s *consentSteps) userID(alias string) string {
	if v := s.tc.Recall("user:" + alias); v != "" {
		return v
	}
	return alias
}

func (s *consentSteps) grant(ctx context.Context, alias, dataType, purpose string) error {
	return s.post(alias, map[string]any{
		"user_id":   s.userID(alias),
		"app_id":    s.tc.GetAppID(),
		"data_type": dataType,
		"purpose":   purpose,
	})
}

func (s *consentSteps) grantExpired(ctx context.Context, alias, dataType, purpose string, seconds int) error {
	return s.post(alias, map[string]any{
		"user_id":    s.userID(alias),
		"app_id":     s.tc.GetAppID(),
		"data_type":  dataType,
		"purpose":    purpose,
		"expires_at": time.Now().Add(-time.Duration(seconds) * time.Second).UTC().Format(time.RFC3339Nano),
	})
}

func (s *consentSteps) post(alias string, body map[string]any) error {
	if err := s.tc.POST("/consent", body, nil); err != nil {
		return err
	}
	consent, err := s.tc.GetResponseField("consent")
	if err != nil {
		return err
	}
	m, ok := consent.(map[string]any)
	if !ok {
		return fmt.Errorf("unexpected consent payload %v", consent)
	}
	s.tc.Remember("consent:"+alias, fmt.Sprint(m["id"]))
	return nil
}

func (s *consentSteps) revokeLast(_ context.Context, alias string) error {
	consentID := s.tc.Recall("consent:" + alias)
	if consentID == "" {
		return fmt.Errorf("%s has not granted a consent in this scenario", alias)
	}
	return s.tc.POST("/consent/revoke", map[string]string{"consent_id": consentID}, nil)
}

func (s *consentSteps) revokeByID(_ context.Context, consentID string) error {
	return s.tc.POST("/consent/revoke", map[string]string{"consent_id": consentID}, nil)
}

func (s *consentSteps) list(_ context.Context, alias string) error {
	return s.tc.GET("/consents/"+s.userID(alias), nil)
}

func (s *consentSteps) consents() ([]any, error) {
	v, err := s.tc.GetResponseField("consents")
	if err != nil {
		return nil, err
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("consents is not an array: %v", v)
	}
	return list, nil
}

func (s *consentSteps) listShouldHave(_ context.Context, n int) error {
	list, err := s.consents()
	if err != nil {
		return err
	}
	if len(list) != n {
		return fmt.Errorf("expected %d consents, got %d", n, len(list))
	}
	return nil
}

func (s *consentSteps) newestStatus(_ context.Context, status string) error {
	list, err := s.consents()
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return fmt.Errorf("no consents listed")
	}
	newest, _ := list[0].(map[string]any)
	if got := fmt.Sprint(newest["status"]); got != status {
		return fmt.Errorf("expected newest consent status %q, got %q", status, got)
	}
	return nil
}
