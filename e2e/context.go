// Package e2e drives a running consentledger over HTTP with godog scenarios.
//
// The suite needs E2E_BASE_URL and the credential of one registered
// application (E2E_APP_ID, E2E_APP_SECRET), for example from
// `consentledger serve --bootstrap-app e2e-app`.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// TestContext holds per-scenario state shared by the step packages.
type TestContext struct {
	BaseURL   string
	AppID     string
	AppSecret string
	client    *http.Client

	lastStatus int
	lastBody   []byte

	// Named values remembered across steps, e.g. the last consent id.
	vars map[string]string
}

func NewTestContext() *TestContext {
	return &TestContext{
		BaseURL:   strings.TrimRight(os.Getenv("E2E_BASE_URL"), "/"),
		AppID:     os.Getenv("E2E_APP_ID"),
		AppSecret: os.Getenv("E2E_APP_SECRET"),
		client:    &http.Client{Timeout: 10 * time.Second},
		vars:      map[string]string{},
	}
}

// Reset clears response state between scenarios.
func (tc *TestContext) Reset() {
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.vars = map[string]string{}
}

func (tc *TestContext) POST(path string, body any, headers map[string]string) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return tc.do(http.MethodPost, path, bytes.NewReader(payload), headers)
}

func (tc *TestContext) GET(path string, headers map[string]string) error {
	return tc.do(http.MethodGet, path, nil, headers)
}

func (tc *TestContext) do(method, path string, body io.Reader, headers map[string]string) error {
	req, err := http.NewRequest(method, tc.BaseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	return err
}

func (tc *TestContext) GetAppID() string            { return tc.AppID }
func (tc *TestContext) GetAppSecret() string        { return tc.AppSecret }
func (tc *TestContext) GetLastResponseStatus() int  { return tc.lastStatus }
func (tc *TestContext) GetLastResponseBody() []byte { return tc.lastBody }
func (tc *TestContext) Remember(key, value string)  { tc.vars[key] = value }
func (tc *TestContext) Recall(key string) string    { return tc.vars[key] }

// GetResponseField reads a top-level field from the last JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var m map[string]any
	if err := json.Unmarshal(tc.lastBody, &m); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w", err)
	}
	v, ok := m[field]
	if !ok {
		return nil, fmt.Errorf("response has no field %q: %s", field, tc.lastBody)
	}
	return v, nil
}
