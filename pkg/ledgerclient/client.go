// Package ledgerclient is the client relying applications use to ask the
// ledger whether they may use a user's data.
package ledgerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

// ErrAccessDenied is matched with errors.Is on a *DeniedError.
var ErrAccessDenied = errors.New("access denied by consent ledger")

// DeniedError is returned when the ledger answers 403. Reason is the
// ledger's denial reason, e.g. "No valid consent".
type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string {
	if e.Reason == "" {
		return ErrAccessDenied.Error()
	}
	return ErrAccessDenied.Error() + ": " + e.Reason
}

func (e *DeniedError) Is(target error) bool { return target == ErrAccessDenied }

// StatusError is any answer other than 200 or 403. Callers must not treat
// it as permission.
type StatusError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *StatusError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("consent ledger returned status %d", e.StatusCode)
	}
	if e.Description == "" {
		return fmt.Sprintf("consent ledger returned status %d: %s", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("consent ledger returned status %d: %s: %s", e.StatusCode, e.Code, e.Description)
}

// Client calls POST /data-access with the application's bearer secret.
type Client struct {
	baseURL    string
	secret     string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

func New(baseURL, secret string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secret:     secret,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type checkRequest struct {
	UserID   string `json:"user_id"`
	DataType string `json:"data_type"`
	Purpose  string `json:"purpose"`
}

type checkResponse struct {
	Allowed bool   `json:"allowed"`
	Message string `json:"message,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

// CheckAccess returns nil only when the ledger explicitly allowed the access.
// A denial is a *DeniedError; every other failure stops the caller.
func (c *Client) CheckAccess(ctx context.Context, userID, dataType, purpose string) error {
	body, err := json.Marshal(checkRequest{UserID: userID, DataType: dataType, Purpose: purpose})
	if err != nil {
		return fmt.Errorf("encode access check: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/data-access", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build access check: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("consent ledger not reachable: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read access check response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var out checkResponse
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("decode access check response: %w", err)
		}
		if !out.Allowed {
			return &DeniedError{Reason: out.Reason}
		}
		return nil
	case http.StatusForbidden:
		var out checkResponse
		_ = json.Unmarshal(raw, &out)
		return &DeniedError{Reason: out.Reason}
	default:
		var out errorResponse
		_ = json.Unmarshal(raw, &out)
		return &StatusError{StatusCode: resp.StatusCode, Code: out.Error, Description: out.Description}
	}
}
