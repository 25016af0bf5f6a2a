package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "consentledger/pkg/domain"
	dErrors "consentledger/pkg/domain-errors"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestNewConsent(t *testing.T) {
	t.Run("starts active without revocation", func(t *testing.T) {
		c, err := NewConsent(id.NewConsentID(), "u1", "app1", "email", "marketing", nil, now)
		require.NoError(t, err)
		assert.Equal(t, StatusActive, c.Status)
		assert.Nil(t, c.RevokedAt)
		assert.Nil(t, c.ExpiresAt)
		assert.Equal(t, now, c.CreatedAt)
	})

	t.Run("rejects empty tuple fields", func(t *testing.T) {
		_, err := NewConsent(id.NewConsentID(), "u1", "", "email", "marketing", nil, now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("accepts past expiry", func(t *testing.T) {
		past := now.Add(-time.Hour)
		c, err := NewConsent(id.NewConsentID(), "u1", "app1", "email", "marketing", &past, now)
		require.NoError(t, err)
		assert.True(t, c.ExpiredAt(now))
	})
}

func TestConsent_Revoke(t *testing.T) {
	c, err := NewConsent(id.NewConsentID(), "u1", "app1", "email", "marketing", nil, now)
	require.NoError(t, err)

	require.True(t, c.Revoke(now))
	assert.Equal(t, StatusRevoked, c.Status)
	require.NotNil(t, c.RevokedAt)
	first := *c.RevokedAt

	assert.False(t, c.Revoke(now.Add(time.Hour)), "second revoke is a no-op")
	assert.Equal(t, first, *c.RevokedAt, "revoked_at never changes")
	assert.Equal(t, StatusRevoked, c.Status)
}

func TestConsent_ExpiredAt(t *testing.T) {
	exp := now.Add(time.Minute)
	c := &Consent{ExpiresAt: &exp}

	assert.False(t, c.ExpiredAt(now))
	assert.True(t, c.ExpiredAt(exp), "expiry exactly at now has lapsed")
	assert.True(t, c.ExpiredAt(exp.Add(time.Nanosecond)))
	assert.False(t, (&Consent{}).ExpiredAt(now.Add(100*365*24*time.Hour)))
}

func TestGrantRequest_Validate(t *testing.T) {
	t.Run("trims fields", func(t *testing.T) {
		req := &GrantRequest{UserID: " u1 ", AppID: "app1\t", DataType: "email", Purpose: " marketing"}
		require.NoError(t, req.Validate())
		assert.Equal(t, "u1", req.UserID)
		assert.Equal(t, "app1", req.AppID)
		assert.Equal(t, "marketing", req.Purpose)
	})

	t.Run("names the first missing field", func(t *testing.T) {
		req := &GrantRequest{UserID: "u1", AppID: "app1", DataType: "   ", Purpose: "marketing"}
		err := req.Validate()
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Contains(t, err.Error(), "data_type")
	})

	t.Run("rejects oversized purpose", func(t *testing.T) {
		req := &GrantRequest{UserID: "u1", AppID: "app1", DataType: "email", Purpose: strings.Repeat("p", 300)}
		require.Error(t, req.Validate())
	})
}

func TestRevokeRequest_Validate(t *testing.T) {
	assert.NoError(t, (&RevokeRequest{ConsentID: id.NewConsentID().String()}).Validate())

	for _, bad := range []string{"", "abc", "00000000-0000-0000-0000-000000000000"} {
		err := (&RevokeRequest{ConsentID: bad}).Validate()
		require.Error(t, err, bad)
		assert.Equal(t, dErrors.CodeValidation, dErrors.CodeOf(err))
	}
}
