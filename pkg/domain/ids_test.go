package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "consentledger/pkg/domain-errors"
)

// TestParseConsentID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseConsentID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseConsentID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseConsentID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseConsentID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseConsentID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, ConsentID(validUUID), id)
	})
}

// TestParseID_SecurityInvariants checks parsing rejects attack vectors at API
// entry points.
func TestParseID_SecurityInvariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE consents;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"URN form", "urn:uuid:550e8400-e29b-41d4-a716-446655440000", true},

		{"Empty string", "", true},
		{"Nil UUID", uuid.Nil.String(), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},
		{"Surrounding whitespace", " 550e8400-e29b-41d4-a716-446655440000 ", false},

		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConsentID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestIDTypes_ConsistentBehavior(t *testing.T) {
	valid := uuid.NewString()
	_, errConsent := ParseConsentID(valid)
	_, errLog := ParseAccessLogID(valid)
	require.NoError(t, errConsent)
	require.NoError(t, errLog)

	for _, input := range []string{"", "invalid", uuid.Nil.String()} {
		_, errConsent := ParseConsentID(input)
		_, errLog := ParseAccessLogID(input)
		require.Error(t, errConsent, input)
		require.Error(t, errLog, input)
	}
}

func TestConsentID_TextRoundTrip(t *testing.T) {
	id := NewConsentID()
	b, err := id.MarshalText()
	require.NoError(t, err)

	var back ConsentID
	require.NoError(t, back.UnmarshalText(b))
	assert.Equal(t, id, back)
	assert.False(t, back.IsNil())
}

func TestParseLabel(t *testing.T) {
	t.Run("trims surrounding whitespace", func(t *testing.T) {
		v, err := ParseLabel("purpose", "  marketing ")
		require.NoError(t, err)
		assert.Equal(t, "marketing", v)
	})

	t.Run("rejects empty and blank values", func(t *testing.T) {
		for _, in := range []string{"", "   ", "\t"} {
			_, err := ParseLabel("user_id", in)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			assert.Contains(t, err.Error(), "user_id is required")
		}
	})

	t.Run("rejects oversized values", func(t *testing.T) {
		_, err := ParseLabel("data_type", strings.Repeat("x", MaxLabelLength+1))
		require.Error(t, err)
	})

	t.Run("rejects control characters", func(t *testing.T) {
		_, err := ParseLabel("app_id", "app\x00one")
		require.Error(t, err)
	})

	t.Run("accepts unicode labels", func(t *testing.T) {
		v, err := ParseLabel("purpose", "análisis")
		require.NoError(t, err)
		assert.Equal(t, "análisis", v)
	})
}
