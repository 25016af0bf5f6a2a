package domain

import (
	"strings"
	"unicode/utf8"

	dErrors "consentledger/pkg/domain-errors"
)

// MaxLabelLength bounds the opaque identifiers and free-form labels that make
// up a consent tuple (user_id, app_id, data_type, purpose).
const MaxLabelLength = 256

// ParseLabel trims and validates one element of a consent tuple.
//
// Errors: CodeValidation when the value is empty after trimming, longer than
// MaxLabelLength, not valid UTF-8, or contains control characters.
func ParseLabel(field, raw string) (string, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", dErrors.New(dErrors.CodeValidation, field+" is required")
	}
	if !utf8.ValidString(v) {
		return "", dErrors.New(dErrors.CodeValidation, field+" must be valid UTF-8")
	}
	if utf8.RuneCountInString(v) > MaxLabelLength {
		return "", dErrors.New(dErrors.CodeValidation, field+" is too long")
	}
	for _, r := range v {
		if r < 0x20 || r == 0x7f {
			return "", dErrors.New(dErrors.CodeValidation, field+" contains control characters")
		}
	}
	return v, nil
}
