package secrets

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"

	dErrors "consentledger/pkg/domain-errors"
)

// Prefix marks bearer secrets so they are recognisable in leaked-secret scans.
const Prefix = "cl_"

// Generate creates a cryptographically secure random bearer secret.
func Generate() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate secret: %w", err)
	}
	return Prefix + base64.RawURLEncoding.EncodeToString(buf), nil
}

// Digester derives the stored form of a secret: BLAKE2b-256 keyed with a
// server-side pepper. Digests are deterministic and indexed for lookup.
type Digester struct {
	key []byte
}

// NewDigester builds a digester. Peppers longer than the 64-byte BLAKE2b key
// limit are compressed first; an empty pepper yields an unkeyed digest.
func NewDigester(pepper string) *Digester {
	key := []byte(pepper)
	if len(key) > blake2b.Size {
		sum := blake2b.Sum512(key)
		key = sum[:]
	}
	return &Digester{key: key}
}

// Digest returns the 32-byte digest of secret.
func (d *Digester) Digest(secret string) ([]byte, error) {
	if secret == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "secret cannot be empty")
	}
	h, err := blake2b.New256(d.key)
	if err != nil {
		return nil, fmt.Errorf("init digest: %w", err)
	}
	h.Write([]byte(secret))
	return h.Sum(nil), nil
}

// Equal compares two digests in constant time.
func Equal(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// CacheKey is the hex form of a digest, used as the credential cache key.
func CacheKey(digest []byte) string {
	return hex.EncodeToString(digest)
}
