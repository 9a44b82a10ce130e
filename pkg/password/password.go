// Package password hashes and verifies staff credentials.
//
// Stored credentials from the original deployment are unsalted SHA-256 hex
// digests. Verify accepts those as well as bcrypt hashes, so switching the
// scheme for new hashes does not invalidate existing accounts.
package password

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	SchemeSHA256 = "sha256"
	SchemeBcrypt = "bcrypt"
)

// Hasher produces and checks password hashes.
type Hasher struct {
	scheme string
	cost   int
}

// NewHasher returns a hasher writing new hashes with scheme. Unknown schemes
// fall back to the legacy digest.
func NewHasher(scheme string, cost int) *Hasher {
	scheme = strings.ToLower(strings.TrimSpace(scheme))
	if scheme != SchemeBcrypt {
		scheme = SchemeSHA256
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{scheme: scheme, cost: cost}
}

// Scheme reports the scheme used by Hash.
func (h *Hasher) Scheme() string {
	return h.scheme
}

// Hash returns the stored representation of plain.
func (h *Hasher) Hash(plain string) (string, error) {
	if h.scheme == SchemeBcrypt {
		out, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
		if err != nil {
			return "", fmt.Errorf("bcrypt hash: %w", err)
		}
		return string(out), nil
	}
	return digest(plain), nil
}

// Verify reports whether plain matches the stored hash.
func (h *Hasher) Verify(stored, plain string) bool {
	if stored == "" {
		return false
	}
	if isBcrypt(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(plain)) == nil
	}
	expected := digest(plain)
	return subtle.ConstantTimeCompare([]byte(strings.ToLower(stored)), []byte(expected)) == 1
}

func digest(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

func isBcrypt(stored string) bool {
	return strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$")
}
