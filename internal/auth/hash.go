package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes sign-in link tokens before they touch the database, so a
// leaked table does not yield usable links.
type Hasher struct {
	cost int
}

// NewHasher creates a Hasher at the default bcrypt cost.
func NewHasher() *Hasher {
	return &Hasher{cost: bcrypt.DefaultCost}
}

// NewHasherForTest creates a cheap Hasher so test suites stay fast.
func NewHasherForTest() *Hasher {
	return &Hasher{cost: bcrypt.MinCost}
}

// Hash returns the bcrypt hash of a plaintext token.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", errors.New("auth: refusing to hash empty token")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing token: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches the stored hash.
func (h *Hasher) Verify(hash, plaintext string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)); err != nil {
		return errors.New("auth: token mismatch")
	}
	return nil
}
