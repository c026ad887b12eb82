package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
)

// NewVerificationCode returns a fresh random (v4) UUID used as the key of an
// emailed verification link.
func NewVerificationCode() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	return u.String(), nil
}

// NewState generates a URL-safe random OAuth2 state value.
func NewState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
