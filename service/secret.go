package service

import (
	"crypto/rand"
	"encoding/base64"
)

const (
	secretBytes = 32
	// bcrypt only looks at the first 72 bytes; anything longer cannot be one of ours.
	maxSecretLen = 72
)

// newOpaqueSecret returns a URL-safe random secret without padding.
func newOpaqueSecret() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func plausibleSecret(plaintext string) bool {
	return plaintext != "" && len(plaintext) <= maxSecretLen
}
