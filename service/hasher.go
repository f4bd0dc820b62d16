package service

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// SecretHasher is a one-way, salted hash with a constant-effort compare.
type SecretHasher interface {
	Hash(plaintext string) (string, error)
	// Verify reports a mismatch as false with a nil error; an error means the
	// stored hash itself is malformed.
	Verify(plaintext, hashed string) (bool, error)
}

// BcryptHasher implements SecretHasher with bcrypt.
type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(bytes), nil
}

func (h *BcryptHasher) Verify(plaintext, hashed string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("failed to compare secret: %w", err)
	}
}
