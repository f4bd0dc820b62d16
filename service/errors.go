package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidCredential is returned for an access token with a bad signature or payload.
	ErrInvalidCredential = errors.New("invalid access token")
	// ErrCredentialExpired is returned for an access token past its expiry.
	ErrCredentialExpired = errors.New("access token expired")
	// ErrTokenNotFound is returned when no stored refresh or verification token matches.
	ErrTokenNotFound = errors.New("token not found")
	// ErrTokenExpired is returned when a stored token matched but is past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenRevoked is returned when the user's token version moved past the access token's.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrInternal wraps unexpected persistence or hashing failures.
	ErrInternal = errors.New("internal error")

	ErrUserNotFound         = errors.New("user not found")
	ErrEmailAlreadyExists   = errors.New("email already exists")
	ErrEmailAlreadyVerified = errors.New("email already verified")
	ErrInvalidTokenType     = errors.New("invalid verification token type")
	// ErrPasswordTooLong is returned for passwords bcrypt cannot hash.
	ErrPasswordTooLong = errors.New("password exceeds 72 bytes")
)

// internalError keeps the cause in the chain while marking the failure as ErrInternal.
func internalError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInternal, op, err)
}
