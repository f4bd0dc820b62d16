// file: model/token.go

package model

import "time"

// RefreshToken holds the data for a refresh token in the database.
// Only the bcrypt hash of the secret is ever stored.
type RefreshToken struct {
	ID         string    `json:"id"`
	UserID     int       `json:"user_id"`
	TokenHash  string    `json:"-"`
	DeviceID   string    `json:"device_id,omitempty"`
	DeviceInfo string    `json:"device_info,omitempty"`
	IPAddress  string    `json:"ip_address,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// IsExpired reports whether the token is past its expiry at now.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return t.ExpiresAt.Before(now)
}

// DeviceInfo describes the client presenting a login.
type DeviceInfo struct {
	DeviceID   string
	DeviceInfo string
	IPAddress  string
}

// Device is the public view of an active refresh session.
type Device struct {
	DeviceID   string    `json:"device_id,omitempty"`
	DeviceInfo string    `json:"device_info,omitempty"`
	IPAddress  string    `json:"ip_address,omitempty"`
	LastUsedAt time.Time `json:"last_used_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// VerificationTokenType tags what a single-use token proves.
type VerificationTokenType string

const (
	VerificationTypeEmail         VerificationTokenType = "VERIFY_EMAIL"
	VerificationTypePasswordReset VerificationTokenType = "RESET_PASSWORD"
)

// Valid reports whether t is a known token type.
func (t VerificationTokenType) Valid() bool {
	return t == VerificationTypeEmail || t == VerificationTypePasswordReset
}

// VerificationToken is a single-use secret for email verification or password reset.
// Used tokens are kept for audit until the retention sweep removes them.
type VerificationToken struct {
	ID        string                `json:"id"`
	UserID    int                   `json:"user_id"`
	TokenHash string                `json:"-"`
	Type      VerificationTokenType `json:"type"`
	Used      bool                  `json:"used"`
	UsedAt    *time.Time            `json:"used_at,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
	ExpiresAt time.Time             `json:"expires_at"`
}

// IsExpired reports whether the token is past its expiry at now.
func (t *VerificationToken) IsExpired(now time.Time) bool {
	return t.ExpiresAt.Before(now)
}

// IssuedRefreshToken is the plaintext secret handed to the transport once.
type IssuedRefreshToken struct {
	Token     string
	ExpiresAt time.Time
}

// TokenPair is the result of a login or refresh.
type TokenPair struct {
	UserID       int
	AccessToken  string
	AccessTTL    time.Duration
	RefreshToken string
	RefreshTTL   time.Duration
}
