package model

import "time"

// User is the principal whose sessions are managed.
// TokenVersion only ever increases; access tokens carrying an older version are revoked.
type User struct {
	ID              int        `json:"id"`
	Email           string     `json:"email"`
	Name            string     `json:"name"`
	Password        string     `json:"-"`
	TokenVersion    int        `json:"-"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// IsEmailVerified reports whether the user has confirmed their email address.
func (u *User) IsEmailVerified() bool {
	return u.EmailVerifiedAt != nil
}
