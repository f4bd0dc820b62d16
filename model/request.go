// file: model/request.go

package model

// RegisterRequest defines the payload for creating a new user.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest defines the payload for user authentication.
// Device fields are optional; a device id scopes the session to one device.
type LoginRequest struct {
	Email      string `json:"email" validate:"required,email,max=255"`
	Password   string `json:"password" validate:"required"`
	DeviceID   string `json:"device_id" validate:"omitempty,max=255"`
	DeviceInfo string `json:"device_info" validate:"omitempty,max=512"`
}

// RefreshRequest exchanges a refresh token for a new token pair.
type RefreshRequest struct {
	UserID       int    `json:"user_id" validate:"required,gt=0"`
	RefreshToken string `json:"refresh_token" validate:"required"`
	DeviceID     string `json:"device_id" validate:"omitempty,max=255"`
	DeviceInfo   string `json:"device_info" validate:"omitempty,max=512"`
}

// LogoutRequest revokes a single refresh token.
type LogoutRequest struct {
	UserID       int    `json:"user_id" validate:"required,gt=0"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutDeviceRequest revokes the session bound to one device of the caller.
type LogoutDeviceRequest struct {
	DeviceID string `json:"device_id" validate:"required,max=255"`
}

// VerifyEmailConfirmRequest consumes an email verification token.
type VerifyEmailConfirmRequest struct {
	UserID int    `json:"user_id" validate:"required,gt=0"`
	Token  string `json:"token" validate:"required"`
}

// PasswordResetRequest starts a password reset for an email address.
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

// PasswordResetConfirmRequest consumes a reset token and sets a new password.
type PasswordResetConfirmRequest struct {
	UserID      int    `json:"user_id" validate:"required,gt=0"`
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

// TokenResponse is returned by login and refresh.
type TokenResponse struct {
	UserID           int    `json:"user_id"`
	AccessToken      string `json:"access_token"`
	AccessExpiresIn  int64  `json:"access_expires_in"`
	RefreshToken     string `json:"refresh_token"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
	TokenType        string `json:"token_type"`
}

// MessageResponse is a generic acknowledgement body.
type MessageResponse struct {
	Message string `json:"message"`
}

// RevokeResponse reports how many refresh sessions were removed.
type RevokeResponse struct {
	Message string `json:"message"`
	Revoked int64  `json:"revoked"`
}
