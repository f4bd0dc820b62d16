// file: service/account_service.go

package service

import (
	"context"
	"errors"
	"go-auth-api/logger"
	"go-auth-api/model"
)

// Mailer delivers single-use tokens out of band.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, user *model.User, token string) error
	SendPasswordReset(ctx context.Context, user *model.User, token string) error
}

// LogMailer records that a message would be sent. The token itself is never logged.
type LogMailer struct{}

func (LogMailer) SendVerificationEmail(_ context.Context, user *model.User, _ string) error {
	logger.Log.WithField("user_id", user.ID).Info("Verification email queued")
	return nil
}

func (LogMailer) SendPasswordReset(_ context.Context, user *model.User, _ string) error {
	logger.Log.WithField("user_id", user.ID).Info("Password reset email queued")
	return nil
}

// AccountService drives the email verification and password reset flows.
type AccountService struct {
	users        *UserService
	verification *VerificationTokenService
	auth         *AuthService
	mailer       Mailer
}

// NewAccountService creates a new AccountService.
func NewAccountService(users *UserService, verification *VerificationTokenService, auth *AuthService, mailer Mailer) *AccountService {
	return &AccountService{
		users:        users,
		verification: verification,
		auth:         auth,
		mailer:       mailer,
	}
}

// RequestEmailVerification issues a fresh verification token for userID and mails it.
func (s *AccountService) RequestEmailVerification(ctx context.Context, userID int) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsEmailVerified() {
		return ErrEmailAlreadyVerified
	}

	token, err := s.verification.IssueEmailVerification(ctx, user.ID)
	if err != nil {
		return err
	}
	if err := s.mailer.SendVerificationEmail(ctx, user, token); err != nil {
		return internalError("send verification email", err)
	}
	return nil
}

// ConfirmEmailVerification consumes the token and marks the owner's email verified.
func (s *AccountService) ConfirmEmailVerification(ctx context.Context, userID int, token string) error {
	ownerID, err := s.verification.ConsumeEmailVerification(ctx, userID, token)
	if err != nil {
		return err
	}
	return s.users.MarkEmailVerified(ctx, ownerID)
}

// RequestPasswordReset mails a reset token to email. An unknown email is not an
// error so the endpoint cannot be used to probe for accounts.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			logger.Log.Info("Password reset requested for unknown email")
			return nil
		}
		return err
	}

	token, err := s.verification.IssuePasswordReset(ctx, user.ID)
	if err != nil {
		return err
	}
	if err := s.mailer.SendPasswordReset(ctx, user, token); err != nil {
		return internalError("send password reset email", err)
	}
	return nil
}

// ResetPassword consumes the reset token, stores the new password and ends every
// session of the user. The password is checked first so a rejected one leaves
// the token usable.
func (s *AccountService) ResetPassword(ctx context.Context, userID int, token, newPassword string) error {
	if err := CheckPassword(newPassword); err != nil {
		return err
	}
	ownerID, err := s.verification.ConsumePasswordReset(ctx, userID, token)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, ownerID, newPassword); err != nil {
		return err
	}
	if _, err := s.auth.RevokeAllSessions(ctx, ownerID); err != nil {
		return err
	}
	logger.Log.WithField("user_id", ownerID).Info("Password reset completed")
	return nil
}
