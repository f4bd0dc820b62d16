// file: service/auth_service.go

package service

import (
	"context"
	"errors"
	"go-auth-api/logger"
	"go-auth-api/metrics"
	"go-auth-api/model"
	"time"

	"github.com/sirupsen/logrus"
)

// AuthConfig carries the session policy knobs of the authenticator.
type AuthConfig struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// MaxDevices caps concurrent refresh tokens per user; zero disables the cap.
	MaxDevices int
	// RevokeOnReuse revokes every session of a user presenting a rotated refresh token.
	RevokeOnReuse bool
}

// AuthService composes the credential codec, refresh sessions and the user
// collaborator into the login / refresh / verify / revoke flows.
type AuthService struct {
	codec    CredentialCodec
	sessions *RefreshTokenService
	users    UserProvider
	cfg      AuthConfig
}

// NewAuthService creates a new AuthService.
func NewAuthService(codec CredentialCodec, sessions *RefreshTokenService, users UserProvider, cfg AuthConfig) *AuthService {
	return &AuthService{codec: codec, sessions: sessions, users: users, cfg: cfg}
}

// Login mints an access token for an already authenticated user and opens a
// refresh session for the presenting device. If the refresh session cannot be
// stored no token pair is returned, so the access token is never handed out.
func (s *AuthService) Login(ctx context.Context, user *model.User, device *model.DeviceInfo) (*model.TokenPair, error) {
	pair, err := s.login(ctx, user, device)
	if err != nil {
		metrics.Logins.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.Logins.WithLabelValues("success").Inc()
	return pair, nil
}

func (s *AuthService) login(ctx context.Context, user *model.User, device *model.DeviceInfo) (*model.TokenPair, error) {
	access, err := s.codec.Issue(user.ID, user.TokenVersion, s.cfg.AccessTTL)
	if err != nil {
		return nil, err
	}

	// The device's own previous session must not count against the limit.
	if device != nil && device.DeviceID != "" {
		if _, err := s.sessions.RevokeDevice(ctx, user.ID, device.DeviceID); err != nil {
			return nil, err
		}
	}
	if err := s.sessions.EnforceDeviceLimit(ctx, user.ID, s.cfg.MaxDevices); err != nil {
		return nil, err
	}

	refresh, err := s.sessions.Issue(ctx, user.ID, s.cfg.RefreshTTL, device)
	if err != nil {
		return nil, err
	}

	logger.Log.WithFields(logrus.Fields{
		"user_id":   user.ID,
		"device_id": deviceID(device),
	}).Info("User logged in")

	return s.pair(user.ID, access, refresh), nil
}

// Refresh rotates oldRefresh and returns a fresh token pair carrying the user's
// current token version. Presenting a token that no longer exists is treated
// as reuse of a rotated token.
func (s *AuthService) Refresh(ctx context.Context, userID int, oldRefresh string, device *model.DeviceInfo) (*model.TokenPair, error) {
	pair, err := s.refresh(ctx, userID, oldRefresh, device)
	switch {
	case err == nil:
		metrics.Refreshes.WithLabelValues("success").Inc()
	case errors.Is(err, ErrTokenNotFound):
		metrics.Refreshes.WithLabelValues("not_found").Inc()
	case errors.Is(err, ErrTokenExpired):
		metrics.Refreshes.WithLabelValues("expired").Inc()
	default:
		metrics.Refreshes.WithLabelValues("error").Inc()
	}
	return pair, err
}

func (s *AuthService) refresh(ctx context.Context, userID int, oldRefresh string, device *model.DeviceInfo) (*model.TokenPair, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}

	if err := s.sessions.Rotate(ctx, user.ID, oldRefresh); err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			s.onReuse(ctx, user.ID, device)
		}
		return nil, err
	}

	refresh, err := s.sessions.Issue(ctx, user.ID, s.cfg.RefreshTTL, device)
	if err != nil {
		return nil, err
	}
	access, err := s.codec.Issue(user.ID, user.TokenVersion, s.cfg.AccessTTL)
	if err != nil {
		return nil, err
	}
	return s.pair(user.ID, access, refresh), nil
}

func (s *AuthService) onReuse(ctx context.Context, userID int, device *model.DeviceInfo) {
	metrics.RefreshReuseDetected.Inc()
	log := logger.Log.WithFields(logrus.Fields{
		"user_id":   userID,
		"device_id": deviceID(device),
	})
	log.Warn("Refresh token reuse detected")

	if !s.cfg.RevokeOnReuse {
		return
	}
	if _, err := s.RevokeAllSessions(ctx, userID); err != nil {
		log.WithError(err).Error("Failed to revoke sessions after refresh token reuse")
	}
}

// VerifyAccessCredential checks the signature and expiry of signed, then compares
// its embedded token version against the user's current one.
func (s *AuthService) VerifyAccessCredential(ctx context.Context, signed string) (*model.User, error) {
	claims, err := s.codec.Verify(signed)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredential
		}
		return nil, err
	}
	if user.TokenVersion != claims.TokenVersion {
		return nil, ErrTokenRevoked
	}
	return user, nil
}

// RevokeAllSessions bumps the user's token version, which kills every access
// token already handed out, then deletes every refresh token. Retrying after a
// partial failure is safe: a second bump only over-invalidates.
func (s *AuthService) RevokeAllSessions(ctx context.Context, userID int) (int64, error) {
	version, err := s.users.IncrementTokenVersion(ctx, userID)
	if err != nil {
		return 0, err
	}
	metrics.GlobalRevocations.Inc()

	revoked, err := s.sessions.RevokeAll(ctx, userID)
	if err != nil {
		return 0, err
	}

	logger.Log.WithFields(logrus.Fields{
		"user_id":          userID,
		"token_version":    version,
		"revoked_sessions": revoked,
	}).Warn("All sessions revoked")
	return revoked, nil
}

// Logout ends the single session identified by refreshPlain.
func (s *AuthService) Logout(ctx context.Context, userID int, refreshPlain string) error {
	return s.sessions.RevokeOne(ctx, userID, refreshPlain)
}

// LogoutDevice ends the session bound to deviceID.
func (s *AuthService) LogoutDevice(ctx context.Context, userID int, deviceID string) (int64, error) {
	return s.sessions.RevokeDevice(ctx, userID, deviceID)
}

// Devices lists the user's active sessions.
func (s *AuthService) Devices(ctx context.Context, userID int) ([]model.Device, error) {
	return s.sessions.ListDevices(ctx, userID)
}

func (s *AuthService) pair(userID int, access string, refresh *model.IssuedRefreshToken) *model.TokenPair {
	return &model.TokenPair{
		UserID:       userID,
		AccessToken:  access,
		AccessTTL:    s.cfg.AccessTTL,
		RefreshToken: refresh.Token,
		RefreshTTL:   s.cfg.RefreshTTL,
	}
}

func deviceID(device *model.DeviceInfo) string {
	if device == nil {
		return ""
	}
	return device.DeviceID
}
