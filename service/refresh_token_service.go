// file: service/refresh_token_service.go

package service

import (
	"context"
	"errors"
	"go-auth-api/logger"
	"go-auth-api/model"
	"go-auth-api/repository"
	"time"

	"github.com/sirupsen/logrus"
)

// RefreshTokenService manages long-lived rotating refresh tokens per user device.
// It keeps no state of its own; every check reads the repository.
type RefreshTokenService struct {
	repo   repository.IRefreshTokenRepository
	hasher SecretHasher
	now    func() time.Time
}

// NewRefreshTokenService creates a new RefreshTokenService.
func NewRefreshTokenService(repo repository.IRefreshTokenRepository, hasher SecretHasher) *RefreshTokenService {
	return &RefreshTokenService{repo: repo, hasher: hasher, now: time.Now}
}

// Issue creates a fresh refresh token for userID and returns its plaintext once.
// A device id replaces whatever token that device held before.
func (s *RefreshTokenService) Issue(ctx context.Context, userID int, ttl time.Duration, device *model.DeviceInfo) (*model.IssuedRefreshToken, error) {
	plain, err := newOpaqueSecret()
	if err != nil {
		return nil, internalError("generate refresh token", err)
	}
	hashed, err := s.hasher.Hash(plain)
	if err != nil {
		return nil, internalError("hash refresh token", err)
	}

	now := s.now()
	token := &model.RefreshToken{
		UserID:     userID,
		TokenHash:  hashed,
		CreatedAt:  now,
		LastUsedAt: now,
		ExpiresAt:  now.Add(ttl),
	}
	if device != nil {
		token.DeviceID = device.DeviceID
		token.DeviceInfo = device.DeviceInfo
		token.IPAddress = device.IPAddress
	}

	if token.DeviceID != "" {
		if _, err := s.repo.DeleteByUserIDAndDeviceID(ctx, userID, token.DeviceID); err != nil {
			return nil, internalError("delete previous device token", err)
		}
	}
	if err := s.repo.Create(ctx, token); err != nil {
		return nil, internalError("store refresh token", err)
	}

	return &model.IssuedRefreshToken{Token: plain, ExpiresAt: token.ExpiresAt}, nil
}

// find returns the stored token whose hash verifies against plaintext.
// Hashes are not indexable, so the scan is linear over the user's tokens.
func (s *RefreshTokenService) find(ctx context.Context, userID int, plaintext string) (*model.RefreshToken, error) {
	if !plausibleSecret(plaintext) {
		return nil, ErrTokenNotFound
	}

	tokens, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, internalError("load refresh tokens", err)
	}

	for _, t := range tokens {
		ok, err := s.hasher.Verify(plaintext, t.TokenHash)
		if err != nil {
			return nil, internalError("compare refresh token", err)
		}
		if ok {
			return t, nil
		}
	}
	return nil, ErrTokenNotFound
}

// match is find plus the expiry check shared by Validate and Rotate.
func (s *RefreshTokenService) match(ctx context.Context, userID int, plaintext string) (*model.RefreshToken, error) {
	t, err := s.find(ctx, userID, plaintext)
	if err != nil {
		return nil, err
	}
	if t.IsExpired(s.now()) {
		return nil, ErrTokenExpired
	}
	return t, nil
}

// Validate accepts plaintext if it matches an unexpired token of userID and
// records the use.
func (s *RefreshTokenService) Validate(ctx context.Context, userID int, plaintext string) error {
	t, err := s.match(ctx, userID, plaintext)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateLastUsedAt(ctx, t.ID, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Rotated or revoked between the read and the write.
			return ErrTokenNotFound
		}
		return internalError("update refresh token last used", err)
	}
	return nil
}

// Rotate consumes the presented token and drops every other session of the user.
// Only one concurrent caller can delete the matched row; the others get
// ErrTokenNotFound, which is the reuse signal.
func (s *RefreshTokenService) Rotate(ctx context.Context, userID int, oldPlaintext string) error {
	t, err := s.match(ctx, userID, oldPlaintext)
	if err != nil {
		return err
	}

	deleted, err := s.repo.DeleteByID(ctx, t.ID)
	if err != nil {
		return internalError("delete rotated refresh token", err)
	}
	if !deleted {
		return ErrTokenNotFound
	}

	others, err := s.repo.DeleteByUserID(ctx, userID)
	if err != nil {
		return internalError("delete remaining refresh tokens", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"user_id":          userID,
		"token_id":         t.ID,
		"revoked_sessions": others,
	}).Info("Refresh token rotated")
	return nil
}

// RevokeOne deletes the single token matching plaintext, expired or not.
func (s *RefreshTokenService) RevokeOne(ctx context.Context, userID int, plaintext string) error {
	t, err := s.find(ctx, userID, plaintext)
	if err != nil {
		return err
	}

	deleted, err := s.repo.DeleteByID(ctx, t.ID)
	if err != nil {
		return internalError("delete refresh token", err)
	}
	if !deleted {
		return ErrTokenNotFound
	}
	return nil
}

// RevokeAll deletes every refresh token of userID and returns how many were removed.
func (s *RefreshTokenService) RevokeAll(ctx context.Context, userID int) (int64, error) {
	n, err := s.repo.DeleteByUserID(ctx, userID)
	if err != nil {
		return 0, internalError("revoke all refresh tokens", err)
	}
	return n, nil
}

// RevokeDevice deletes the token(s) bound to deviceID.
func (s *RefreshTokenService) RevokeDevice(ctx context.Context, userID int, deviceID string) (int64, error) {
	n, err := s.repo.DeleteByUserIDAndDeviceID(ctx, userID, deviceID)
	if err != nil {
		return 0, internalError("revoke device refresh token", err)
	}
	return n, nil
}

// EnforceDeviceLimit makes room for one more session. When the user already
// holds maxDevices tokens, the least recently used ones are evicted until a new
// issuance keeps the count at maxDevices. A non-positive limit disables the check.
func (s *RefreshTokenService) EnforceDeviceLimit(ctx context.Context, userID int, maxDevices int) error {
	if maxDevices <= 0 {
		return nil
	}

	count, err := s.repo.CountByUserID(ctx, userID)
	if err != nil {
		return internalError("count refresh tokens", err)
	}
	if count < maxDevices {
		return nil
	}

	// Ordered by last_used_at DESC, created_at DESC: the tail is least recently used.
	tokens, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return internalError("load refresh tokens", err)
	}
	for len(tokens) >= maxDevices {
		victim := tokens[len(tokens)-1]
		if _, err := s.repo.DeleteByID(ctx, victim.ID); err != nil {
			return internalError("evict refresh token", err)
		}
		logger.Log.WithFields(logrus.Fields{
			"user_id":      userID,
			"token_id":     victim.ID,
			"device_id":    victim.DeviceID,
			"last_used_at": victim.LastUsedAt,
		}).Info("Evicted least recently used session to honor device limit")
		tokens = tokens[:len(tokens)-1]
	}
	return nil
}

// ListDevices returns the user's active sessions, most recently used first.
func (s *RefreshTokenService) ListDevices(ctx context.Context, userID int) ([]model.Device, error) {
	tokens, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, internalError("load refresh tokens", err)
	}

	devices := make([]model.Device, 0, len(tokens))
	for _, t := range tokens {
		devices = append(devices, model.Device{
			DeviceID:   t.DeviceID,
			DeviceInfo: t.DeviceInfo,
			IPAddress:  t.IPAddress,
			LastUsedAt: t.LastUsedAt,
			CreatedAt:  t.CreatedAt,
		})
	}
	return devices, nil
}

// SweepExpired deletes every refresh token past its expiry.
func (s *RefreshTokenService) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, internalError("sweep expired refresh tokens", err)
	}
	return n, nil
}
