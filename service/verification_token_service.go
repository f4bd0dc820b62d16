// file: service/verification_token_service.go

package service

import (
	"context"
	"go-auth-api/logger"
	"go-auth-api/metrics"
	"go-auth-api/model"
	"go-auth-api/repository"
	"time"

	"github.com/sirupsen/logrus"
)

// VerificationTTLs holds the lifetime of each single-use token type.
type VerificationTTLs struct {
	Email         time.Duration
	PasswordReset time.Duration
}

// DefaultVerificationTTLs are 24 hours for email verification and 15 minutes for password reset.
var DefaultVerificationTTLs = VerificationTTLs{
	Email:         24 * time.Hour,
	PasswordReset: 15 * time.Minute,
}

// VerificationTokenService issues and consumes single-use tokens.
//
// A token moves Unused -> Used exactly once. Expiry is detected lazily when the
// token is presented; nothing transitions it actively.
type VerificationTokenService struct {
	repo   repository.IVerificationTokenRepository
	hasher SecretHasher
	ttls   VerificationTTLs
	now    func() time.Time
}

// NewVerificationTokenService creates a new VerificationTokenService.
func NewVerificationTokenService(repo repository.IVerificationTokenRepository, hasher SecretHasher, ttls VerificationTTLs) *VerificationTokenService {
	return &VerificationTokenService{repo: repo, hasher: hasher, ttls: ttls, now: time.Now}
}

// Issue invalidates every unused token of tokenType for userID, then stores a
// new one. The plaintext is returned for out-of-band delivery.
func (s *VerificationTokenService) Issue(ctx context.Context, userID int, tokenType model.VerificationTokenType, ttl time.Duration) (string, error) {
	if !tokenType.Valid() {
		return "", ErrInvalidTokenType
	}

	now := s.now()
	invalidated, err := s.repo.InvalidateUnused(ctx, userID, tokenType, now)
	if err != nil {
		return "", internalError("invalidate unused verification tokens", err)
	}

	plain, err := newOpaqueSecret()
	if err != nil {
		return "", internalError("generate verification token", err)
	}
	hashed, err := s.hasher.Hash(plain)
	if err != nil {
		return "", internalError("hash verification token", err)
	}

	token := &model.VerificationToken{
		UserID:    userID,
		TokenHash: hashed,
		Type:      tokenType,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.repo.Create(ctx, token); err != nil {
		return "", internalError("store verification token", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"user_id":     userID,
		"type":        tokenType,
		"invalidated": invalidated,
		"expires_at":  token.ExpiresAt,
	}).Info("Verification token issued")
	metrics.VerificationTokens.WithLabelValues(string(tokenType), "issued").Inc()

	return plain, nil
}

// ValidateAndConsume marks the matching unused token as used and returns its owner.
func (s *VerificationTokenService) ValidateAndConsume(ctx context.Context, userID int, plaintext string, expectedType model.VerificationTokenType) (int, error) {
	ownerID, err := s.consume(ctx, userID, plaintext, expectedType)
	result := "consumed"
	switch {
	case err == nil:
	case err == ErrTokenExpired:
		result = "expired"
	case err == ErrTokenNotFound:
		result = "not_found"
	default:
		result = "error"
	}
	metrics.VerificationTokens.WithLabelValues(string(expectedType), result).Inc()
	return ownerID, err
}

func (s *VerificationTokenService) consume(ctx context.Context, userID int, plaintext string, expectedType model.VerificationTokenType) (int, error) {
	if !expectedType.Valid() {
		return 0, ErrInvalidTokenType
	}
	if !plausibleSecret(plaintext) {
		return 0, ErrTokenNotFound
	}

	tokens, err := s.repo.FindUnusedByUserIDAndType(ctx, userID, expectedType)
	if err != nil {
		return 0, internalError("load verification tokens", err)
	}

	for _, t := range tokens {
		ok, err := s.hasher.Verify(plaintext, t.TokenHash)
		if err != nil {
			return 0, internalError("compare verification token", err)
		}
		if !ok {
			continue
		}

		now := s.now()
		if t.IsExpired(now) {
			return 0, ErrTokenExpired
		}

		consumed, err := s.repo.MarkUsed(ctx, t.ID, now)
		if err != nil {
			return 0, internalError("mark verification token used", err)
		}
		if !consumed {
			// Another request consumed it first.
			return 0, ErrTokenNotFound
		}
		return t.UserID, nil
	}
	return 0, ErrTokenNotFound
}

// IssueEmailVerification issues an email verification token with the configured TTL.
func (s *VerificationTokenService) IssueEmailVerification(ctx context.Context, userID int) (string, error) {
	return s.Issue(ctx, userID, model.VerificationTypeEmail, s.ttls.Email)
}

// IssuePasswordReset issues a password reset token with the configured TTL.
func (s *VerificationTokenService) IssuePasswordReset(ctx context.Context, userID int) (string, error) {
	return s.Issue(ctx, userID, model.VerificationTypePasswordReset, s.ttls.PasswordReset)
}

func (s *VerificationTokenService) ConsumeEmailVerification(ctx context.Context, userID int, plaintext string) (int, error) {
	return s.ValidateAndConsume(ctx, userID, plaintext, model.VerificationTypeEmail)
}

func (s *VerificationTokenService) ConsumePasswordReset(ctx context.Context, userID int, plaintext string) (int, error) {
	return s.ValidateAndConsume(ctx, userID, plaintext, model.VerificationTypePasswordReset)
}

// SweepExpired deletes verification tokens past their expiry, used or not.
func (s *VerificationTokenService) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, internalError("sweep expired verification tokens", err)
	}
	return n, nil
}

// SweepUsed deletes used tokens once they have been kept for retention.
func (s *VerificationTokenService) SweepUsed(ctx context.Context, retention time.Duration) (int64, error) {
	n, err := s.repo.DeleteUsedBefore(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, internalError("sweep used verification tokens", err)
	}
	return n, nil
}
