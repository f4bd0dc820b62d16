package service

import (
	"context"
	"errors"
	"go-auth-api/logger"
	"go-auth-api/metrics"
	"go-auth-api/model"
	"go-auth-api/repository"
	"strings"
	"sync"
	"time"
)

// UserProvider is the narrow view of users the session layer needs.
type UserProvider interface {
	FindByID(ctx context.Context, userID int) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	IncrementTokenVersion(ctx context.Context, userID int) (int, error)
}

// UserService handles user-related business logic.
type UserService struct {
	repo   repository.IUserRepository
	hasher SecretHasher
	now    func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewUserService creates a new UserService.
func NewUserService(repo repository.IUserRepository, hasher SecretHasher) *UserService {
	return &UserService{repo: repo, hasher: hasher, now: time.Now}
}

// maxPasswordBytes is bcrypt's input limit. It counts bytes, not characters.
const maxPasswordBytes = 72

// CheckPassword rejects passwords the hasher would refuse.
func CheckPassword(password string) error {
	if len(password) > maxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register hashes the password and stores a new user.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	if err := CheckPassword(password); err != nil {
		return nil, err
	}
	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return nil, internalError("hash password", err)
	}

	user := &model.User{
		Name:     strings.TrimSpace(name),
		Email:    normalizeEmail(email),
		Password: hashed,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, internalError("create user", err)
	}

	logger.Log.WithField("user_id", user.ID).Info("User registered")
	return user, nil
}

// VerifyCredentials returns the user owning email when password matches.
// Unknown emails still pay for one hash comparison so response timing does not
// reveal which addresses are registered.
func (s *UserService) VerifyCredentials(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.compareDummy(password)
			metrics.Logins.WithLabelValues("invalid_credentials").Inc()
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := s.hasher.Verify(password, user.Password)
	if err != nil {
		return nil, internalError("compare password", err)
	}
	if !ok {
		metrics.Logins.WithLabelValues("invalid_credentials").Inc()
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) compareDummy(password string) {
	s.dummyOnce.Do(func() {
		secret, err := newOpaqueSecret()
		if err == nil {
			s.dummyHash, _ = s.hasher.Hash(secret)
		}
	})
	if s.dummyHash != "" {
		_, _ = s.hasher.Verify(password, s.dummyHash)
	}
}

func (s *UserService) FindByID(ctx context.Context, userID int) (*model.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, internalError("get user by id", err)
	}
	return user, nil
}

func (s *UserService) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, internalError("get user by email", err)
	}
	return user, nil
}

// IncrementTokenVersion advances the user's token version, invalidating every
// access token minted before the call.
func (s *UserService) IncrementTokenVersion(ctx context.Context, userID int) (int, error) {
	version, err := s.repo.IncrementTokenVersion(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, internalError("increment token version", err)
	}
	return version, nil
}

// UpdatePassword replaces the stored password hash.
func (s *UserService) UpdatePassword(ctx context.Context, userID int, password string) error {
	if err := CheckPassword(password); err != nil {
		return err
	}
	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return internalError("hash password", err)
	}
	if err := s.repo.UpdatePassword(ctx, userID, hashed); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return internalError("update password", err)
	}
	return nil
}

// MarkEmailVerified records the verification time. Repeated calls keep the first time.
func (s *UserService) MarkEmailVerified(ctx context.Context, userID int) error {
	if err := s.repo.MarkEmailVerified(ctx, userID, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return internalError("mark email verified", err)
	}
	return nil
}
