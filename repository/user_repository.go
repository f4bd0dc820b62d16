package repository

import (
	"context"
	"database/sql"
	"errors"
	"go-auth-api/logger"
	"go-auth-api/model"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// IUserRepository defines the contract for user database operations.
type IUserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	IncrementTokenVersion(ctx context.Context, id int) (int, error)
	UpdatePassword(ctx context.Context, id int, passwordHash string) error
	MarkEmailVerified(ctx context.Context, id int, at time.Time) error
}

type UserRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{DB: db}
}

const userColumns = `id, email, name, password, token_version, email_verified_at, created_at`

func scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	var verifiedAt sql.NullTime
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.Password, &user.TokenVersion, &verifiedAt, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if verifiedAt.Valid {
		user.EmailVerifiedAt = &verifiedAt.Time
	}
	return user, nil
}

func (r *UserRepository) CreateUser(ctx context.Context, user *model.User) error {
	log := logger.Log.WithField("email", user.Email)
	log.Info("Executing query to create a new user")

	query := `INSERT INTO users (email, name, password) VALUES ($1, $2, $3) RETURNING id, token_version, created_at`
	err := r.DB.QueryRowContext(ctx, query, user.Email, user.Name, user.Password).Scan(&user.ID, &user.TokenVersion, &user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicate
		}
		log.WithError(err).Error("Failed to execute create user query")
		return err
	}
	return nil
}

func (r *UserRepository) GetUserByID(ctx context.Context, id int) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.DB.QueryRowContext(ctx, query, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		logger.Log.WithError(err).WithField("user_id", id).Error("Failed to execute get user by id query")
	}
	return user, err
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUser(r.DB.QueryRowContext(ctx, query, email))
	if err != nil && !errors.Is(err, ErrNotFound) {
		logger.Log.WithError(err).WithField("email", email).Error("Failed to execute get user by email query")
	}
	return user, err
}

// IncrementTokenVersion bumps the user's token version and returns the new value.
func (r *UserRepository) IncrementTokenVersion(ctx context.Context, id int) (int, error) {
	log := logger.Log.WithField("user_id", id)
	log.Info("Executing query to increment token version")

	var version int
	query := `UPDATE users SET token_version = token_version + 1 WHERE id = $1 RETURNING token_version`
	if err := r.DB.QueryRowContext(ctx, query, id).Scan(&version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		log.WithError(err).Error("Failed to execute increment token version query")
		return 0, err
	}
	return version, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	query := `UPDATE users SET password = $1 WHERE id = $2`
	return r.execOne(ctx, logger.Log.WithField("user_id", id), query, passwordHash, id)
}

func (r *UserRepository) MarkEmailVerified(ctx context.Context, id int, at time.Time) error {
	query := `UPDATE users SET email_verified_at = COALESCE(email_verified_at, $1) WHERE id = $2`
	return r.execOne(ctx, logger.Log.WithFields(logrus.Fields{"user_id": id, "verified_at": at}), query, at, id)
}

func (r *UserRepository) execOne(ctx context.Context, log *logrus.Entry, query string, args ...any) error {
	log.Info("Executing user update query")

	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		log.WithError(err).Error("Failed to execute user update query")
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
