// file: repository/verification_token_repository.go

package repository

import (
	"context"
	"database/sql"
	"errors"
	"go-auth-api/model"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// IVerificationTokenRepository defines the contract for single-use token database operations.
type IVerificationTokenRepository interface {
	TokenStore[model.VerificationToken]
	FindUnusedByUserIDAndType(ctx context.Context, userID int, tokenType model.VerificationTokenType) ([]*model.VerificationToken, error)
	// MarkUsed flips an unused token to used and reports whether this call did it.
	MarkUsed(ctx context.Context, id string, at time.Time) (bool, error)
	InvalidateUnused(ctx context.Context, userID int, tokenType model.VerificationTokenType, at time.Time) (int64, error)
	DeleteUsedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// VerificationTokenRepository implements IVerificationTokenRepository.
type VerificationTokenRepository struct {
	tokenTable
}

// NewVerificationTokenRepository creates a new VerificationTokenRepository.
func NewVerificationTokenRepository(db *sql.DB) *VerificationTokenRepository {
	return &VerificationTokenRepository{tokenTable{db: db, name: "verification_tokens"}}
}

const verificationTokenColumns = `id, user_id, token_hash, type, used, used_at, created_at, expires_at`

func scanVerificationToken(row interface{ Scan(...any) error }) (*model.VerificationToken, error) {
	t := &model.VerificationToken{}
	var usedAt sql.NullTime
	if err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.Type, &t.Used, &usedAt, &t.CreatedAt, &t.ExpiresAt); err != nil {
		return nil, err
	}
	if usedAt.Valid {
		t.UsedAt = &usedAt.Time
	}
	return t, nil
}

// Create inserts a new verification token record.
func (r *VerificationTokenRepository) Create(ctx context.Context, token *model.VerificationToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}

	log := r.log(logrus.Fields{
		"token_id":   token.ID,
		"user_id":    token.UserID,
		"type":       token.Type,
		"expires_at": token.ExpiresAt,
	})
	log.Info("Executing query to create a new verification token")

	query := `INSERT INTO verification_tokens (id, user_id, token_hash, type, used, created_at, expires_at)
		VALUES ($1, $2, $3, $4, false, $5, $6)`
	_, err := r.db.ExecContext(ctx, query, token.ID, token.UserID, token.TokenHash, token.Type, token.CreatedAt, token.ExpiresAt)
	if err != nil {
		log.WithError(err).Error("Failed to execute create verification token query")
		return err
	}
	return nil
}

// FindByID retrieves a verification token by id.
func (r *VerificationTokenRepository) FindByID(ctx context.Context, id string) (*model.VerificationToken, error) {
	log := r.log(logrus.Fields{"token_id": id})
	log.Info("Executing query to get verification token by id")

	query := `SELECT ` + verificationTokenColumns + ` FROM verification_tokens WHERE id = $1`
	token, err := scanVerificationToken(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		log.WithError(err).Error("Failed to execute get verification token by id query")
		return nil, err
	}
	return token, nil
}

// FindByUserID retrieves every verification token of a user, newest first.
func (r *VerificationTokenRepository) FindByUserID(ctx context.Context, userID int) ([]*model.VerificationToken, error) {
	query := `SELECT ` + verificationTokenColumns + ` FROM verification_tokens WHERE user_id = $1 ORDER BY created_at DESC`
	return r.query(ctx, r.log(logrus.Fields{"user_id": userID}), query, userID)
}

// FindUnusedByUserIDAndType retrieves the unused tokens of one type for a user, newest first.
func (r *VerificationTokenRepository) FindUnusedByUserIDAndType(ctx context.Context, userID int, tokenType model.VerificationTokenType) ([]*model.VerificationToken, error) {
	query := `SELECT ` + verificationTokenColumns + ` FROM verification_tokens
		WHERE user_id = $1 AND type = $2 AND used = false ORDER BY created_at DESC`
	return r.query(ctx, r.log(logrus.Fields{"user_id": userID, "type": tokenType}), query, userID, tokenType)
}

func (r *VerificationTokenRepository) query(ctx context.Context, log *logrus.Entry, query string, args ...any) ([]*model.VerificationToken, error) {
	log.Info("Executing query to list verification tokens")

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.WithError(err).Error("Failed to execute query for verification tokens")
		return nil, err
	}
	defer rows.Close()

	var tokens []*model.VerificationToken
	for rows.Next() {
		t, err := scanVerificationToken(rows)
		if err != nil {
			log.WithError(err).Error("Failed to scan verification token row")
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// MarkUsed consumes the token. Only an unused row is updated, so concurrent
// consumers race on the row and exactly one of them wins.
func (r *VerificationTokenRepository) MarkUsed(ctx context.Context, id string, at time.Time) (bool, error) {
	log := r.log(logrus.Fields{"token_id": id})
	log.Info("Executing query to mark verification token as used")

	query := `UPDATE verification_tokens SET used = true, used_at = $1 WHERE id = $2 AND used = false`
	n, err := r.execCount(ctx, log, query, at, id)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// InvalidateUnused marks every unused token of a type for a user as used.
func (r *VerificationTokenRepository) InvalidateUnused(ctx context.Context, userID int, tokenType model.VerificationTokenType, at time.Time) (int64, error) {
	log := r.log(logrus.Fields{"user_id": userID, "type": tokenType})
	log.Info("Executing query to invalidate unused verification tokens")

	query := `UPDATE verification_tokens SET used = true, used_at = $1 WHERE user_id = $2 AND type = $3 AND used = false`
	return r.execCount(ctx, log, query, at, userID, tokenType)
}

// DeleteUsedBefore removes used tokens whose used_at is older than cutoff.
func (r *VerificationTokenRepository) DeleteUsedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	log := r.log(logrus.Fields{"cutoff": cutoff})
	log.Info("Executing query to delete used verification tokens")

	query := `DELETE FROM verification_tokens WHERE used = true AND used_at < $1`
	return r.execCount(ctx, log, query, cutoff)
}
