// file: repository/token_repository.go

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

// IRefreshTokenRepository defines the contract for refresh token database operations.
type IRefreshTokenRepository interface {
	TokenStore[model.RefreshToken]
	UpdateLastUsedAt(ctx context.Context, id string, at time.Time) error
	DeleteByUserIDAndDeviceID(ctx context.Context, userID int, deviceID string) (int64, error)
}

// RefreshTokenRepository implements IRefreshTokenRepository.
type RefreshTokenRepository struct {
	tokenTable
}

// NewRefreshTokenRepository creates a new RefreshTokenRepository.
func NewRefreshTokenRepository(db *sql.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{tokenTable{db: db, name: "refresh_tokens"}}
}

const refreshTokenColumns = `id, user_id, token_hash, COALESCE(device_id, ''), COALESCE(device_info, ''), COALESCE(ip_address, ''), created_at, last_used_at, expires_at`

func scanRefreshToken(row interface{ Scan(...any) error }) (*model.RefreshToken, error) {
	t := &model.RefreshToken{}
	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.DeviceID, &t.DeviceInfo, &t.IPAddress, &t.CreatedAt, &t.LastUsedAt, &t.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Create inserts a new refresh token record into the database.
func (r *RefreshTokenRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}
	if token.LastUsedAt.IsZero() {
		token.LastUsedAt = token.CreatedAt
	}

	log := r.log(logrus.Fields{
		"token_id":   token.ID,
		"user_id":    token.UserID,
		"device_id":  token.DeviceID,
		"expires_at": token.ExpiresAt,
	})
	log.Info("Executing query to create a new refresh token")

	query := `INSERT INTO refresh_tokens (id, user_id, token_hash, device_id, device_info, ip_address, created_at, last_used_at, expires_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, query, token.ID, token.UserID, token.TokenHash,
		token.DeviceID, token.DeviceInfo, token.IPAddress, token.CreatedAt, token.LastUsedAt, token.ExpiresAt)
	if err != nil {
		log.WithError(err).Error("Failed to execute create refresh token query")
		return err
	}
	return nil
}

// FindByID retrieves a refresh token by its id.
func (r *RefreshTokenRepository) FindByID(ctx context.Context, id string) (*model.RefreshToken, error) {
	log := r.log(logrus.Fields{"token_id": id})
	log.Info("Executing query to get refresh token by id")

	query := `SELECT ` + refreshTokenColumns + ` FROM refresh_tokens WHERE id = $1`
	token, err := scanRefreshToken(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		log.WithError(err).Error("Failed to execute get refresh token by id query")
		return nil, err
	}
	return token, nil
}

// FindByUserID retrieves all refresh tokens of a user, most recently used first.
func (r *RefreshTokenRepository) FindByUserID(ctx context.Context, userID int) ([]*model.RefreshToken, error) {
	log := r.log(logrus.Fields{"user_id": userID})
	log.Info("Executing query to get refresh tokens by user ID")

	query := `SELECT ` + refreshTokenColumns + ` FROM refresh_tokens WHERE user_id = $1 ORDER BY last_used_at DESC, created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		log.WithError(err).Error("Failed to execute query for refresh tokens by user ID")
		return nil, err
	}
	defer rows.Close()

	var tokens []*model.RefreshToken
	for rows.Next() {
		t, err := scanRefreshToken(rows)
		if err != nil {
			log.WithError(err).Error("Failed to scan refresh token row")
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// UpdateLastUsedAt records a successful validation of the token.
func (r *RefreshTokenRepository) UpdateLastUsedAt(ctx context.Context, id string, at time.Time) error {
	log := r.log(logrus.Fields{"token_id": id})
	log.Info("Executing query to update refresh token last used time")

	query := `UPDATE refresh_tokens SET last_used_at = $1 WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		log.WithError(err).Error("Failed to execute update last used query")
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

// DeleteByUserIDAndDeviceID removes the token(s) bound to one device of a user.
func (r *RefreshTokenRepository) DeleteByUserIDAndDeviceID(ctx context.Context, userID int, deviceID string) (int64, error) {
	log := r.log(logrus.Fields{"user_id": userID, "device_id": deviceID})
	log.Info("Executing query to delete refresh tokens for a device")

	query := `DELETE FROM refresh_tokens WHERE user_id = $1 AND device_id = $2`
	return r.execCount(ctx, log, query, userID, deviceID)
}
