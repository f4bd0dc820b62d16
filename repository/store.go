// file: repository/store.go

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"go-auth-api/logger"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
)

// TokenStore is the persistence contract shared by refresh and verification tokens.
// Every operation is atomic at the single-row level only; callers must not assume
// atomicity across calls.
type TokenStore[T any] interface {
	Create(ctx context.Context, token *T) error
	FindByID(ctx context.Context, id string) (*T, error)
	FindByUserID(ctx context.Context, userID int) ([]*T, error)
	// DeleteByID reports whether a row was actually removed.
	DeleteByID(ctx context.Context, id string) (bool, error)
	DeleteByUserID(ctx context.Context, userID int) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	CountByUserID(ctx context.Context, userID int) (int, error)
}

// tokenTable implements the table-agnostic half of TokenStore.
type tokenTable struct {
	db   *sql.DB
	name string
}

func (t tokenTable) log(fields logrus.Fields) *logrus.Entry {
	fields["table"] = t.name
	return logger.Log.WithFields(fields)
}

func (t tokenTable) DeleteByID(ctx context.Context, id string) (bool, error) {
	log := t.log(logrus.Fields{"token_id": id})
	log.Info("Executing query to delete token by id")

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, t.name)
	res, err := t.db.ExecContext(ctx, query, id)
	if err != nil {
		log.WithError(err).Error("Failed to execute delete token query")
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (t tokenTable) DeleteByUserID(ctx context.Context, userID int) (int64, error) {
	log := t.log(logrus.Fields{"user_id": userID})
	log.Info("Executing query to delete all tokens for a user")

	query := fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1`, t.name)
	return t.execCount(ctx, log, query, userID)
}

func (t tokenTable) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	log := t.log(logrus.Fields{"before": now})
	log.Info("Executing query to delete expired tokens")

	query := fmt.Sprintf(`DELETE FROM %s WHERE expires_at < $1`, t.name)
	return t.execCount(ctx, log, query, now)
}

func (t tokenTable) CountByUserID(ctx context.Context, userID int) (int, error) {
	log := t.log(logrus.Fields{"user_id": userID})
	log.Info("Executing query to count tokens for a user")

	var count int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE user_id = $1`, t.name)
	if err := t.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		log.WithError(err).Error("Failed to execute count tokens query")
		return 0, err
	}
	return count, nil
}

func (t tokenTable) execCount(ctx context.Context, log *logrus.Entry, query string, args ...any) (int64, error) {
	res, err := t.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.WithError(err).Error("Failed to execute token query")
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		log.WithError(err).Error("Failed to read affected rows")
		return 0, err
	}
	log.WithField("affected", n).Info("Token query completed")
	return n, nil
}
