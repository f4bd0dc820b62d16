// file: service/sweeper.go

package service

import (
	"context"
	"errors"
	"go-auth-api/logger"
	"go-auth-api/metrics"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ILockClient is the subset of the redis client the sweep lock needs.
type ILockClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// Locker hands out a lease so that only one instance sweeps at a time.
type Locker interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// releaseScript deletes the key only while it still holds our owner value.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// RedisLocker is a single-key lease with an expiry, so a crashed holder
// cannot block sweeps forever.
type RedisLocker struct {
	client ILockClient
	key    string
	owner  string
	ttl    time.Duration
}

func NewRedisLocker(client ILockClient, key string, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, key: key, owner: uuid.NewString(), ttl: ttl}
}

func (l *RedisLocker) Acquire(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.owner, l.ttl).Result()
}

func (l *RedisLocker) Release(ctx context.Context) error {
	err := l.client.Eval(ctx, releaseScript, []string{l.key}, l.owner).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

// SweepResult counts the rows removed by one sweep.
type SweepResult struct {
	RefreshExpired      int64
	VerificationExpired int64
	VerificationUsed    int64
}

// Sweeper periodically deletes expired sessions and spent verification tokens.
type Sweeper struct {
	sessions      *RefreshTokenService
	verification  *VerificationTokenService
	locker        Locker
	interval      time.Duration
	usedRetention time.Duration
}

// NewSweeper creates a new Sweeper. A nil locker lets every instance sweep.
func NewSweeper(sessions *RefreshTokenService, verification *VerificationTokenService, locker Locker, interval, usedRetention time.Duration) *Sweeper {
	return &Sweeper{
		sessions:      sessions,
		verification:  verification,
		locker:        locker,
		interval:      interval,
		usedRetention: usedRetention,
	}
}

// RunOnce performs a single sweep. It returns a zero result without error when
// another instance holds the lock.
func (s *Sweeper) RunOnce(ctx context.Context) (SweepResult, error) {
	var res SweepResult

	if s.locker != nil {
		ok, err := s.locker.Acquire(ctx)
		if err != nil {
			return res, internalError("acquire sweep lock", err)
		}
		if !ok {
			logger.Log.Info("Sweep skipped, lock held by another instance")
			return res, nil
		}
		defer func() {
			if err := s.locker.Release(context.WithoutCancel(ctx)); err != nil {
				logger.Log.WithError(err).Error("Failed to release sweep lock")
			}
		}()
	}

	var err error
	if res.RefreshExpired, err = s.sessions.SweepExpired(ctx); err != nil {
		return res, err
	}
	metrics.TokensSwept.WithLabelValues("refresh_expired").Add(float64(res.RefreshExpired))

	if res.VerificationExpired, err = s.verification.SweepExpired(ctx); err != nil {
		return res, err
	}
	metrics.TokensSwept.WithLabelValues("verification_expired").Add(float64(res.VerificationExpired))

	if res.VerificationUsed, err = s.verification.SweepUsed(ctx, s.usedRetention); err != nil {
		return res, err
	}
	metrics.TokensSwept.WithLabelValues("verification_used").Add(float64(res.VerificationUsed))

	logger.Log.WithFields(logrus.Fields{
		"refresh_expired":      res.RefreshExpired,
		"verification_expired": res.VerificationExpired,
		"verification_used":    res.VerificationUsed,
	}).Info("Token sweep finished")
	return res, nil
}

// Run sweeps once per interval until ctx is cancelled. Failed sweeps are
// logged and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
				logger.Log.WithError(err).Error("Token sweep failed")
			}
		}
	}
}
