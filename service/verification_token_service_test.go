// file: service/verification_token_service_test.go

package service

import (
	"context"
	"go-auth-api/metrics"
	"go-auth-api/model"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVerificationService() (*VerificationTokenService, *fakeVerificationRepo, *testClock) {
	clock := newTestClock()
	repo := newFakeVerificationRepo()
	svc := NewVerificationTokenService(repo, testHasher(), DefaultVerificationTTLs)
	svc.now = clock.Now
	return svc, repo, clock
}

func TestVerificationTokenService_IssueAndConsumeOnce(t *testing.T) {
	svc, repo, _ := newTestVerificationService()
	ctx := context.Background()

	plain, err := svc.IssueEmailVerification(ctx, 7)
	require.NoError(t, err)

	stored, err := repo.FindByUserID(ctx, 7)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.NotEqual(t, plain, stored[0].TokenHash)
	assert.Equal(t, model.VerificationTypeEmail, stored[0].Type)

	ownerID, err := svc.ConsumeEmailVerification(ctx, 7, plain)
	require.NoError(t, err)
	assert.Equal(t, 7, ownerID)

	_, err = svc.ConsumeEmailVerification(ctx, 7, plain)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	stored, err = repo.FindByUserID(ctx, 7)
	require.NoError(t, err)
	assert.True(t, stored[0].Used)
	assert.NotNil(t, stored[0].UsedAt)
}

func TestVerificationTokenService_IssueInvalidatesPreviousOfSameType(t *testing.T) {
	svc, _, _ := newTestVerificationService()
	ctx := context.Background()

	stale, err := svc.IssuePasswordReset(ctx, 1)
	require.NoError(t, err)
	otherType, err := svc.IssueEmailVerification(ctx, 1)
	require.NoError(t, err)
	fresh, err := svc.IssuePasswordReset(ctx, 1)
	require.NoError(t, err)

	_, err = svc.ConsumePasswordReset(ctx, 1, stale)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	_, err = svc.ConsumePasswordReset(ctx, 1, fresh)
	assert.NoError(t, err)

	_, err = svc.ConsumeEmailVerification(ctx, 1, otherType)
	assert.NoError(t, err, "a token of another type survives")
}

func TestVerificationTokenService_ExpiredThenFreshIssue(t *testing.T) {
	svc, _, clock := newTestVerificationService()
	ctx := context.Background()

	expired, err := svc.IssuePasswordReset(ctx, 3)
	require.NoError(t, err)

	clock.Advance(DefaultVerificationTTLs.PasswordReset + time.Second)
	_, err = svc.ConsumePasswordReset(ctx, 3, expired)
	assert.ErrorIs(t, err, ErrTokenExpired)

	fresh, err := svc.IssuePasswordReset(ctx, 3)
	require.NoError(t, err)
	ownerID, err := svc.ConsumePasswordReset(ctx, 3, fresh)
	require.NoError(t, err)
	assert.Equal(t, 3, ownerID)
}

func TestVerificationTokenService_TypeAndOwnerMustMatch(t *testing.T) {
	svc, _, _ := newTestVerificationService()
	ctx := context.Background()

	plain, err := svc.IssueEmailVerification(ctx, 1)
	require.NoError(t, err)

	_, err = svc.ConsumePasswordReset(ctx, 1, plain)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	_, err = svc.ConsumeEmailVerification(ctx, 2, plain)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	_, err = svc.ValidateAndConsume(ctx, 1, plain, "SOMETHING_ELSE")
	assert.ErrorIs(t, err, ErrInvalidTokenType)

	_, err = svc.Issue(ctx, 1, "SOMETHING_ELSE", time.Hour)
	assert.ErrorIs(t, err, ErrInvalidTokenType)

	_, err = svc.ConsumeEmailVerification(ctx, 1, plain)
	assert.NoError(t, err, "failed attempts do not consume the token")
}

func TestVerificationTokenService_ConcurrentConsumeHasOneWinner(t *testing.T) {
	svc, _, _ := newTestVerificationService()
	ctx := context.Background()

	plain, err := svc.IssueEmailVerification(ctx, 1)
	require.NoError(t, err)

	const callers = 8
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.ConsumeEmailVerification(ctx, 1, plain)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, ErrTokenNotFound)
	}
	assert.Equal(t, 1, wins)
}

func TestVerificationTokenService_Sweeps(t *testing.T) {
	svc, repo, clock := newTestVerificationService()
	ctx := context.Background()

	used, err := svc.IssueEmailVerification(ctx, 1)
	require.NoError(t, err)
	_, err = svc.ConsumeEmailVerification(ctx, 1, used)
	require.NoError(t, err)

	_, err = svc.IssuePasswordReset(ctx, 2)
	require.NoError(t, err)

	// The reset token expires, the consumed email token does not.
	clock.Advance(time.Hour)
	n, err := svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = svc.SweepUsed(ctx, 2*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n, "still inside the retention window")

	clock.Advance(2 * time.Hour)
	n, err = svc.SweepUsed(ctx, 2*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	count, err := repo.CountByUserID(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestVerificationTokenService_Metrics(t *testing.T) {
	svc, _, clock := newTestVerificationService()
	ctx := context.Background()
	resetType := string(model.VerificationTypePasswordReset)

	issued := testutil.ToFloat64(metrics.VerificationTokens.WithLabelValues(resetType, "issued"))
	expired := testutil.ToFloat64(metrics.VerificationTokens.WithLabelValues(resetType, "expired"))

	plain, err := svc.IssuePasswordReset(ctx, 9)
	require.NoError(t, err)
	clock.Advance(time.Hour)
	_, err = svc.ConsumePasswordReset(ctx, 9, plain)
	require.ErrorIs(t, err, ErrTokenExpired)

	assert.Equal(t, issued+1, testutil.ToFloat64(metrics.VerificationTokens.WithLabelValues(resetType, "issued")))
	assert.Equal(t, expired+1, testutil.ToFloat64(metrics.VerificationTokens.WithLabelValues(resetType, "expired")))
}
