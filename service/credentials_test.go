package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T, clock *testClock) *JWTCodec {
	t.Helper()
	codec, err := NewJWTCodec(testSecret, "HS256", "test")
	require.NoError(t, err)
	codec.now = clock.Now
	return codec
}

func TestJWTCodec_IssueAndVerify(t *testing.T) {
	clock := newTestClock()
	codec := newTestCodec(t, clock)

	signed, err := codec.Issue(42, 3, time.Hour)
	require.NoError(t, err)

	claims, err := codec.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, 42, claims.UserID)
	assert.Equal(t, 3, claims.TokenVersion)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "test", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, clock.Now().Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
}

func TestJWTCodec_UniqueTokenIDs(t *testing.T) {
	codec := newTestCodec(t, newTestClock())

	a, err := codec.Issue(1, 0, time.Hour)
	require.NoError(t, err)
	b, err := codec.Issue(1, 0, time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestJWTCodec_Expired(t *testing.T) {
	clock := newTestClock()
	codec := newTestCodec(t, clock)

	signed, err := codec.Issue(1, 0, time.Minute)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	_, err = codec.Verify(signed)
	assert.ErrorIs(t, err, ErrCredentialExpired)
}

func TestJWTCodec_Rejects(t *testing.T) {
	clock := newTestClock()
	codec := newTestCodec(t, clock)

	valid, err := codec.Issue(1, 0, time.Hour)
	require.NoError(t, err)

	otherKey, err := NewJWTCodec("ffffffffffffffffffffffffffffffff", "HS256", "test")
	require.NoError(t, err)
	otherKey.now = clock.Now
	wrongKey, err := otherKey.Issue(1, 0, time.Hour)
	require.NoError(t, err)

	otherAlg, err := NewJWTCodec(testSecret, "HS512", "test")
	require.NoError(t, err)
	otherAlg.now = clock.Now
	wrongAlg, err := otherAlg.Issue(1, 0, time.Hour)
	require.NoError(t, err)

	otherIssuer, err := NewJWTCodec(testSecret, "HS256", "someone-else")
	require.NoError(t, err)
	otherIssuer.now = clock.Now
	wrongIssuer, err := otherIssuer.Issue(1, 0, time.Hour)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"user_id": 1,
		"sub":     "1",
		"exp":     clock.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		signed string
	}{
		{"tampered payload", valid[:len(valid)-4] + "abcd"},
		{"wrong key", wrongKey},
		{"wrong algorithm", wrongAlg},
		{"wrong issuer", wrongIssuer},
		{"none algorithm", unsigned},
		{"garbage", "not.a.jwt"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Verify(tt.signed)
			assert.ErrorIs(t, err, ErrInvalidCredential)
		})
	}
}

func TestNewJWTCodec_Validation(t *testing.T) {
	_, err := NewJWTCodec("", "HS256", "")
	assert.Error(t, err)

	_, err = NewJWTCodec(testSecret, "RS256", "")
	assert.Error(t, err)

	_, err = NewJWTCodec(testSecret, "none", "")
	assert.Error(t, err)

	for _, alg := range []string{"HS256", "HS384", "HS512"} {
		_, err := NewJWTCodec(testSecret, alg, "")
		assert.NoError(t, err, alg)
	}
}
