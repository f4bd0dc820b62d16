package service

import (
	"errors"
	"fmt"
	"go-auth-api/logger"
	"go-auth-api/model"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CredentialCodec signs and verifies self-contained access tokens.
type CredentialCodec interface {
	Issue(userID, tokenVersion int, ttl time.Duration) (string, error)
	Verify(signed string) (*model.AccessClaims, error)
}

// JWTCodec implements CredentialCodec with HMAC-signed JWTs.
type JWTCodec struct {
	key    []byte
	method jwt.SigningMethod
	issuer string
	now    func() time.Time
}

// NewJWTCodec builds a codec for one of HS256, HS384 or HS512.
func NewJWTCodec(secret, algorithm, issuer string) (*JWTCodec, error) {
	if secret == "" {
		return nil, errors.New("jwt secret must not be empty")
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported jwt signing algorithm %q", algorithm)
	}
	return &JWTCodec{key: []byte(secret), method: method, issuer: issuer, now: time.Now}, nil
}

func (c *JWTCodec) Issue(userID, tokenVersion int, ttl time.Duration) (string, error) {
	now := c.now()
	claims := &model.AccessClaims{
		UserID:       userID,
		TokenVersion: tokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.Itoa(userID),
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	tokenString, err := jwt.NewWithClaims(c.method, claims).SignedString(c.key)
	if err != nil {
		// Signing only fails on a misconfigured key.
		logger.Log.WithError(err).WithField("user_id", userID).Error("Failed to sign JWT")
		return "", internalError("sign access token", err)
	}
	return tokenString, nil
}

func (c *JWTCodec) Verify(signed string) (*model.AccessClaims, error) {
	claims := &model.AccessClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	token, err := jwt.ParseWithClaims(signed, claims, func(*jwt.Token) (interface{}, error) {
		return c.key, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrCredentialExpired
		}
		return nil, ErrInvalidCredential
	}
	if !token.Valid || claims.UserID <= 0 || claims.Subject != strconv.Itoa(claims.UserID) {
		return nil, ErrInvalidCredential
	}
	return claims, nil
}
