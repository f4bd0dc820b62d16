package model

import "github.com/golang-jwt/jwt/v5"

// AccessClaims is the payload of a signed access token.
type AccessClaims struct {
	UserID       int `json:"user_id"`
	TokenVersion int `json:"token_version"`
	jwt.RegisteredClaims
}
