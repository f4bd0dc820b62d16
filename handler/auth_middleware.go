package handler

import (
	"context"
	"go-auth-api/common"
	"go-auth-api/model"
	"net/http"
	"strings"
)

type contextKey string

const UserKey contextKey = "user"

// AccessVerifier resolves a bearer access token to its user.
type AccessVerifier interface {
	VerifyAccessCredential(ctx context.Context, signed string) (*model.User, error)
}

// AuthMiddleware rejects requests without a valid, unrevoked bearer token and
// puts the resolved user into the request context.
func AuthMiddleware(verifier AccessVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				common.NewAppError(http.StatusUnauthorized, "Authorization header is required", nil).Send(w)
				return
			}

			scheme, tokenString, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || tokenString == "" {
				common.NewAppError(http.StatusUnauthorized, "Invalid authorization header format", nil).Send(w)
				return
			}

			user, err := verifier.VerifyAccessCredential(r.Context(), tokenString)
			if err != nil {
				serviceError(err).Send(w)
				return
			}

			ctx := context.WithValue(r.Context(), UserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the user stored by AuthMiddleware.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(UserKey).(*model.User)
	return user, ok && user != nil
}

func currentUser(r *http.Request) (*model.User, *common.AppError) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		return nil, common.NewAppError(http.StatusUnauthorized, "Missing authenticated user", nil)
	}
	return user, nil
}
