package handler

import (
	"errors"
	"go-auth-api/common"
	"go-auth-api/service"
	"net/http"
)

func ErrorHandlingMiddleware(next func(http.ResponseWriter, *http.Request) *common.AppError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := next(w, r); err != nil {
			err.Send(w)
		}
	}
}

// serviceError maps the service error taxonomy onto HTTP responses.
// ErrInternal is checked first so a wrapped cause can never leak a 4xx.
func serviceError(err error) *common.AppError {
	switch {
	case errors.Is(err, service.ErrInternal):
		return common.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	case errors.Is(err, service.ErrInvalidCredentials):
		return common.NewAppError(http.StatusUnauthorized, "Invalid credentials", nil)
	case errors.Is(err, service.ErrCredentialExpired):
		return common.NewAppError(http.StatusUnauthorized, "Access token expired", nil)
	case errors.Is(err, service.ErrInvalidCredential):
		return common.NewAppError(http.StatusUnauthorized, "Invalid access token", nil)
	case errors.Is(err, service.ErrTokenRevoked):
		return common.NewAppError(http.StatusUnauthorized, "Access token revoked", nil)
	case errors.Is(err, service.ErrTokenExpired):
		return common.NewAppError(http.StatusUnauthorized, "Token expired", nil)
	case errors.Is(err, service.ErrTokenNotFound):
		return common.NewAppError(http.StatusUnauthorized, "Invalid or already used token", nil)
	case errors.Is(err, service.ErrUserNotFound):
		return common.NewAppError(http.StatusNotFound, "User not found", nil)
	case errors.Is(err, service.ErrEmailAlreadyExists):
		return common.NewAppError(http.StatusConflict, "Email already registered", nil)
	case errors.Is(err, service.ErrEmailAlreadyVerified):
		return common.NewAppError(http.StatusConflict, "Email already verified", nil)
	case errors.Is(err, service.ErrPasswordTooLong):
		return common.NewAppError(http.StatusBadRequest, "Password must not exceed 72 bytes", nil)
	case errors.Is(err, service.ErrInvalidTokenType):
		return common.NewAppError(http.StatusBadRequest, "Invalid token type", nil)
	default:
		return common.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}
}
