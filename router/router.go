package router

import (
	"go-auth-api/handler"
	"go-auth-api/metrics"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "go-auth-api/docs"
)

func NewRouter(userHandler *handler.UserHandler, authHandler *handler.AuthHandler, accountHandler *handler.AccountHandler, verifier handler.AccessVerifier) http.Handler {
	mux := http.NewServeMux()
	protected := handler.AuthMiddleware(verifier)

	mux.HandleFunc("GET /health", handler.HealthCheck)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.Handle("GET /swagger/", httpSwagger.WrapHandler)

	mux.Handle("POST /auth/register", handler.ErrorHandlingMiddleware(userHandler.Register))
	mux.Handle("POST /auth/login", handler.ErrorHandlingMiddleware(authHandler.Login))
	mux.Handle("POST /auth/refresh", handler.ErrorHandlingMiddleware(authHandler.Refresh))
	mux.Handle("POST /auth/logout", handler.ErrorHandlingMiddleware(authHandler.Logout))
	mux.Handle("POST /auth/verify-email/confirm", handler.ErrorHandlingMiddleware(accountHandler.ConfirmEmailVerification))
	mux.Handle("POST /auth/password-reset/request", handler.ErrorHandlingMiddleware(accountHandler.RequestPasswordReset))
	mux.Handle("POST /auth/password-reset/confirm", handler.ErrorHandlingMiddleware(accountHandler.ConfirmPasswordReset))

	mux.Handle("GET /auth/me", protected(handler.ErrorHandlingMiddleware(userHandler.Me)))
	mux.Handle("GET /auth/devices", protected(handler.ErrorHandlingMiddleware(authHandler.Devices)))
	mux.Handle("POST /auth/logout/device", protected(handler.ErrorHandlingMiddleware(authHandler.LogoutDevice)))
	mux.Handle("POST /auth/revoke", protected(handler.ErrorHandlingMiddleware(authHandler.RevokeAll)))
	mux.Handle("POST /auth/verify-email/request", protected(handler.ErrorHandlingMiddleware(accountHandler.RequestEmailVerification)))

	return mux
}
