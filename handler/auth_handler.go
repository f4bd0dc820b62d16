// file: handler/auth_handler.go

package handler

import (
	"context"
	"go-auth-api/common"
	"go-auth-api/logger"
	"go-auth-api/model"
	"net"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

// Authenticator is the session surface the auth endpoints need.
type Authenticator interface {
	AccessVerifier
	Login(ctx context.Context, user *model.User, device *model.DeviceInfo) (*model.TokenPair, error)
	Refresh(ctx context.Context, userID int, oldRefresh string, device *model.DeviceInfo) (*model.TokenPair, error)
	RevokeAllSessions(ctx context.Context, userID int) (int64, error)
	Logout(ctx context.Context, userID int, refreshPlain string) error
	LogoutDevice(ctx context.Context, userID int, deviceID string) (int64, error)
	Devices(ctx context.Context, userID int) ([]model.Device, error)
}

// CredentialChecker authenticates an email and password pair.
type CredentialChecker interface {
	VerifyCredentials(ctx context.Context, email, password string) (*model.User, error)
}

type AuthHandler struct {
	auth  Authenticator
	users CredentialChecker
}

func NewAuthHandler(auth Authenticator, users CredentialChecker) *AuthHandler {
	return &AuthHandler{auth: auth, users: users}
}

// Login godoc
// @Summary      Log in
// @Description  Exchanges email and password for an access token and a refresh token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        credentials  body      model.LoginRequest  true  "Credentials and optional device"
// @Success      200          {object}  model.TokenResponse
// @Failure      400          {object}  common.AppError
// @Failure      401          {object}  common.AppError
// @Router       /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.LoginRequest
	if appErr := common.DecodeAndValidate(w, r, &req); appErr != nil {
		return appErr
	}

	user, err := h.users.VerifyCredentials(r.Context(), req.Email, req.Password)
	if err != nil {
		return serviceError(err)
	}

	pair, err := h.auth.Login(r.Context(), user, deviceFromRequest(r, req.DeviceID, req.DeviceInfo))
	if err != nil {
		return serviceError(err)
	}

	common.WriteJSON(w, http.StatusOK, tokenResponse(pair))
	return nil
}

// Refresh godoc
// @Summary      Refresh tokens
// @Description  Rotates a refresh token. Every other session of the user is ended; presenting an already rotated token fails.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        refresh  body      model.RefreshRequest  true  "Refresh token"
// @Success      200      {object}  model.TokenResponse
// @Failure      400      {object}  common.AppError
// @Failure      401      {object}  common.AppError
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.RefreshRequest
	if appErr := common.DecodeAndValidate(w, r, &req); appErr != nil {
		return appErr
	}

	pair, err := h.auth.Refresh(r.Context(), req.UserID, req.RefreshToken, deviceFromRequest(r, req.DeviceID, req.DeviceInfo))
	if err != nil {
		return serviceError(err)
	}

	common.WriteJSON(w, http.StatusOK, tokenResponse(pair))
	return nil
}

// Logout godoc
// @Summary      Log out
// @Description  Revokes the session identified by a refresh token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        refresh  body      model.LogoutRequest  true  "Refresh token to revoke"
// @Success      200      {object}  model.MessageResponse
// @Failure      401      {object}  common.AppError
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.LogoutRequest
	if appErr := common.DecodeAndValidate(w, r, &req); appErr != nil {
		return appErr
	}

	if err := h.auth.Logout(r.Context(), req.UserID, req.RefreshToken); err != nil {
		return serviceError(err)
	}

	common.WriteJSON(w, http.StatusOK, model.MessageResponse{Message: "Logged out"})
	return nil
}

// LogoutDevice godoc
// @Summary      Log out a device
// @Description  Revokes the session bound to one of the caller's devices
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        device  body      model.LogoutDeviceRequest  true  "Device to log out"
// @Success      200     {object}  model.RevokeResponse
// @Failure      401     {object}  common.AppError
// @Router       /auth/logout/device [post]
func (h *AuthHandler) LogoutDevice(w http.ResponseWriter, r *http.Request) *common.AppError {
	user, appErr := currentUser(r)
	if appErr != nil {
		return appErr
	}
	var req model.LogoutDeviceRequest
	if appErr := common.DecodeAndValidate(w, r, &req); appErr != nil {
		return appErr
	}

	n, err := h.auth.LogoutDevice(r.Context(), user.ID, req.DeviceID)
	if err != nil {
		return serviceError(err)
	}

	common.WriteJSON(w, http.StatusOK, model.RevokeResponse{Message: "Device logged out", Revoked: n})
	return nil
}

// RevokeAll godoc
// @Summary      Revoke all sessions
// @Description  Invalidates every access token and refresh token of the caller
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  model.RevokeResponse
// @Failure      401  {object}  common.AppError
// @Router       /auth/revoke [post]
func (h *AuthHandler) RevokeAll(w http.ResponseWriter, r *http.Request) *common.AppError {
	user, appErr := currentUser(r)
	if appErr != nil {
		return appErr
	}

	n, err := h.auth.RevokeAllSessions(r.Context(), user.ID)
	if err != nil {
		return serviceError(err)
	}

	logger.Log.WithFields(logrus.Fields{
		"user_id": user.ID,
		"revoked": n,
	}).Info("Revoke all sessions request completed")

	common.WriteJSON(w, http.StatusOK, model.RevokeResponse{Message: "All sessions revoked", Revoked: n})
	return nil
}

// Devices godoc
// @Summary      List sessions
// @Description  Lists the caller's active sessions, most recently used first
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   model.Device
// @Failure      401  {object}  common.AppError
// @Router       /auth/devices [get]
func (h *AuthHandler) Devices(w http.ResponseWriter, r *http.Request) *common.AppError {
	user, appErr := currentUser(r)
	if appErr != nil {
		return appErr
	}

	devices, err := h.auth.Devices(r.Context(), user.ID)
	if err != nil {
		return serviceError(err)
	}

	common.WriteJSON(w, http.StatusOK, devices)
	return nil
}

func tokenResponse(pair *model.TokenPair) model.TokenResponse {
	return model.TokenResponse{
		UserID:           pair.UserID,
		AccessToken:      pair.AccessToken,
		AccessExpiresIn:  int64(pair.AccessTTL.Seconds()),
		RefreshToken:     pair.RefreshToken,
		RefreshExpiresIn: int64(pair.RefreshTTL.Seconds()),
		TokenType:        "Bearer",
	}
}

// maxDeviceInfo matches refresh_tokens.device_info, which counts characters.
const maxDeviceInfo = 512

// deviceFromRequest falls back to the User-Agent when the client sends no description.
func deviceFromRequest(r *http.Request, deviceID, deviceInfo string) *model.DeviceInfo {
	if deviceInfo == "" {
		deviceInfo = strings.ToValidUTF8(r.UserAgent(), "")
		if utf8.RuneCountInString(deviceInfo) > maxDeviceInfo {
			deviceInfo = string([]rune(deviceInfo)[:maxDeviceInfo])
		}
	}
	return &model.DeviceInfo{
		DeviceID:   strings.TrimSpace(deviceID),
		DeviceInfo: deviceInfo,
		IPAddress:  clientIP(r),
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
