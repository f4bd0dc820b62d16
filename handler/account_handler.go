package handler

import (
	"context"
	"go-auth-api/common"
	"go-auth-api/logger"
	"go-auth-api/model"
	"net/http"
)

// AccountFlows drives email verification and password reset.
type AccountFlows interface {
	RequestEmailVerification(ctx context.Context, userID int) error
	ConfirmEmailVerification(ctx context.Context, userID int, token string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, userID int, token, newPassword string) error
}

type AccountHandler struct {
	service AccountFlows
}

func NewAccountHandler(service AccountFlows) *AccountHandler {
	return &AccountHandler{service: service}
}

// RequestEmailVerification godoc
// @Summary      Send an email verification link
// @Tags         account
// @Produce      json
// @Security     BearerAuth
// @Success      202  {object}  model.MessageResponse
// @Failure      401  {object}  common.AppError
// @Failure      409  {object}  common.AppError
// @Router       /auth/verify-email/request [post]
func (h *AccountHandler) RequestEmailVerification(w http.ResponseWriter, r *http.Request) *common.AppError {
	user, appErr := currentUser(r)
	if appErr != nil {
		return appErr
	}

	if err := h.service.RequestEmailVerification(r.Context(), user.ID); err != nil {
		return serviceError(err)
	}

	common.WriteJSON(w, http.StatusAccepted, model.MessageResponse{Message: "Verification email sent"})
	return nil
}

// ConfirmEmailVerification godoc
// @Summary      Confirm an email address
// @Tags         account
// @Accept       json
// @Produce      json
// @Param        token  body      model.VerifyEmailConfirmRequest  true  "Verification token"
// @Success      200    {object}  model.MessageResponse
// @Failure      400    {object}  common.AppError
// @Failure      401    {object}  common.AppError
// @Router       /auth/verify-email/confirm [post]
func (h *AccountHandler) ConfirmEmailVerification(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.VerifyEmailConfirmRequest
	if appErr := common.DecodeAndValidate(w, r, &req); appErr != nil {
		return appErr
	}

	if err := h.service.ConfirmEmailVerification(r.Context(), req.UserID, req.Token); err != nil {
		return serviceError(err)
	}

	logger.Log.WithField("user_id", req.UserID).Info("Email verified")
	common.WriteJSON(w, http.StatusOK, model.MessageResponse{Message: "Email verified"})
	return nil
}

// RequestPasswordReset godoc
// @Summary      Request a password reset
// @Description  Always answers 202 so the endpoint does not reveal registered emails
// @Tags         account
// @Accept       json
// @Produce      json
// @Param        email  body      model.PasswordResetRequest  true  "Account email"
// @Success      202    {object}  model.MessageResponse
// @Failure      400    {object}  common.AppError
// @Router       /auth/password-reset/request [post]
func (h *AccountHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.PasswordResetRequest
	if appErr := common.DecodeAndValidate(w, r, &req); appErr != nil {
		return appErr
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		return serviceError(err)
	}

	common.WriteJSON(w, http.StatusAccepted, model.MessageResponse{Message: "If the account exists, a reset email has been sent"})
	return nil
}

// ConfirmPasswordReset godoc
// @Summary      Reset a password
// @Description  Consumes a reset token, sets the new password and ends every session
// @Tags         account
// @Accept       json
// @Produce      json
// @Param        reset  body      model.PasswordResetConfirmRequest  true  "Reset token and new password"
// @Success      200    {object}  model.MessageResponse
// @Failure      400    {object}  common.AppError
// @Failure      401    {object}  common.AppError
// @Router       /auth/password-reset/confirm [post]
func (h *AccountHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.PasswordResetConfirmRequest
	if appErr := common.DecodeAndValidate(w, r, &req); appErr != nil {
		return appErr
	}

	if err := h.service.ResetPassword(r.Context(), req.UserID, req.Token, req.NewPassword); err != nil {
		return serviceError(err)
	}

	common.WriteJSON(w, http.StatusOK, model.MessageResponse{Message: "Password updated"})
	return nil
}
