package handler

import (
	"context"
	"go-auth-api/common"
	"go-auth-api/logger"
	"go-auth-api/model"
	"net/http"
)

// UserRegistrar creates new users.
type UserRegistrar interface {
	Register(ctx context.Context, name, email, password string) (*model.User, error)
}

type UserHandler struct {
	users UserRegistrar
}

func NewUserHandler(users UserRegistrar) *UserHandler {
	return &UserHandler{users: users}
}

// Register godoc
// @Summary      Register a new user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        user  body      model.RegisterRequest  true  "New user"
// @Success      201   {object}  model.User
// @Failure      400   {object}  common.AppError
// @Failure      409   {object}  common.AppError
// @Router       /auth/register [post]
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.RegisterRequest
	if appErr := common.DecodeAndValidate(w, r, &req); appErr != nil {
		return appErr
	}

	user, err := h.users.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		return serviceError(err)
	}

	logger.Log.WithField("user_id", user.ID).Info("Register request completed")
	common.WriteJSON(w, http.StatusCreated, user)
	return nil
}

// Me godoc
// @Summary      Current user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  model.User
// @Failure      401  {object}  common.AppError
// @Router       /auth/me [get]
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) *common.AppError {
	user, appErr := currentUser(r)
	if appErr != nil {
		return appErr
	}
	common.WriteJSON(w, http.StatusOK, user)
	return nil
}
