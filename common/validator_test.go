package common

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type samplePayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func TestDecodeAndValidate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"email":"a@example.com","password":"password123"}`, ""},
		{"malformed json", `{"email":`, "Invalid request body"},
		{"unknown field", `{"email":"a@example.com","password":"password123","role":"admin"}`, "Invalid request body"},
		{"missing email", `{"password":"password123"}`, "email failed on required"},
		{"short password", `{"email":"a@example.com","password":"short"}`, "password failed on min=8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()

			var payload samplePayload
			appErr := DecodeAndValidate(rr, req, &payload)
			if tt.wantErr == "" {
				assert.Nil(t, appErr)
				assert.Equal(t, "a@example.com", payload.Email)
				return
			}
			if assert.NotNil(t, appErr) {
				assert.Equal(t, http.StatusBadRequest, appErr.Code)
				assert.Contains(t, appErr.Message, tt.wantErr)
			}
		})
	}
}

func TestAppError_Send(t *testing.T) {
	rr := httptest.NewRecorder()
	NewAppError(http.StatusUnauthorized, "Invalid credentials", nil).Send(rr)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"code":401,"message":"Invalid credentials"}`, rr.Body.String())
}
