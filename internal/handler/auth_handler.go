package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shortly-app/shortly-api/internal/models"
	appErrors "github.com/shortly-app/shortly-api/pkg/errors"
	"github.com/shortly-app/shortly-api/pkg/response"
)

type authService interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
}

// AuthHandler wires the token endpoints to the auth service.
type AuthHandler struct {
	service authService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// Login authenticates a user by login and password and returns a token pair.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	pair, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, pair, nil)
}

// Refresh exchanges a refresh token, passed as a request parameter, for a
// new token pair. An absent parameter is rejected by the service as a
// missing credential.
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken := c.Query("refresh_token")

	pair, err := h.service.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, pair, nil)
}
