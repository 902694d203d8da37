package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shortly-app/shortly-api/internal/models"
	"github.com/shortly-app/shortly-api/internal/service"
	appErrors "github.com/shortly-app/shortly-api/pkg/errors"
	"github.com/shortly-app/shortly-api/pkg/response"
)

type userService interface {
	Register(ctx context.Context, req service.RegisterRequest) (*models.User, error)
	Disable(ctx context.Context, id int64) error
}

// UserHandler handles registration and account endpoints.
type UserHandler struct {
	service userService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(svc userService) *UserHandler {
	return &UserHandler{service: svc}
}

// Register creates a new user account.
func (h *UserHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid register payload"))
		return
	}

	user, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, user)
}

// Me returns the authenticated user.
func (h *UserHandler) Me(c *gin.Context) {
	user := userFromContext(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	response.JSON(c, http.StatusOK, user, nil)
}

// Delete disables the authenticated user's account.
func (h *UserHandler) Delete(c *gin.Context) {
	user := userFromContext(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Disable(c.Request.Context(), user.ID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
