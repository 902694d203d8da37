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

type linkService interface {
	Create(ctx context.Context, req service.CreateLinkRequest, userID int64) (*models.Link, error)
	List(ctx context.Context, userID int64) ([]models.Link, error)
	Get(ctx context.Context, key string, userID int64) (*models.Link, error)
	Stats(ctx context.Context, key string, userID int64) (*models.LinkStats, error)
	Disable(ctx context.Context, key string, userID int64) error
}

// LinkHandler handles the owner-scoped link endpoints.
type LinkHandler struct {
	service   linkService
	apiPrefix string
}

// NewLinkHandler creates a new link handler. apiPrefix is used to build the
// Location header for newly created links.
func NewLinkHandler(svc linkService, apiPrefix string) *LinkHandler {
	return &LinkHandler{service: svc, apiPrefix: apiPrefix}
}

// Create shortens a URL for the authenticated user.
func (h *LinkHandler) Create(c *gin.Context) {
	user := userFromContext(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid link payload"))
		return
	}

	link, err := h.service.Create(c.Request.Context(), req, user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Location", h.apiPrefix+"/links/"+link.ShortKey)
	response.Created(c, link)
}

// List returns the authenticated user's links.
func (h *LinkHandler) List(c *gin.Context) {
	user := userFromContext(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	links, err := h.service.List(c.Request.Context(), user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, links, nil)
}

// Get returns a single link owned by the authenticated user.
func (h *LinkHandler) Get(c *gin.Context) {
	user := userFromContext(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	link, err := h.service.Get(c.Request.Context(), c.Param("key"), user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, link, nil)
}

// Stats returns the usage summary for an owned link.
func (h *LinkHandler) Stats(c *gin.Context) {
	user := userFromContext(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	stats, err := h.service.Stats(c.Request.Context(), c.Param("key"), user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, stats, nil)
}

// Delete disables an owned link.
func (h *LinkHandler) Delete(c *gin.Context) {
	user := userFromContext(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Disable(c.Request.Context(), c.Param("key"), user.ID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
