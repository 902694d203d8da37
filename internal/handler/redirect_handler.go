package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shortly-app/shortly-api/pkg/response"
)

type resolver interface {
	Resolve(ctx context.Context, key string) (string, error)
}

// RedirectHandler serves the public short-link redirect.
type RedirectHandler struct {
	service resolver
}

// NewRedirectHandler creates a new redirect handler.
func NewRedirectHandler(svc resolver) *RedirectHandler {
	return &RedirectHandler{service: svc}
}

// Redirect resolves a short key and sends the visitor to the original URL
// with a temporary redirect.
func (h *RedirectHandler) Redirect(c *gin.Context) {
	url, err := h.service.Resolve(c.Request.Context(), c.Param("key"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, url)
}
