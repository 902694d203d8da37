package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/shortly-app/shortly-api/internal/models"
	appErrors "github.com/shortly-app/shortly-api/pkg/errors"
	"github.com/shortly-app/shortly-api/pkg/response"
)

// ContextUserKey is the gin context key storing the authenticated user.
const ContextUserKey = "currentUser"

type authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
}

// JWT protects routes by requiring a valid bearer access token. The token is
// resolved through the auth service, so the disabled flag is re-evaluated on
// every request rather than trusted from the signature alone.
func JWT(auth authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrMissingCredential)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, user)
		c.Next()
	}
}
