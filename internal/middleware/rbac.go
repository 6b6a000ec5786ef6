package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bookwyrm-admin/internal/models"
	appErrors "github.com/noah-isme/bookwyrm-admin/pkg/errors"
	"github.com/noah-isme/bookwyrm-admin/pkg/response"
)

// RequireCapability rejects callers whose role lacks capability. It must run after JWT.
func RequireCapability(capability models.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.AbortError(c, appErrors.ErrUnauthorized)
			return
		}
		if !claims.Can(capability) {
			response.AbortError(c, appErrors.Clone(appErrors.ErrForbidden, "missing capability "+string(capability)))
			return
		}
		c.Next()
	}
}
