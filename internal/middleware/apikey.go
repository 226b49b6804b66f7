package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	apperrors "investtrack/internal/errors"
)

// APIKeyAuth validates the X-API-Key header against apiKey. Operational
// endpoints such as /metrics are guarded with it.
func APIKeyAuth(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			RenderError(c, apperrors.ErrNotConfigured)
			c.Abort()
			return
		}
		key := c.GetHeader("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
			RenderError(c, apperrors.ErrInvalidAPIKey)
			c.Abort()
			return
		}
		c.Next()
	}
}
