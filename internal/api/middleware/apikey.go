package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/readlearn/backend/internal/logger"
)

// KeyStatus reports whether the classifier key passed validation.
type KeyStatus interface {
	Valid() bool
}

// RequireValidKey rejects requests with 503 while the classifier key is missing or invalid.
func RequireValidKey(status KeyStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		if status == nil || !status.Valid() {
			logger.CtxWarn(c.Request.Context(), "Rejected request: classifier key invalid, path=%s", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error":   "Service Unavailable",
				"message": "Classifier API key is not configured or invalid. Please check server configuration.",
				"hint":    "Set CLAUDE_API_KEY in your environment.",
			})
			return
		}
		c.Next()
	}
}
