package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"propchat/internal/transport/http/response"
)

// APIKey rejects requests whose X-API-Key header does not match. An empty
// configured key disables the check.
func APIKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		provided := c.GetHeader("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid api key")
			c.Abort()
			return
		}
		c.Next()
	}
}
