package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// InternalSecretHeader carries the shared secret between the export worker and the web process.
const InternalSecretHeader = "X-Internal-Secret"

// InternalSecretMiddleware guards routes only the export worker may call. With no secret
// configured every call is refused, so the print route is never public by accident.
func InternalSecretMiddleware(secret string) gin.HandlerFunc {
	secret = strings.TrimSpace(secret)
	return func(c *gin.Context) {
		if secret == "" {
			LoggerFromContext(c).Error("internal route called but no internal secret is configured")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal api secret is not configured"})
			return
		}
		presented := strings.TrimSpace(c.GetHeader(InternalSecretHeader))
		if subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
			LoggerFromContext(c).Warn("internal route rejected", slog.String("client_ip", c.ClientIP()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
