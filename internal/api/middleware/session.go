package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"resumeMatch/internal/auth"
)

// SessionCookieName carries the signed session token.
const SessionCookieName = "rm_session"

const sessionIDKey = "sessionID"

// SessionMiddleware resolves the browser session from its cookie, starting a new one when
// the cookie is absent or invalid. The cookie has no Max-Age so it ends with the browser session.
func SessionMiddleware(tokens *auth.TokenService, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw, err := c.Cookie(SessionCookieName); err == nil {
			if id, err := tokens.Validate(raw); err == nil {
				c.Set(sessionIDKey, id)
				c.Next()
				return
			}
			LoggerFromContext(c).Debug("discarding invalid session cookie")
		}

		id, token, err := tokens.NewSession()
		if err != nil {
			LoggerFromContext(c).Error("issue session token failed", slog.Any("error", err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to start session"})
			return
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(SessionCookieName, token, 0, "/", "", secure, true)
		c.Set(sessionIDKey, id)
		c.Next()
	}
}

// GetSessionID returns the session resolved by SessionMiddleware.
func GetSessionID(c *gin.Context) string {
	if value, ok := c.Get(sessionIDKey); ok {
		if id, ok := value.(string); ok {
			return id
		}
	}
	return ""
}
