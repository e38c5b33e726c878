// internal/api/auth_middleware.go
package api

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/claritutor/claritutor/internal/auth"
	"github.com/claritutor/claritutor/internal/config"
)

const contextUserIDKey = "user_id"

// optionalAuthMiddleware resolves the signed-in user from a Bearer token when
// one is present. Absence of a token is the normal anonymous state: content
// and chat still work, only persistence operations demand a user.
func optionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.Next()
			return
		}

		cfg := config.GetCurrentConfig()
		if cfg == nil || cfg.AuthSecret == "" {
			c.Next()
			return
		}

		token, err := auth.ParseToken(strings.TrimPrefix(header, "Bearer "), &auth.TokenConfig{
			Secret: []byte(cfg.AuthSecret),
		})
		if err != nil {
			// Invalid or expired tokens degrade to anonymous.
			c.Next()
			return
		}

		c.Set(contextUserIDKey, token.UserID)
		c.Next()
	}
}

// currentUserID returns the resolved user id, empty when anonymous.
func currentUserID(c *gin.Context) string {
	if v, exists := c.Get(contextUserIDKey); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
