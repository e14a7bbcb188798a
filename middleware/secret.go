package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"aeolus/logger"

	"github.com/gin-gonic/gin"
)

// Secret authenticates trusted-backend requests with a static bearer secret.
// The comparison is constant-overhead; the secret is exact-match, not a MAC.
// An unconfigured secret is a deployment fault and answers 503, never 401.
func Secret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			logger.Error("SERVER_SECRET not configured")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Server secret missing"})
			return
		}

		authz := c.GetHeader("Authorization")
		if !strings.HasPrefix(authz, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		tok := strings.TrimSpace(authz[len("Bearer "):])
		if subtle.ConstantTimeCompare([]byte(tok), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Next()
	}
}
