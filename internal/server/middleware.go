package server

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
)

const webhookSecretHeader = "X-Webhook-Secret"

// AdminAuth guards the admin surface with a static bearer token. With no
// token configured the whole surface is disabled.
func (s *Server) AdminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := s.cfg.AdminToken
		if token == "" {
			AbortWithError(c, ErrServiceUnavailable)
			return
		}

		header := c.GetHeader("Authorization")
		presented, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || !secureEqual(strings.TrimSpace(presented), token) {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Next()
	}
}

// WebhookAuth verifies the shared secret a payment gateway sends alongside
// its callbacks. An empty configured secret skips the check, which is only
// acceptable in development.
func WebhookAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}
		if !secureEqual(c.GetHeader(webhookSecretHeader), secret) {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}

func secureEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
