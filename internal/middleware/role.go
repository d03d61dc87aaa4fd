package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/super-videotheque/backend/pkg/response"
)

// RequireRole lets through only tokens carrying role. It must run after JWT.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got, ok := c.Get(ContextUserRole)
		if !ok {
			response.Unauthorized(c, "missing admin session")
			c.Abort()
			return
		}
		if got, _ := got.(string); got != role {
			response.Forbidden(c, "admin role required")
			c.Abort()
			return
		}
		c.Next()
	}
}
