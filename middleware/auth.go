package middleware

import (
	"strings"

	"flood-report-api/services"

	"github.com/gin-gonic/gin"
)

const ContextUserIDKey = "user_id"

// OptionalAuth attaches the authenticated user id to the context when a
// valid Bearer token is present. Requests without one proceed anonymously;
// uploads and posts then simply have no owner.
func OptionalAuth(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			if claims, err := authService.ValidateToken(token); err == nil {
				c.Set(ContextUserIDKey, claims.UserID)
			}
		}
		c.Next()
	}
}

// UserIDFrom returns the authenticated user id, or nil for anonymous requests.
func UserIDFrom(c *gin.Context) *uint {
	v, ok := c.Get(ContextUserIDKey)
	if !ok {
		return nil
	}
	id, ok := v.(uint)
	if !ok {
		return nil
	}
	return &id
}
