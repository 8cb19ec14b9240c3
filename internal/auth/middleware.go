package auth

import (
	"net/http"
	"strings"

	"securechat/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContextUserIDKey is the gin context key under which the authenticated
// user's ID is stored.
const ContextUserIDKey = "userID"

// AuthMiddleware creates a gin middleware that requires a valid Bearer token
// and stores the authenticated user ID in the request context. Unauthenticated
// requests are rejected; in particular, the realtime events channel must never
// be registered for an unauthenticated caller.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token required"})
			return
		}

		userID, err := jwt.ParseToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

// CurrentUserID returns the authenticated user ID set by AuthMiddleware.
func CurrentUserID(c *gin.Context) uuid.UUID {
	id, _ := c.Get(ContextUserIDKey)
	return id.(uuid.UUID)
}

// extractToken reads the Bearer token from the Authorization header, falling
// back to the "token" query parameter for EventSource clients, which cannot
// set request headers.
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	return c.Query("token")
}
