package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"portal-service/internal/auth"
	"portal-service/internal/models"
)

// AuthMiddleware validates the Authorization header and seeds the request
// context with the caller's identity.
func AuthMiddleware(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		claims, err := verifier.ValidateToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("userRole", claims.Role)
		c.Set("userName", claims.Name)
		c.Next()
	}
}

// RoleFromContext returns the caller's role, defaulting to client when the
// context was not seeded.
func RoleFromContext(c *gin.Context) models.Role {
	if val, ok := c.Get("userRole"); ok {
		if role, ok := val.(models.Role); ok && role.Valid() {
			return role
		}
	}
	return models.RoleClient
}
