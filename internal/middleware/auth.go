package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"serveease-chat/internal/auth"
	"serveease-chat/internal/repositories"
)

// AuthMiddleware verifies the bearer token and resolves it to an active user.
// Expired tokens get a distinct message from malformed or forged ones.
func AuthMiddleware(verifier *auth.Verifier, users repositories.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "missing authorization"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid authorization header"})
			return
		}

		claims, err := verifier.Verify(parts[1])
		if err != nil {
			message := "invalid token"
			if errors.Is(err, auth.ErrTokenExpired) {
				message = "token expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": message})
			return
		}

		user, err := users.GetUser(c.Request.Context(), claims.UserID)
		if err != nil || !user.IsActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "unknown or inactive account"})
			return
		}

		c.Set("userID", user.ID)
		c.Set("userRole", user.Role)
		c.Next()
	}
}
