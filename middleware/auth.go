package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/poolworks/poolcare-api/config"
	"github.com/poolworks/poolcare-api/models"
	"github.com/poolworks/poolcare-api/services"
)

// RequireAuth validates the bearer token on each request, loads the acting
// user from the database, and stores it in the Gin context. Authentication
// ends here: everything downstream only authorizes an already-identified
// actor.
func RequireAuth(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "MISSING_TOKEN",
					"message": "Authorization header is required",
				},
			})
			c.Abort()
			return
		}

		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_AUTH_HEADER",
					"message": "Authorization header must be 'Bearer <token>'",
				},
			})
			c.Abort()
			return
		}

		claims, err := services.ValidateToken(cfg.JWTSecret, token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_TOKEN",
					"message": "Invalid or expired token",
				},
			})
			c.Abort()
			return
		}

		// Load the user fresh so a role change takes effect immediately
		db := config.GetDB()
		var user models.User
		if err := db.First(&user, "id = ?", claims.UserID).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "USER_NOT_FOUND",
					"message": "User not found",
				},
			})
			c.Abort()
			return
		}

		c.Set("current_user", &user)
		c.Next()
	}
}

// GetCurrentUser extracts the authenticated user from the Gin context
func GetCurrentUser(c *gin.Context) (*models.User, error) {
	value, exists := c.Get("current_user")
	if !exists {
		return nil, &AuthError{Code: "MISSING_USER", Message: "User not found in context"}
	}

	user, ok := value.(*models.User)
	if !ok {
		return nil, &AuthError{Code: "INVALID_USER", Message: "User in context has unexpected type"}
	}
	return user, nil
}

// RequireAdministrator rejects requests whose actor is not an administrator
func RequireAdministrator() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := GetCurrentUser(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Could not extract user information",
				},
			})
			c.Abort()
			return
		}

		if !user.IsAdministrator() {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "FORBIDDEN",
					"message": "Only administrators can access this resource",
				},
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}
