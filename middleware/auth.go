package middleware

import (
	"net/http"
	"os"
	"strings"

	"github.com/adithyan-km/PaySphere/config"
	"github.com/adithyan-km/PaySphere/models"
	"github.com/adithyan-km/PaySphere/utils"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

// AuthMiddleware requires a valid bearer token and puts the user in context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := resolveUser(c)
		if !ok || user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Please login for access"})
			c.Abort()
			return
		}
		c.Set("user", *user)
		c.Next()
	}
}

// OptionalAuthMiddleware resolves the user when a token is present but lets
// guests through. Checkout and settlement accept both; a guest identifies by
// email in the request body instead.
func OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") != "" {
			user, ok := resolveUser(c)
			if !ok {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
				c.Abort()
				return
			}
			if user != nil {
				c.Set("user", *user)
			}
		}
		c.Next()
	}
}

// resolveUser parses the bearer token and loads the account. The second
// return is false when a token was presented but rejected.
func resolveUser(c *gin.Context) (*models.User, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, true
	}

	tokenString := strings.Replace(authHeader, "Bearer ", "", 1)
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil || !token.Valid {
		utils.LogError("Invalid token: %v", err)
		return nil, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		utils.LogError("Invalid token claims")
		return nil, false
	}
	rawID, ok := claims["user_id"].(float64)
	if !ok {
		utils.LogError("Token missing user_id claim")
		return nil, false
	}
	userID := uint(rawID)

	var user models.User
	if err := config.DB.First(&user, userID).Error; err != nil {
		utils.LogError("User not found: %v", err)
		return nil, false
	}
	if user.IsBlocked {
		utils.LogError("Blocked user attempted access: %d", userID)
		return nil, false
	}
	utils.LogDebug("Authenticated user ID: %d", userID)
	return &user, true
}
