package controllers

import (
	"strings"

	"github.com/adithyan-km/PaySphere/models"
	"github.com/adithyan-km/PaySphere/services"
	"github.com/gin-gonic/gin"
)

// currentIdentity builds the purchaser identity: the authenticated user when
// the optional-auth middleware resolved one, otherwise a guest identified by
// the email from the request body.
func currentIdentity(c *gin.Context, email string) services.Identity {
	if user, exists := c.Get("user"); exists {
		if u, ok := user.(models.User); ok {
			id := u.ID
			return services.Identity{UserID: &id, Email: u.Email}
		}
	}
	return services.Identity{Email: strings.ToLower(strings.TrimSpace(email))}
}
