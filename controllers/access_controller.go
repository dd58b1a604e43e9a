package controllers

import (
	"strconv"
	"time"

	"github.com/adithyan-km/PaySphere/config"
	"github.com/adithyan-km/PaySphere/models"
	"github.com/adithyan-km/PaySphere/services"
	"github.com/adithyan-km/PaySphere/utils"
	"github.com/gin-gonic/gin"
)

// CheckAccess reports whether the authenticated user currently holds the
// product.
func CheckAccess(c *gin.Context) {
	utils.LogInfo("CheckAccess called")

	user, exists := c.Get("user")
	if !exists {
		utils.Unauthorized(c, "User not found")
		return
	}
	userID := user.(models.User).ID

	productID, err := strconv.ParseUint(c.Param("productID"), 10, 32)
	if err != nil {
		utils.BadRequest(c, "Invalid product id", nil)
		return
	}

	has, err := services.HasAccess(config.DB, userID, uint(productID), time.Now())
	if err != nil {
		utils.LogError("Access check failed for user %d, product %d: %v", userID, productID, err)
		utils.InternalServerError(c, "Failed to check access", nil)
		return
	}

	utils.Success(c, "Access checked", gin.H{
		"product_id": productID,
		"has_access": has,
	})
}

// ClaimGuestPurchases converts past guest purchases made with the user's
// email into access grants.
func ClaimGuestPurchases(c *gin.Context) {
	utils.LogInfo("ClaimGuestPurchases called")

	user, exists := c.Get("user")
	if !exists {
		utils.Unauthorized(c, "User not found")
		return
	}
	u := user.(models.User)

	claimed, err := services.ClaimGuestPurchases(config.DB, u.ID, u.Email, time.Now())
	if err != nil {
		utils.LogError("Guest purchase claim failed for user %d: %v", u.ID, err)
		utils.InternalServerError(c, "Failed to claim purchases", nil)
		return
	}

	utils.Success(c, "Guest purchases claimed", gin.H{"claimed": claimed})
}
