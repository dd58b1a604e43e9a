package controllers

import (
	"time"

	"github.com/adithyan-km/PaySphere/config"
	"github.com/adithyan-km/PaySphere/services"
	"github.com/adithyan-km/PaySphere/utils"
	"github.com/gin-gonic/gin"
)

// VerifyCouponRequest represents the request body for checking a coupon
type VerifyCouponRequest struct {
	Code      string `json:"code" binding:"required"`
	ProductID uint   `json:"product_id" binding:"required"`
	Email     string `json:"email"`
}

// VerifyCoupon checks a coupon against a product for the caller without
// consuming any usage.
func VerifyCoupon(c *gin.Context) {
	utils.LogInfo("VerifyCoupon called")

	var req VerifyCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid coupon verify request: %v", err)
		utils.BadRequest(c, "Invalid request", err.Error())
		return
	}

	ident := currentIdentity(c, req.Email)
	eval, err := services.VerifyCoupon(config.DB, req.Code, req.ProductID, ident, time.Now(), config.MinOrderPolicy())
	if err != nil {
		utils.LogError("Coupon verification failed for code %s: %v", req.Code, err)
		utils.InternalServerError(c, "Failed to verify coupon", nil)
		return
	}

	if !eval.Valid {
		utils.LogInfo("Coupon %s rejected for product %d: %s", req.Code, req.ProductID, eval.Detail)
		utils.BadRequest(c, "Coupon is not valid", gin.H{
			"reason": services.ReasonCouponInvalid,
			"detail": eval.Detail,
		})
		return
	}

	utils.Success(c, "Coupon is valid", gin.H{
		"code":           req.Code,
		"discount_cents": eval.DiscountCents,
		"ignored":        eval.Ignored,
	})
}
