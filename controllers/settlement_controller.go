package controllers

import (
	"time"

	"github.com/adithyan-km/PaySphere/config"
	"github.com/adithyan-km/PaySphere/services"
	"github.com/adithyan-km/PaySphere/utils"
	"github.com/gin-gonic/gin"
)

// ConfirmPaymentRequest is a payment confirmation event. The gateway delivers
// these at least once; amount and currency are whatever it observed, not what
// we quoted.
type ConfirmPaymentRequest struct {
	SessionID     string `json:"session_id" binding:"required"`
	ProductID     uint   `json:"product_id" binding:"required"`
	AmountCents   int64  `json:"amount_cents" binding:"required"`
	Currency      string `json:"currency" binding:"required"`
	BumpProductID *uint  `json:"bump_product_id"`
	CouponCode    string `json:"coupon_code"`
	Email         string `json:"email"`
}

// ConfirmPayment settles a payment confirmation.
//
// Response contract for the delivering gateway: any 2xx acknowledges the
// event and stops redelivery — including business rejections, which are final
// and flagged for review rather than retried. Only infrastructure failures
// return 5xx, so the event comes back later.
func ConfirmPayment(c *gin.Context) {
	utils.LogInfo("ConfirmPayment called")

	var req ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid confirmation payload: %v", err)
		utils.BadRequest(c, "Invalid request", err.Error())
		return
	}

	ident := currentIdentity(c, req.Email)
	result, err := services.Settle(config.DB, services.SettleInput{
		SessionID:      req.SessionID,
		ProductID:      req.ProductID,
		BumpProductID:  req.BumpProductID,
		CouponCode:     req.CouponCode,
		AmountCents:    req.AmountCents,
		Currency:       req.Currency,
		Purchaser:      ident,
		Now:            time.Now(),
		MinOrderPolicy: config.MinOrderPolicy(),
	})
	if err != nil {
		utils.LogError("Settlement failed for session %s: %v", req.SessionID, err)
		utils.InternalServerError(c, "Failed to process confirmation", nil)
		return
	}

	if !result.Accepted {
		utils.Success(c, "Confirmation rejected", gin.H{
			"accepted": false,
			"reason":   result.Reason,
			"detail":   result.Detail,
		})
		return
	}

	data := gin.H{
		"accepted":   true,
		"replayed":   result.Replayed,
		"settlement": result.Settlement,
	}
	if result.Grant != nil {
		data["grant"] = result.Grant
	}
	if result.Offer != nil {
		data["offer"] = result.Offer
	}
	utils.Success(c, "Payment settled", data)
}
