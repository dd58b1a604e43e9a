package controllers

import (
	"errors"
	"time"

	"github.com/adithyan-km/PaySphere/config"
	"github.com/adithyan-km/PaySphere/models"
	"github.com/adithyan-km/PaySphere/services"
	"github.com/adithyan-km/PaySphere/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Gateway is the payment processor client, swapped for a real one at
// deployment.
var Gateway services.PaymentGateway = services.LocalGateway{}

// QuoteRequest represents the request body for pricing a checkout
type QuoteRequest struct {
	ProductID        uint   `json:"product_id" binding:"required"`
	BumpProductID    *uint  `json:"bump_product_id"`
	CouponCode       string `json:"coupon_code"`
	CustomPriceCents *int64 `json:"custom_price_cents"`
	Email            string `json:"email"`
}

// QuoteCharge computes the expected charge for a checkout. The same
// computation runs again when the payment confirmation arrives, so the number
// returned here is display data, never an input to settlement.
func QuoteCharge(c *gin.Context) {
	utils.LogInfo("QuoteCharge called")

	charge, ok := composeFromRequest(c)
	if !ok {
		return
	}

	utils.Success(c, "Expected charge computed", gin.H{"charge": charge})
}

// CreateCheckoutSession prices the checkout and opens a gateway session for
// it. The returned session id is what the later confirmation must carry.
func CreateCheckoutSession(c *gin.Context) {
	utils.LogInfo("CreateCheckoutSession called")

	charge, ok := composeFromRequest(c)
	if !ok {
		return
	}

	var main models.Product
	if err := config.DB.First(&main, charge.ProductID).Error; err != nil {
		utils.LogError("Failed to reload product %d: %v", charge.ProductID, err)
		utils.InternalServerError(c, "Failed to create checkout session", nil)
		return
	}

	items := []services.CheckoutItem{{
		ProductID:   charge.ProductID,
		Name:        main.Name,
		AmountCents: charge.TotalCents - charge.BumpCents,
		Currency:    charge.Currency,
	}}
	if charge.BumpProductID != nil {
		var bump models.Product
		if err := config.DB.First(&bump, *charge.BumpProductID).Error; err == nil {
			items = append(items, services.CheckoutItem{
				ProductID:   bump.ID,
				Name:        bump.Name,
				AmountCents: charge.BumpCents,
				Currency:    charge.Currency,
			})
		}
	}

	sessionID, err := Gateway.CreateCheckoutSession(c.Request.Context(), items)
	if err != nil {
		utils.LogError("Gateway session creation failed for product %d: %v", charge.ProductID, err)
		utils.InternalServerError(c, "Failed to create checkout session", nil)
		return
	}

	utils.LogInfo("Created checkout session %s for product %d, total %d %s",
		sessionID, charge.ProductID, charge.TotalCents, charge.Currency)
	utils.Created(c, "Checkout session created", gin.H{
		"session_id": sessionID,
		"charge":     charge,
	})
}

// composeFromRequest binds the quote request and computes the charge,
// writing the error response itself when anything is off.
func composeFromRequest(c *gin.Context) (*services.ExpectedCharge, bool) {
	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid quote request: %v", err)
		utils.BadRequest(c, "Invalid request", err.Error())
		return nil, false
	}

	ident := currentIdentity(c, req.Email)
	charge, reason, detail, err := services.ComposeExpectedCharge(config.DB, services.ChargeInput{
		ProductID:        req.ProductID,
		BumpProductID:    req.BumpProductID,
		CouponCode:       req.CouponCode,
		CustomPriceCents: req.CustomPriceCents,
		Identity:         ident,
		Now:              time.Now(),
		MinOrderPolicy:   config.MinOrderPolicy(),
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Product not available")
			return nil, false
		}
		utils.LogError("Failed to compose charge for product %d: %v", req.ProductID, err)
		utils.InternalServerError(c, "Failed to compute charge", nil)
		return nil, false
	}
	if reason != "" {
		utils.LogInfo("Quote rejected for product %d: %s (%s)", req.ProductID, reason, detail)
		utils.BadRequest(c, "Unable to price this checkout", gin.H{
			"reason": reason,
			"detail": detail,
		})
		return nil, false
	}
	return charge, true
}
