package services

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/adithyan-km/PaySphere/models"
	"gorm.io/gorm"
)

// ExpectedCharge is the server-computed price for a checkout: main product
// plus an accepted order bump minus an applied coupon. It is built once when
// the checkout session is created and rebuilt from scratch when the payment
// confirmation arrives — the reported amount must match this recomputation,
// never the other way around.
type ExpectedCharge struct {
	ProductID     uint   `json:"product_id"`
	TotalCents    int64  `json:"total_cents"`
	Currency      string `json:"currency"`
	MainCents     int64  `json:"main_cents"`
	BumpProductID *uint  `json:"bump_product_id,omitempty"`
	BumpCents     int64  `json:"bump_cents"`
	CouponCode    string `json:"coupon_code,omitempty"`
	DiscountCents int64  `json:"discount_cents"`
	CouponIgnored bool   `json:"coupon_ignored,omitempty"`
	// TaxInfoCents is informational for invoicing; it is never added to
	// TotalCents.
	TaxInfoCents int64 `json:"tax_info_cents"`
	PWYW         bool  `json:"pwyw"`
	// SaleApplied marks that the main price came from a live sale, so the
	// settlement path must try to consume a sale slot.
	SaleApplied bool `json:"-"`

	couponID uint
}

// CouponID returns the id of the coupon the charge applied, 0 when none.
func (e *ExpectedCharge) CouponID() uint {
	return e.couponID
}

// ChargeInput identifies what the buyer is checking out.
type ChargeInput struct {
	ProductID        uint
	BumpProductID    *uint
	CouponCode       string
	CustomPriceCents *int64
	Identity         Identity
	Now              time.Time
	MinOrderPolicy   string
}

// ComputeCharge combines already-loaded rows into an ExpectedCharge. Pure
// computation over the rows it is handed; ComposeExpectedCharge does the
// loading. A non-empty reason rejects the charge.
func ComputeCharge(main *models.Product, bump *models.OrderBump, bumpProduct *models.Product,
	coupon *models.Coupon, cctx CouponContext, in ChargeInput) (*ExpectedCharge, string, string) {

	mainCents, reason := ResolveUnitPrice(main, in.Now, in.CustomPriceCents)
	if reason != "" {
		return nil, reason, "requested price is missing or too low"
	}

	charge := &ExpectedCharge{
		ProductID:   main.ID,
		Currency:    strings.ToUpper(main.Currency),
		MainCents:   mainCents,
		PWYW:        main.AllowCustomPrice,
		SaleApplied: !main.AllowCustomPrice && SaleActive(main, in.Now),
	}

	// An order bump is honored only when an active row links it to the main
	// product, the bump product itself is active, and currencies match.
	// Pay-what-you-want checkouts never carry a bump: the buyer names the
	// total, so a fixed bump price has nothing to validate against. Anything
	// else silently drops the bump — it is an upsell, not an error.
	if !main.AllowCustomPrice && bump != nil && bump.Active && bumpProduct != nil && bumpProduct.Active &&
		strings.EqualFold(bumpProduct.Currency, main.Currency) {
		charge.BumpProductID = &bumpProduct.ID
		charge.BumpCents = bump.BumpPriceCents
	}

	subtotal := charge.MainCents + charge.BumpCents

	if coupon != nil || in.CouponCode != "" {
		base := subtotal
		if coupon != nil && coupon.ExcludeOrderBumps {
			base = charge.MainCents
		}
		cctx.BaseCents = base
		cctx.OrderCents = subtotal
		eval := EvaluateCoupon(coupon, cctx)
		if !eval.Valid {
			return nil, ReasonCouponInvalid, eval.Detail
		}
		if !eval.Ignored {
			charge.CouponCode = coupon.Code
			charge.DiscountCents = eval.DiscountCents
			charge.couponID = coupon.ID
		} else {
			charge.CouponIgnored = true
		}
	}

	charge.TotalCents = subtotal - charge.DiscountCents
	if charge.TotalCents < 0 {
		charge.TotalCents = 0
	}
	if main.TaxRatePercent > 0 {
		charge.TaxInfoCents = int64(math.Round(float64(charge.TotalCents) * main.TaxRatePercent / 100))
	}
	return charge, "", ""
}

// ComposeExpectedCharge loads the catalog rows for a checkout and computes
// the expected total. Returns (nil, reason, detail) for business rejections
// and an error only for storage failures. gorm.ErrRecordNotFound surfaces
// when the main product does not exist or is inactive.
func ComposeExpectedCharge(db *gorm.DB, in ChargeInput) (*ExpectedCharge, string, string, error) {
	var main models.Product
	if err := db.Where("id = ? AND active = ?", in.ProductID, true).First(&main).Error; err != nil {
		return nil, "", "", err
	}

	var bumpRow *models.OrderBump
	var bumpProduct *models.Product
	if in.BumpProductID != nil {
		var b models.OrderBump
		err := db.Where("main_product_id = ? AND bump_product_id = ? AND active = ?",
			main.ID, *in.BumpProductID, true).First(&b).Error
		switch {
		case err == nil:
			bumpRow = &b
			var bp models.Product
			if err := db.First(&bp, b.BumpProductID).Error; err == nil {
				bumpProduct = &bp
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, "", "", err
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, "", "", err
		}
	}

	var coupon *models.Coupon
	cctx := CouponContext{
		ProductID:      main.ID,
		Now:            in.Now,
		MinOrderPolicy: in.MinOrderPolicy,
	}
	if in.CouponCode != "" {
		var err error
		coupon, err = LoadCouponByCode(db, in.CouponCode)
		if err != nil {
			return nil, "", "", err
		}
		if coupon != nil {
			cctx.PerUserUsed, err = CountPerUserRedemptions(db, coupon.ID, in.Identity)
			if err != nil {
				return nil, "", "", err
			}
			if coupon.FirstPurchaseOnly {
				cctx.PriorPurchases, err = CountCompletedSettlements(db, in.Identity)
				if err != nil {
					return nil, "", "", err
				}
			}
		}
	}

	charge, reason, detail := ComputeCharge(&main, bumpRow, bumpProduct, coupon, cctx, in)
	return charge, reason, detail, nil
}
