package services

import (
	"errors"
	"time"

	"github.com/adithyan-km/PaySphere/models"
	"github.com/adithyan-km/PaySphere/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CouponContext carries the per-request facts coupon evaluation needs but
// cannot load itself: what the discount applies to, who is redeeming, and how
// often they already have.
type CouponContext struct {
	ProductID uint
	// BaseCents is the amount the discount is computed against (subtotal, or
	// main price only when the coupon excludes order bumps).
	BaseCents int64
	// OrderCents is the full order subtotal, checked against min_order_cents.
	OrderCents     int64
	PerUserUsed    int64
	PriorPurchases int64
	Now            time.Time
	MinOrderPolicy string
}

// CouponEval is the outcome of evaluating a coupon against an order.
type CouponEval struct {
	Valid         bool
	DiscountCents int64
	// Ignored means the coupon was valid but the min-order threshold was not
	// met and policy says to drop the discount rather than reject the order.
	Ignored bool
	Detail  string
}

// EvaluateCoupon applies every coupon rule to the given context. Pure
// computation; the usage counts it reads are advisory — the global limit is
// enforced authoritatively by the conditional UPDATE in RedeemCoupon.
func EvaluateCoupon(c *models.Coupon, ctx CouponContext) CouponEval {
	if c == nil {
		return CouponEval{Detail: "unknown coupon"}
	}
	if !c.Active {
		return CouponEval{Detail: "coupon is not active"}
	}
	if c.ValidFrom != nil && ctx.Now.Before(*c.ValidFrom) {
		return CouponEval{Detail: "coupon is not yet valid"}
	}
	if c.ValidUntil != nil && !ctx.Now.Before(*c.ValidUntil) {
		return CouponEval{Detail: "coupon has expired"}
	}
	if len(c.AllowedProducts) > 0 {
		allowed := false
		for _, cp := range c.AllowedProducts {
			if cp.ProductID == ctx.ProductID {
				allowed = true
				break
			}
		}
		if !allowed {
			return CouponEval{Detail: "coupon does not apply to this product"}
		}
	}
	if c.UsageLimitGlobal != nil && c.UsedCount >= *c.UsageLimitGlobal {
		return CouponEval{Detail: "coupon usage limit reached"}
	}
	if c.UsageLimitPerUser != nil && ctx.PerUserUsed >= *c.UsageLimitPerUser {
		return CouponEval{Detail: "you have already used this coupon"}
	}
	if c.FirstPurchaseOnly && ctx.PriorPurchases > 0 {
		return CouponEval{Detail: "coupon is limited to first purchases"}
	}
	if ctx.OrderCents < c.MinOrderCents {
		if ctx.MinOrderPolicy == MinOrderPolicyIgnore {
			return CouponEval{Valid: true, Ignored: true, Detail: "order below coupon minimum, discount dropped"}
		}
		return CouponEval{Detail: "order total is below the coupon minimum"}
	}

	var discount int64
	switch c.DiscountType {
	case models.DiscountTypePercentage:
		if c.DiscountValue < 0 || c.DiscountValue > 100 {
			return CouponEval{Detail: "invalid discount value"}
		}
		discount = ctx.BaseCents * c.DiscountValue / 100
	case models.DiscountTypeFixed:
		if c.DiscountValue < 0 {
			return CouponEval{Detail: "invalid discount value"}
		}
		discount = c.DiscountValue
	default:
		return CouponEval{Detail: "unknown discount type"}
	}
	if c.MaxDiscountCents != nil && discount > *c.MaxDiscountCents {
		discount = *c.MaxDiscountCents
	}
	if discount > ctx.BaseCents {
		discount = ctx.BaseCents
	}
	return CouponEval{Valid: true, DiscountCents: discount}
}

// LoadCouponByCode fetches a coupon case-insensitively with its product scope.
// Returns nil without error when no such coupon exists.
func LoadCouponByCode(db *gorm.DB, code string) (*models.Coupon, error) {
	var c models.Coupon
	err := db.Preload("AllowedProducts").Where("LOWER(code) = LOWER(?)", code).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CountPerUserRedemptions counts redemption ledger rows for the identity.
func CountPerUserRedemptions(db *gorm.DB, couponID uint, ident Identity) (int64, error) {
	q := db.Model(&models.CouponRedemption{}).Where("coupon_id = ?", couponID)
	if ident.Authenticated() {
		q = q.Where("user_id = ?", *ident.UserID)
	} else {
		q = q.Where("email = ? AND email <> ''", ident.Email)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

// CountCompletedSettlements counts prior completed settlements for the
// identity, backing the first-purchase-only rule.
func CountCompletedSettlements(db *gorm.DB, ident Identity) (int64, error) {
	q := db.Model(&models.Settlement{}).Where("status = ?", models.SettlementStatusCompleted)
	if ident.Authenticated() {
		q = q.Where("user_id = ?", *ident.UserID)
	} else {
		q = q.Where("email = ? AND email <> ''", ident.Email)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

// VerifyCoupon checks a coupon for a product and identity without consuming
// usage. The discount it reports is computed against the product's current
// unit price; the settlement path recomputes against the real order.
func VerifyCoupon(db *gorm.DB, code string, productID uint, ident Identity, now time.Time, minOrderPolicy string) (CouponEval, error) {
	coupon, err := LoadCouponByCode(db, code)
	if err != nil {
		return CouponEval{}, err
	}
	if coupon == nil {
		return CouponEval{Detail: "unknown coupon"}, nil
	}

	var product models.Product
	if err := db.First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CouponEval{Detail: "unknown product"}, nil
		}
		return CouponEval{}, err
	}

	base := product.PriceCents
	if product.AllowCustomPrice {
		base = product.CustomPriceMinCents
	} else if price, reason := ResolveUnitPrice(&product, now, nil); reason == "" {
		base = price
	}

	perUser, err := CountPerUserRedemptions(db, coupon.ID, ident)
	if err != nil {
		return CouponEval{}, err
	}
	prior := int64(0)
	if coupon.FirstPurchaseOnly {
		prior, err = CountCompletedSettlements(db, ident)
		if err != nil {
			return CouponEval{}, err
		}
	}

	return EvaluateCoupon(coupon, CouponContext{
		ProductID:      productID,
		BaseCents:      base,
		OrderCents:     base,
		PerUserUsed:    perUser,
		PriorPurchases: prior,
		Now:            now,
		MinOrderPolicy: minOrderPolicy,
	}), nil
}

// RedeemCoupon consumes one use of the coupon for a settlement session. Must
// run inside the settlement transaction. The sequence is a single atomic
// unit: the coupon row is locked, the ledger row insert dedupes replays via
// its unique session id, and the usage counter is bumped by a conditional
// UPDATE bounded by the limit in its WHERE clause — so concurrent redemptions
// can never overshoot usage_limit_global.
//
// Returns (true, "") when usage was consumed or the session had already
// redeemed (replay); (false, detail) when a limit blocks this redemption.
func RedeemCoupon(tx *gorm.DB, couponID uint, sessionID string, ident Identity, now time.Time) (bool, string, error) {
	var coupon models.Coupon
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&coupon, couponID).Error; err != nil {
		return false, "", err
	}

	ledger := models.CouponRedemption{
		CouponID:   couponID,
		SessionID:  sessionID,
		UserID:     ident.UserID,
		Email:      ident.Email,
		RedeemedAt: now,
	}
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoNothing: true,
	}).Create(&ledger)
	if res.Error != nil {
		return false, "", res.Error
	}
	if res.RowsAffected == 0 {
		// Replayed session: usage already counted.
		utils.LogInfo("Coupon %d redemption replayed for session %s", couponID, sessionID)
		return true, "", nil
	}

	if coupon.UsageLimitPerUser != nil {
		used, err := CountPerUserRedemptions(tx, couponID, ident)
		if err != nil {
			return false, "", err
		}
		// The count includes the ledger row inserted above.
		if used > *coupon.UsageLimitPerUser {
			return false, "you have already used this coupon", nil
		}
	}

	upd := tx.Model(&models.Coupon{}).
		Where("id = ? AND (usage_limit_global IS NULL OR used_count < usage_limit_global)", couponID).
		UpdateColumn("used_count", gorm.Expr("used_count + ?", 1))
	if upd.Error != nil {
		return false, "", upd.Error
	}
	if upd.RowsAffected == 0 {
		return false, "coupon usage limit reached", nil
	}
	return true, "", nil
}
