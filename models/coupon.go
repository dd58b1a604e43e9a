package models

import (
	"time"

	"gorm.io/gorm"
)

// Coupon discount types. Closed set; anything else is rejected at evaluation.
const (
	DiscountTypePercentage = "percentage"
	DiscountTypeFixed      = "fixed"
)

type Coupon struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Code         string `gorm:"uniqueIndex" json:"code"`
	Active       bool   `gorm:"default:true" json:"active"`
	DiscountType string `json:"discount_type"` // percentage or fixed

	// Percent (0-100) for percentage coupons, minor units for fixed ones.
	DiscountValue int64 `json:"discount_value"`

	// Usage ceilings. Nil means unlimited. UsedCount never exceeds
	// UsageLimitGlobal; the bound is enforced by a conditional UPDATE at
	// redemption time, not by this struct.
	UsageLimitGlobal  *int64 `json:"usage_limit_global,omitempty"`
	UsageLimitPerUser *int64 `json:"usage_limit_per_user,omitempty"`
	UsedCount         int64  `gorm:"default:0" json:"used_count"`

	MinOrderCents    int64  `json:"min_order_cents"`
	MaxDiscountCents *int64 `json:"max_discount_cents,omitempty"`

	ValidFrom  *time.Time `json:"valid_from,omitempty"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`

	// Empty list means valid for every product.
	AllowedProducts []CouponProduct `gorm:"foreignKey:CouponID" json:"allowed_products,omitempty"`

	FirstPurchaseOnly bool `json:"first_purchase_only"`
	ExcludeOrderBumps bool `json:"exclude_order_bumps"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// CouponProduct scopes a coupon to a product.
type CouponProduct struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	CouponID  uint `gorm:"index:idx_coupon_product,unique" json:"coupon_id"`
	ProductID uint `gorm:"index:idx_coupon_product,unique" json:"product_id"`
}

// CouponRedemption is the per-settlement redemption ledger. The unique
// SessionID makes redemption replay-safe: re-processing a delivered payment
// confirmation can never increment UsedCount twice.
type CouponRedemption struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CouponID   uint      `gorm:"index" json:"coupon_id"`
	SessionID  string    `gorm:"uniqueIndex" json:"session_id"`
	UserID     *uint     `gorm:"index" json:"user_id,omitempty"`
	Email      string    `gorm:"index" json:"email"`
	RedeemedAt time.Time `json:"redeemed_at"`
}
