package models

import (
	"time"
)

// Settlement status constants
const (
	SettlementStatusCompleted = "completed"
	SettlementStatusRefunded  = "refunded"
)

// Settlement source constants
const (
	SettlementSourceCheckout = "checkout"
	SettlementSourceOTO      = "oto"
)

// Settlement is the authoritative record that payment for a product (plus an
// optional bump) completed at a validated amount. SessionID is the external
// gateway session id and doubles as the idempotency key: the unique index
// guarantees exactly one row per session no matter how often the gateway
// redelivers the confirmation.
type Settlement struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	SessionID     string `gorm:"uniqueIndex" json:"session_id"`
	ProductID     uint   `gorm:"index" json:"product_id"`
	BumpProductID *uint  `json:"bump_product_id,omitempty"`

	AmountCents   int64  `json:"amount_cents"`
	Currency      string `gorm:"size:3" json:"currency"`
	CouponCode    string `json:"coupon_code,omitempty"`
	DiscountCents int64  `json:"discount_cents"`

	// Authenticated buyer or guest; at least one of UserID/Email is set.
	UserID *uint  `gorm:"index" json:"user_id,omitempty"`
	Email  string `gorm:"index" json:"email"`

	Source string `gorm:"default:checkout" json:"source"` // checkout or oto
	Status string `gorm:"default:completed" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
