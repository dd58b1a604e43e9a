package models

import (
	"time"
)

// AccessGrant gives a user time-bounded access to a product. One row per
// (user, product); a repeat purchase renews the grant in place, restarting
// the clock from the new purchase rather than stacking remaining time.
type AccessGrant struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	UserID    uint `gorm:"index:idx_grant_user_product,unique" json:"user_id"`
	ProductID uint `gorm:"index:idx_grant_user_product,unique" json:"product_id"`

	GrantedAt    time.Time  `json:"granted_at"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"` // nil = perpetual
	DurationDays *int       `json:"duration_days,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Expired reports whether the grant has lapsed at the given instant.
func (g *AccessGrant) Expired(now time.Time) bool {
	return g.ExpiresAt != nil && !now.Before(*g.ExpiresAt)
}

// GuestPurchase records a completed guest checkout. Insert-only audit trail:
// repeated guest purchases each get their own row so they can all be claimed
// as grants once the guest authenticates with the same email.
type GuestPurchase struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	SessionID   string    `gorm:"index:idx_guest_session_product,unique" json:"session_id"`
	ProductID   uint      `gorm:"index:idx_guest_session_product,unique" json:"product_id"`
	Email       string    `gorm:"index" json:"email"`
	AmountCents int64     `json:"amount_cents"`
	ClaimedAt   *time.Time `json:"claimed_at,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
