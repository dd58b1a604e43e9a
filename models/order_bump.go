package models

import (
	"time"
)

// OrderBump offers a secondary product at checkout for a price set on the
// bump itself, independent of the bump product's own catalog price.
type OrderBump struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	MainProductID  uint      `gorm:"index:idx_bump_main_bump,unique" json:"main_product_id"`
	BumpProductID  uint      `gorm:"index:idx_bump_main_bump,unique" json:"bump_product_id"`
	BumpPriceCents int64     `json:"bump_price_cents"`
	Active         bool      `gorm:"default:true" json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
