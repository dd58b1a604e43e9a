package models

import (
	"time"

	"gorm.io/gorm"
)

// Product is a sellable digital product. All monetary fields are integer
// minor currency units (cents); Currency is stored uppercase.
type Product struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `json:"name"`
	Active   bool   `gorm:"default:true" json:"active"`
	Currency string `gorm:"size:3" json:"currency"`

	// PriceCents is the regular price. Meaningless when AllowCustomPrice is set.
	PriceCents int64 `json:"price_cents"`

	// Time/quantity limited sale. SalePriceUntil nil means no deadline,
	// SaleQuantityLimit nil means unlimited.
	SalePriceCents    *int64     `json:"sale_price_cents,omitempty"`
	SalePriceUntil    *time.Time `json:"sale_price_until,omitempty"`
	SaleQuantityLimit *int64     `json:"sale_quantity_limit,omitempty"`
	SaleQuantitySold  int64      `gorm:"default:0" json:"sale_quantity_sold"`

	// Pay-what-you-want pricing.
	AllowCustomPrice    bool  `json:"allow_custom_price"`
	CustomPriceMinCents int64 `json:"custom_price_min_cents"`

	// Access granted on purchase expires after this many days; nil = perpetual.
	AutoGrantDurationDays *int `json:"auto_grant_duration_days,omitempty"`

	// Informational only, never part of the charged total.
	TaxRatePercent float64 `json:"tax_rate_percent"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
