package models

import (
	"time"
)

// OneTimeOffer configures a post-purchase upsell: after a settlement for
// ProductID, the buyer is offered TargetProductID at a discount for
// DurationMinutes counted from the settlement.
type OneTimeOffer struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	ProductID       uint   `gorm:"uniqueIndex" json:"product_id"`
	TargetProductID uint   `json:"target_product_id"`
	DiscountType    string `json:"discount_type"` // percentage or fixed
	DiscountValue   int64  `json:"discount_value"`
	DurationMinutes int    `json:"duration_minutes"`
	Active          bool   `gorm:"default:true" json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OTOAcceptance records that the offer attached to a settlement was taken.
// The unique SettlementID makes a repeat accept a no-op.
type OTOAcceptance struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	SettlementID    uint      `gorm:"uniqueIndex" json:"settlement_id"`
	OfferID         uint      `json:"offer_id"`
	NewSettlementID uint      `json:"new_settlement_id"`
	AcceptedAt      time.Time `json:"accepted_at"`
}
