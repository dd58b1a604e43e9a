package services

import (
	"time"

	"github.com/adithyan-km/PaySphere/models"
)

// MinChargeCents is the smallest amount the payment processor will charge.
// Pay-what-you-want input below it is rejected outright.
const MinChargeCents int64 = 50

// SaleActive reports whether the product's discounted price applies at the
// given instant. The quantity check here reads sale_quantity_sold without a
// lock and is advisory only: the hard limit is enforced by the conditional
// UPDATE in ConsumeSaleQuantity. Two concurrent buyers may both be quoted the
// sale price; at most sale_quantity_limit of them consume a sale slot.
func SaleActive(p *models.Product, now time.Time) bool {
	if p.SalePriceCents == nil || *p.SalePriceCents >= p.PriceCents {
		return false
	}
	if p.SalePriceUntil != nil && !now.Before(*p.SalePriceUntil) {
		return false
	}
	if p.SaleQuantityLimit != nil && p.SaleQuantitySold >= *p.SaleQuantityLimit {
		return false
	}
	return true
}

// ResolveUnitPrice computes the unit price for a single product at a point in
// time. For pay-what-you-want products the buyer's requested amount is
// required and clamped up to the configured minimum; for everything else the
// sale price applies while the sale is live, the regular price otherwise.
// A non-empty reason means the request was rejected.
func ResolveUnitPrice(p *models.Product, now time.Time, requestedCents *int64) (int64, string) {
	if p.AllowCustomPrice {
		if requestedCents == nil || *requestedCents <= 0 || *requestedCents < MinChargeCents {
			return 0, ReasonInvalidPrice
		}
		if *requestedCents < p.CustomPriceMinCents {
			return p.CustomPriceMinCents, ""
		}
		return *requestedCents, ""
	}
	if SaleActive(p, now) {
		return *p.SalePriceCents, ""
	}
	return p.PriceCents, ""
}
