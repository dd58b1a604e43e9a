package services

import (
	"context"

	"github.com/google/uuid"
)

// CheckoutItem is one line of a checkout session handed to the gateway.
type CheckoutItem struct {
	ProductID   uint   `json:"product_id"`
	Name        string `json:"name"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

// PaymentGateway is the external processor, reduced to the one call this
// service needs. Confirmations arrive out of band on the confirm endpoint
// with at-least-once delivery.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, items []CheckoutItem) (string, error)
}

// LocalGateway mints session ids locally. It stands in for a real processor
// client, which is wired at deployment and deliberately not part of this
// codebase.
type LocalGateway struct{}

func (LocalGateway) CreateCheckoutSession(ctx context.Context, items []CheckoutItem) (string, error) {
	return "cs_" + uuid.New().String(), nil
}
