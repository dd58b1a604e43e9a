package services

// Reason codes for business-rule rejections. These travel back to callers as
// values, never as Go errors; a Go error from this package always means an
// infrastructure failure (and a payment confirmation carrying one must not be
// acknowledged, so the gateway retries it).
const (
	ReasonInvalidRequest   = "invalid_request"
	ReasonInvalidPrice     = "invalid_price"
	ReasonAmountMismatch   = "amount_mismatch"
	ReasonCurrencyMismatch = "currency_mismatch"
	ReasonCouponInvalid    = "coupon_invalid"
	ReasonOfferExpired     = "offer_expired"
	ReasonRateLimited      = "rate_limited"
)

// Policy for a coupon whose min_order_amount is not met.
const (
	MinOrderPolicyReject = "reject"
	MinOrderPolicyIgnore = "ignore"
)

// Identity is the purchaser as resolved by the auth middleware: an account id
// when the request carried a valid token, otherwise just the checkout email.
type Identity struct {
	UserID *uint
	Email  string
}

// Authenticated reports whether the identity maps to an account.
func (i Identity) Authenticated() bool {
	return i.UserID != nil
}
