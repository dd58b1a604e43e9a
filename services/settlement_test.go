package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func usdCharge(total int64) *ExpectedCharge {
	return &ExpectedCharge{ProductID: 1, TotalCents: total, Currency: "USD"}
}

func TestValidateReportedExactAmount(t *testing.T) {
	charge := usdCharge(5500)

	reason, _ := ValidateReported(charge, 5500, "USD", 0)
	assert.Empty(t, reason)

	// No rounding slack in either direction.
	reason, _ = ValidateReported(charge, 5501, "USD", 0)
	assert.Equal(t, ReasonAmountMismatch, reason)
	reason, _ = ValidateReported(charge, 5499, "USD", 0)
	assert.Equal(t, ReasonAmountMismatch, reason)
}

func TestValidateReportedCurrencyCaseInsensitive(t *testing.T) {
	charge := usdCharge(5200)

	// Gateways report lowercase; the catalog stores uppercase.
	reason, _ := ValidateReported(charge, 5200, "usd", 0)
	assert.Empty(t, reason)

	reason, _ = ValidateReported(charge, 5200, "EUR", 0)
	assert.Equal(t, ReasonCurrencyMismatch, reason)
}

func TestValidateReportedBumpScenarios(t *testing.T) {
	// main $50.00, bump row $15.00, 20% coupon excluding bumps -> $55.00.
	main, bump, bumpProduct := bumpScenario()
	coupon := percentCoupon(20)
	coupon.ExcludeOrderBumps = true
	cctx, in := chargeInput(main, coupon.Code)

	charge, reason, _ := ComputeCharge(main, bump, bumpProduct, coupon, cctx, in)
	assert.Empty(t, reason)
	r, _ := ValidateReported(charge, 5500, "usd", 0)
	assert.Empty(t, r)

	// Same catalog with the discount over the full subtotal -> $52.00; the
	// excluded-bump total must now be rejected.
	coupon.ExcludeOrderBumps = false
	charge, reason, _ = ComputeCharge(main, bump, bumpProduct, coupon, cctx, in)
	assert.Empty(t, reason)
	r, _ = ValidateReported(charge, 5200, "usd", 0)
	assert.Empty(t, r)
	r, _ = ValidateReported(charge, 5500, "usd", 0)
	assert.Equal(t, ReasonAmountMismatch, r)

	// A bump nobody linked is dropped from the computation, so a settlement
	// that includes its price cannot match.
	charge, reason, _ = ComputeCharge(main, nil, bumpProduct, nil, CouponContext{ProductID: main.ID, Now: in.Now}, ChargeInput{ProductID: main.ID, Now: in.Now})
	assert.Empty(t, reason)
	r, _ = ValidateReported(charge, 6500, "usd", 0)
	assert.Equal(t, ReasonAmountMismatch, r)
	r, _ = ValidateReported(charge, 5000, "usd", 0)
	assert.Empty(t, r)
}

func TestValidateReportedPWYW(t *testing.T) {
	charge := &ExpectedCharge{ProductID: 3, TotalCents: 800, Currency: "USD", PWYW: true}

	// At or above the configured minimum: accepted, no equality check.
	reason, _ := ValidateReported(charge, 800, "usd", 500)
	assert.Empty(t, reason)
	reason, _ = ValidateReported(charge, 2000, "usd", 500)
	assert.Empty(t, reason)

	reason, _ = ValidateReported(charge, 499, "usd", 500)
	assert.Equal(t, ReasonAmountMismatch, reason)

	// The processor floor binds even when the product minimum is lower.
	reason, _ = ValidateReported(charge, MinChargeCents-1, "usd", 10)
	assert.Equal(t, ReasonAmountMismatch, reason)
}
