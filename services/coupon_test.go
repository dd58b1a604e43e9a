package services

import (
	"testing"
	"time"

	"github.com/adithyan-km/PaySphere/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func percentCoupon(value int64) *models.Coupon {
	return &models.Coupon{ID: 1, Code: "SAVE", Active: true, DiscountType: models.DiscountTypePercentage, DiscountValue: value}
}

func baseCtx(base int64) CouponContext {
	return CouponContext{
		ProductID:      7,
		BaseCents:      base,
		OrderCents:     base,
		Now:            time.Now(),
		MinOrderPolicy: MinOrderPolicyReject,
	}
}

func TestEvaluateCouponPercentage(t *testing.T) {
	eval := EvaluateCoupon(percentCoupon(20), baseCtx(5000))
	require.True(t, eval.Valid)
	assert.Equal(t, int64(1000), eval.DiscountCents)
}

func TestEvaluateCouponFixed(t *testing.T) {
	c := &models.Coupon{Active: true, DiscountType: models.DiscountTypeFixed, DiscountValue: 700}
	eval := EvaluateCoupon(c, baseCtx(5000))
	require.True(t, eval.Valid)
	assert.Equal(t, int64(700), eval.DiscountCents)

	// Fixed discount larger than the base cannot push the total negative.
	eval = EvaluateCoupon(c, baseCtx(500))
	require.True(t, eval.Valid)
	assert.Equal(t, int64(500), eval.DiscountCents)
}

func TestEvaluateCouponMaxDiscountClamp(t *testing.T) {
	c := percentCoupon(50)
	max := int64(800)
	c.MaxDiscountCents = &max

	eval := EvaluateCoupon(c, baseCtx(5000))
	require.True(t, eval.Valid)
	assert.Equal(t, int64(800), eval.DiscountCents)
}

func TestEvaluateCouponInactive(t *testing.T) {
	c := percentCoupon(20)
	c.Active = false
	eval := EvaluateCoupon(c, baseCtx(5000))
	assert.False(t, eval.Valid)
}

func TestEvaluateCouponUnknown(t *testing.T) {
	eval := EvaluateCoupon(nil, baseCtx(5000))
	assert.False(t, eval.Valid)
	assert.Equal(t, "unknown coupon", eval.Detail)
}

func TestEvaluateCouponValidityWindow(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	c := percentCoupon(20)

	from := now.Add(time.Hour)
	c.ValidFrom = &from
	ctx := baseCtx(5000)
	ctx.Now = now
	assert.False(t, EvaluateCoupon(c, ctx).Valid, "not yet valid")

	c.ValidFrom = nil
	until := now.Add(-time.Hour)
	c.ValidUntil = &until
	assert.False(t, EvaluateCoupon(c, ctx).Valid, "expired")

	until = now.Add(time.Hour)
	c.ValidUntil = &until
	assert.True(t, EvaluateCoupon(c, ctx).Valid)
}

func TestEvaluateCouponProductScope(t *testing.T) {
	c := percentCoupon(20)
	c.AllowedProducts = []models.CouponProduct{{CouponID: 1, ProductID: 9}}

	eval := EvaluateCoupon(c, baseCtx(5000)) // ctx product is 7
	assert.False(t, eval.Valid)

	c.AllowedProducts = append(c.AllowedProducts, models.CouponProduct{CouponID: 1, ProductID: 7})
	assert.True(t, EvaluateCoupon(c, baseCtx(5000)).Valid)

	// Empty scope means every product qualifies.
	c.AllowedProducts = nil
	assert.True(t, EvaluateCoupon(c, baseCtx(5000)).Valid)
}

func TestEvaluateCouponUsageLimits(t *testing.T) {
	c := percentCoupon(20)
	limit := int64(100)
	c.UsageLimitGlobal = &limit
	c.UsedCount = 100
	assert.False(t, EvaluateCoupon(c, baseCtx(5000)).Valid, "global limit reached")

	c.UsedCount = 99
	assert.True(t, EvaluateCoupon(c, baseCtx(5000)).Valid)

	perUser := int64(1)
	c.UsageLimitPerUser = &perUser
	ctx := baseCtx(5000)
	ctx.PerUserUsed = 1
	assert.False(t, EvaluateCoupon(c, ctx).Valid, "per-user limit reached")
}

func TestEvaluateCouponFirstPurchaseOnly(t *testing.T) {
	c := percentCoupon(20)
	c.FirstPurchaseOnly = true

	ctx := baseCtx(5000)
	ctx.PriorPurchases = 1
	assert.False(t, EvaluateCoupon(c, ctx).Valid)

	ctx.PriorPurchases = 0
	assert.True(t, EvaluateCoupon(c, ctx).Valid)
}

func TestEvaluateCouponMinOrderPolicies(t *testing.T) {
	c := percentCoupon(20)
	c.MinOrderCents = 10000

	// Default policy rejects the coupon outright.
	eval := EvaluateCoupon(c, baseCtx(5000))
	assert.False(t, eval.Valid)

	// The ignore policy keeps the order but drops the discount.
	ctx := baseCtx(5000)
	ctx.MinOrderPolicy = MinOrderPolicyIgnore
	eval = EvaluateCoupon(c, ctx)
	require.True(t, eval.Valid)
	assert.True(t, eval.Ignored)
	assert.Zero(t, eval.DiscountCents)
}

func TestEvaluateCouponBadDiscountType(t *testing.T) {
	c := &models.Coupon{Active: true, DiscountType: "bogus", DiscountValue: 20}
	assert.False(t, EvaluateCoupon(c, baseCtx(5000)).Valid)

	c = percentCoupon(150)
	assert.False(t, EvaluateCoupon(c, baseCtx(5000)).Valid, "percentage above 100")
}
