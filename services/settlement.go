package services

import (
	"errors"
	"strings"
	"time"

	"github.com/adithyan-km/PaySphere/models"
	"github.com/adithyan-km/PaySphere/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettleInput is a payment confirmation as reported by the gateway. Nothing
// in it is trusted: amount and currency are validated against a fresh
// server-side recomputation before any state changes.
type SettleInput struct {
	SessionID      string
	ProductID      uint
	BumpProductID  *uint
	CouponCode     string
	AmountCents    int64
	Currency       string
	Purchaser      Identity
	Now            time.Time
	MinOrderPolicy string
}

// SettleResult is the outcome of processing a confirmation. Accepted with
// Replayed set means the session had already settled and this delivery was a
// no-op. A false Accepted carries the rejection reason; the caller decides
// whether to acknowledge the event based on it.
type SettleResult struct {
	Accepted   bool
	Replayed   bool
	Reason     string
	Detail     string
	Settlement *models.Settlement
	Grant      *models.AccessGrant
	Offer      *OTOOffer
}

func rejected(reason, detail string) SettleResult {
	return SettleResult{Reason: reason, Detail: detail}
}

// ValidateReported gates a gateway-reported amount and currency against the
// recomputed charge. Currency compares case-insensitively (gateways report
// lowercase, the catalog stores uppercase). Fixed-price totals must match
// exactly in minor units — no rounding tolerance. Pay-what-you-want products
// have no equality to check; the configured minimum and the processor floor
// are the only bounds. Empty reason means accepted.
func ValidateReported(charge *ExpectedCharge, amountCents int64, currency string, customPriceMinCents int64) (string, string) {
	if !strings.EqualFold(currency, charge.Currency) {
		return ReasonCurrencyMismatch, "reported currency does not match"
	}
	if charge.PWYW {
		if amountCents < customPriceMinCents || amountCents < MinChargeCents {
			return ReasonAmountMismatch, "amount is below the product minimum"
		}
		return "", ""
	}
	if amountCents != charge.TotalCents {
		return ReasonAmountMismatch, "reported amount does not match the expected total"
	}
	return "", ""
}

// Settle validates and persists one payment confirmation. The whole mutation
// — settlement row, coupon redemption, sale-slot consumption, access grant —
// happens in a single transaction, and the unique session id makes the whole
// operation idempotent under at-least-once delivery.
func Settle(db *gorm.DB, in SettleInput) (SettleResult, error) {
	if in.SessionID == "" || in.ProductID == 0 {
		return rejected(ReasonInvalidRequest, "session_id and product_id are required"), nil
	}
	if in.AmountCents <= 0 {
		return rejected(ReasonInvalidRequest, "reported amount must be positive"), nil
	}
	if !in.Purchaser.Authenticated() && in.Purchaser.Email == "" {
		return rejected(ReasonInvalidRequest, "purchaser identity is required"), nil
	}

	// Replay fast path: a session that already settled must return the same
	// success regardless of what the catalog looks like now.
	if existing, err := findSettlement(db, in.SessionID); err != nil {
		return SettleResult{}, err
	} else if existing != nil {
		return replaySuccess(db, existing, in.Now)
	}

	chargeIn := ChargeInput{
		ProductID:      in.ProductID,
		BumpProductID:  in.BumpProductID,
		CouponCode:     in.CouponCode,
		Identity:       in.Purchaser,
		Now:            in.Now,
		MinOrderPolicy: in.MinOrderPolicy,
	}

	// The reported amount is the PWYW bid; for fixed-price products the
	// resolver ignores it.
	chargeIn.CustomPriceCents = &in.AmountCents

	charge, reason, detail, err := ComposeExpectedCharge(db, chargeIn)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return rejected(ReasonInvalidRequest, "product not available"), nil
		}
		return SettleResult{}, err
	}
	if reason != "" {
		return rejected(reason, detail), nil
	}

	customMin := int64(0)
	if charge.PWYW {
		var product models.Product
		if err := db.First(&product, in.ProductID).Error; err != nil {
			return SettleResult{}, err
		}
		customMin = product.CustomPriceMinCents
	}
	if reason, detail := ValidateReported(charge, in.AmountCents, in.Currency, customMin); reason != "" {
		utils.LogError("SECURITY: %s for session %s: reported %d %s, expected %d %s",
			reason, in.SessionID, in.AmountCents, in.Currency, charge.TotalCents, charge.Currency)
		return rejected(reason, detail), nil
	}

	settlement := models.Settlement{
		SessionID:     in.SessionID,
		ProductID:     in.ProductID,
		BumpProductID: charge.BumpProductID,
		AmountCents:   in.AmountCents,
		Currency:      charge.Currency,
		CouponCode:    charge.CouponCode,
		DiscountCents: charge.DiscountCents,
		UserID:        in.Purchaser.UserID,
		Email:         in.Purchaser.Email,
		Source:        models.SettlementSourceCheckout,
		Status:        models.SettlementStatusCompleted,
	}

	var grant *models.AccessGrant
	replayed := false
	couponDetail := ""

	tx := db.Begin()
	if tx.Error != nil {
		return SettleResult{}, tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoNothing: true,
	}).Create(&settlement)
	if res.Error != nil {
		tx.Rollback()
		return SettleResult{}, res.Error
	}
	if res.RowsAffected == 0 {
		// Lost the race against a concurrent delivery of the same session.
		tx.Rollback()
		existing, err := findSettlement(db, in.SessionID)
		if err != nil {
			return SettleResult{}, err
		}
		if existing == nil {
			return SettleResult{}, errors.New("settlement conflict but no row found")
		}
		return replaySuccess(db, existing, in.Now)
	}

	if charge.CouponID() != 0 {
		ok, detail, err := RedeemCoupon(tx, charge.CouponID(), in.SessionID, in.Purchaser, in.Now)
		if err != nil {
			tx.Rollback()
			return SettleResult{}, err
		}
		if !ok {
			// The limit filled between verification and redemption. Honoring
			// the discount would overshoot it, so the settlement is rejected
			// and nothing persists.
			tx.Rollback()
			utils.LogError("Coupon %s exhausted during settlement of session %s: %s",
				charge.CouponCode, in.SessionID, detail)
			couponDetail = detail
			return rejected(ReasonCouponInvalid, couponDetail), nil
		}
	}

	if charge.SaleApplied {
		got, err := ConsumeSaleQuantity(tx, in.ProductID)
		if err != nil {
			tx.Rollback()
			return SettleResult{}, err
		}
		if !got {
			// Quoted the sale price but the quota filled first. The validated
			// amount stands; the sale just closes for later buyers.
			utils.LogInfo("Sale quota exhausted for product %d; session %s keeps quoted price", in.ProductID, in.SessionID)
		}
	}

	var product models.Product
	if err := tx.First(&product, in.ProductID).Error; err != nil {
		tx.Rollback()
		return SettleResult{}, err
	}
	if in.Purchaser.Authenticated() {
		grant, err = GrantAccess(tx, *in.Purchaser.UserID, in.ProductID, product.AutoGrantDurationDays, in.Now)
		if err != nil {
			tx.Rollback()
			return SettleResult{}, err
		}
	} else {
		if _, err := RecordGuestPurchase(tx, in.SessionID, in.Purchaser.Email, in.ProductID, in.AmountCents, in.Now); err != nil {
			tx.Rollback()
			return SettleResult{}, err
		}
	}

	// The bump was paid for too, so it is delivered in the same transaction.
	if charge.BumpProductID != nil {
		if in.Purchaser.Authenticated() {
			var bumpProduct models.Product
			if err := tx.First(&bumpProduct, *charge.BumpProductID).Error; err != nil {
				tx.Rollback()
				return SettleResult{}, err
			}
			if _, err := GrantAccess(tx, *in.Purchaser.UserID, bumpProduct.ID, bumpProduct.AutoGrantDurationDays, in.Now); err != nil {
				tx.Rollback()
				return SettleResult{}, err
			}
		} else {
			if _, err := RecordGuestPurchase(tx, in.SessionID, in.Purchaser.Email, *charge.BumpProductID, charge.BumpCents, in.Now); err != nil {
				tx.Rollback()
				return SettleResult{}, err
			}
		}
	}

	if err := tx.Commit().Error; err != nil {
		return SettleResult{}, err
	}

	utils.LogInfo("Settled session %s: product %d, amount %d %s, coupon %q",
		in.SessionID, in.ProductID, in.AmountCents, charge.Currency, charge.CouponCode)

	offer, err := OfferForSettlement(db, &settlement, in.Now)
	if err != nil {
		// The settlement is committed; a failed offer lookup must not undo it.
		utils.LogError("Failed to load one-time offer for session %s: %v", in.SessionID, err)
		offer = nil
	}

	return SettleResult{
		Accepted:   true,
		Replayed:   replayed,
		Settlement: &settlement,
		Grant:      grant,
		Offer:      offer,
	}, nil
}

func findSettlement(db *gorm.DB, sessionID string) (*models.Settlement, error) {
	var s models.Settlement
	err := db.Where("session_id = ?", sessionID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func replaySuccess(db *gorm.DB, existing *models.Settlement, now time.Time) (SettleResult, error) {
	utils.LogInfo("Replayed settlement for session %s, returning existing row", existing.SessionID)
	offer, err := OfferForSettlement(db, existing, now)
	if err != nil {
		utils.LogError("Failed to load one-time offer for replayed session %s: %v", existing.SessionID, err)
		offer = nil
	}
	return SettleResult{
		Accepted:   true,
		Replayed:   true,
		Settlement: existing,
		Offer:      offer,
	}, nil
}
