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

// OTOOffer is a live one-time offer attached to a settlement: the target
// product at a discount, takeable until ExpiresAt.
type OTOOffer struct {
	SettlementID    uint      `json:"settlement_id"`
	OfferID         uint      `json:"offer_id"`
	TargetProductID uint      `json:"target_product_id"`
	PriceCents      int64     `json:"price_cents"`
	Currency        string    `json:"currency"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// Expired reports whether the offer window has closed.
func (o *OTOOffer) Expired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

// DiscountedPriceCents applies an offer discount to a base price, flooring
// at zero.
func DiscountedPriceCents(baseCents int64, discountType string, value int64) int64 {
	var price int64
	switch discountType {
	case models.DiscountTypePercentage:
		price = baseCents - baseCents*value/100
	case models.DiscountTypeFixed:
		price = baseCents - value
	default:
		price = baseCents
	}
	if price < 0 {
		return 0
	}
	return price
}

// OTOAcceptResult is the outcome of accepting an offer. Replayed means the
// offer had already been accepted and the existing settlement is returned.
type OTOAcceptResult struct {
	Accepted   bool
	Replayed   bool
	Reason     string
	Detail     string
	Settlement *models.Settlement
	Grant      *models.AccessGrant
}

// OfferForSettlement returns the live offer for a settlement, or nil when no
// offer is configured, the buyer already holds the target, or the window has
// closed. Only checkout settlements carry offers — an OTO purchase never
// chains another OTO.
func OfferForSettlement(db *gorm.DB, s *models.Settlement, now time.Time) (*OTOOffer, error) {
	offer, err := buildOffer(db, s)
	if err != nil || offer == nil {
		return nil, err
	}
	if offer.Expired(now) {
		return nil, nil
	}
	return offer, nil
}

// buildOffer assembles the offer without the expiry check, so AcceptOTO can
// distinguish "expired" from "never existed".
func buildOffer(db *gorm.DB, s *models.Settlement) (*OTOOffer, error) {
	if s.Source != models.SettlementSourceCheckout {
		return nil, nil
	}

	var cfg models.OneTimeOffer
	err := db.Where("product_id = ? AND active = ?", s.ProductID, true).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var target models.Product
	err = db.Where("id = ? AND active = ?", cfg.TargetProductID, true).First(&target).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if target.AllowCustomPrice {
		// A fixed discount against a buyer-named price is meaningless.
		return nil, nil
	}

	if s.UserID != nil {
		held, err := HasAccess(db, *s.UserID, target.ID, s.CreatedAt)
		if err != nil {
			return nil, err
		}
		if held {
			return nil, nil
		}
	}

	return &OTOOffer{
		SettlementID:    s.ID,
		OfferID:         cfg.ID,
		TargetProductID: target.ID,
		PriceCents:      DiscountedPriceCents(target.PriceCents, cfg.DiscountType, cfg.DiscountValue),
		Currency:        target.Currency,
		ExpiresAt:       s.CreatedAt.Add(time.Duration(cfg.DurationMinutes) * time.Minute),
	}, nil
}

// PurchaserMatches reports whether the caller identity is the settlement's
// purchaser. Settlements with an authenticated buyer require the same user;
// guest settlements match on email, case-insensitively. A guest settlement
// with no email matches nobody.
func PurchaserMatches(s *models.Settlement, caller Identity) bool {
	if s.UserID != nil {
		return caller.UserID != nil && *caller.UserID == *s.UserID
	}
	return s.Email != "" && strings.EqualFold(caller.Email, s.Email)
}

// AcceptOTO takes the offer attached to a settlement: a second settlement for
// the target product at the discounted price plus a grant, in one
// transaction. The derived session id "oto:<parent session>" reuses the
// settlement uniqueness constraint, so a repeat accept is a no-op returning
// the existing rows. Only the settlement's own purchaser may accept.
func AcceptOTO(db *gorm.DB, settlementID uint, caller Identity, now time.Time) (OTOAcceptResult, error) {
	var parent models.Settlement
	if err := db.First(&parent, settlementID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return OTOAcceptResult{Reason: ReasonInvalidRequest, Detail: "settlement not found"}, nil
		}
		return OTOAcceptResult{}, err
	}

	// Same answer as an unknown id, so settlement ids cannot be probed for
	// live offers.
	if !PurchaserMatches(&parent, caller) {
		return OTOAcceptResult{Reason: ReasonInvalidRequest, Detail: "settlement not found"}, nil
	}

	// Repeat accept: hand back what the first accept produced.
	var existing models.OTOAcceptance
	err := db.Where("settlement_id = ?", parent.ID).First(&existing).Error
	if err == nil {
		return replayAccept(db, &parent, &existing, now)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return OTOAcceptResult{}, err
	}

	offer, err := buildOffer(db, &parent)
	if err != nil {
		return OTOAcceptResult{}, err
	}
	if offer == nil {
		return OTOAcceptResult{Reason: ReasonOfferExpired, Detail: "no offer available for this settlement"}, nil
	}
	if offer.Expired(now) {
		return OTOAcceptResult{Reason: ReasonOfferExpired, Detail: "the offer window has closed"}, nil
	}

	var target models.Product
	if err := db.First(&target, offer.TargetProductID).Error; err != nil {
		return OTOAcceptResult{}, err
	}

	settlement := models.Settlement{
		SessionID:     "oto:" + parent.SessionID,
		ProductID:     offer.TargetProductID,
		AmountCents:   offer.PriceCents,
		Currency:      offer.Currency,
		DiscountCents: target.PriceCents - offer.PriceCents,
		UserID:        parent.UserID,
		Email:         parent.Email,
		Source:        models.SettlementSourceOTO,
		Status:        models.SettlementStatusCompleted,
	}

	var grant *models.AccessGrant

	tx := db.Begin()
	if tx.Error != nil {
		return OTOAcceptResult{}, tx.Error
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
		return OTOAcceptResult{}, res.Error
	}
	if res.RowsAffected == 0 {
		// A concurrent accept won; fall back to the replay path.
		tx.Rollback()
		var acc models.OTOAcceptance
		if err := db.Where("settlement_id = ?", parent.ID).First(&acc).Error; err != nil {
			return OTOAcceptResult{}, err
		}
		return replayAccept(db, &parent, &acc, now)
	}

	if parent.UserID != nil {
		grant, err = GrantAccess(tx, *parent.UserID, offer.TargetProductID, target.AutoGrantDurationDays, now)
		if err != nil {
			tx.Rollback()
			return OTOAcceptResult{}, err
		}
	} else {
		if _, err := RecordGuestPurchase(tx, settlement.SessionID, parent.Email, offer.TargetProductID, offer.PriceCents, now); err != nil {
			tx.Rollback()
			return OTOAcceptResult{}, err
		}
	}

	acceptance := models.OTOAcceptance{
		SettlementID:    parent.ID,
		OfferID:         offer.OfferID,
		NewSettlementID: settlement.ID,
		AcceptedAt:      now,
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "settlement_id"}},
		DoNothing: true,
	}).Create(&acceptance).Error; err != nil {
		tx.Rollback()
		return OTOAcceptResult{}, err
	}

	if err := tx.Commit().Error; err != nil {
		return OTOAcceptResult{}, err
	}

	utils.LogInfo("Accepted one-time offer for settlement %d: product %d at %d %s",
		parent.ID, offer.TargetProductID, offer.PriceCents, offer.Currency)

	return OTOAcceptResult{Accepted: true, Settlement: &settlement, Grant: grant}, nil
}

func replayAccept(db *gorm.DB, parent *models.Settlement, acc *models.OTOAcceptance, now time.Time) (OTOAcceptResult, error) {
	var settlement models.Settlement
	if err := db.First(&settlement, acc.NewSettlementID).Error; err != nil {
		return OTOAcceptResult{}, err
	}
	result := OTOAcceptResult{Accepted: true, Replayed: true, Settlement: &settlement}
	if parent.UserID != nil {
		var grant models.AccessGrant
		err := db.Where("user_id = ? AND product_id = ?", *parent.UserID, settlement.ProductID).First(&grant).Error
		if err == nil {
			result.Grant = &grant
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return OTOAcceptResult{}, err
		}
	}
	return result, nil
}
