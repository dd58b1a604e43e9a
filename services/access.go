package services

import (
	"errors"
	"time"

	"github.com/adithyan-km/PaySphere/models"
	"github.com/adithyan-km/PaySphere/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GrantWindow computes the validity window for a grant issued or renewed at
// now. A nil duration is perpetual; otherwise the expiry is the full duration
// from now, so a mid-term renewal restarts the clock rather than stacking
// onto the time that was left.
func GrantWindow(now time.Time, durationDays *int) (time.Time, *time.Time) {
	if durationDays == nil {
		return now, nil
	}
	expires := now.AddDate(0, 0, *durationDays)
	return now, &expires
}

// GrantAccess upserts the (user, product) access grant. A conflict means a
// renewal: granted_at and expires_at are recomputed from now.
func GrantAccess(tx *gorm.DB, userID, productID uint, durationDays *int, now time.Time) (*models.AccessGrant, error) {
	granted, expires := GrantWindow(now, durationDays)
	grant := models.AccessGrant{
		UserID:       userID,
		ProductID:    productID,
		GrantedAt:    granted,
		ExpiresAt:    expires,
		DurationDays: durationDays,
	}

	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"granted_at":    grant.GrantedAt,
			"expires_at":    grant.ExpiresAt,
			"duration_days": grant.DurationDays,
			"updated_at":    now,
		}),
	}).Create(&grant).Error
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

// RecordGuestPurchase appends to the guest purchase ledger. Insert-only: a
// replayed session is a no-op, and distinct sessions for the same email each
// keep their own row for later claiming.
func RecordGuestPurchase(tx *gorm.DB, sessionID, email string, productID uint, amountCents int64, now time.Time) (*models.GuestPurchase, error) {
	gp := models.GuestPurchase{
		SessionID:   sessionID,
		ProductID:   productID,
		Email:       email,
		AmountCents: amountCents,
		CreatedAt:   now,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "product_id"}},
		DoNothing: true,
	}).Create(&gp).Error
	if err != nil {
		return nil, err
	}
	return &gp, nil
}

// ConsumeSaleQuantity takes one slot of a limited-quantity sale. The bound
// lives in the WHERE clause, so concurrent settlements can never push
// sale_quantity_sold past sale_quantity_limit; the caller learns from the
// return value whether this buyer got a slot. A buyer who was quoted the sale
// price but misses a slot still settles at that price — the sale simply stops
// being offered to later buyers.
func ConsumeSaleQuantity(tx *gorm.DB, productID uint) (bool, error) {
	res := tx.Model(&models.Product{}).
		Where("id = ? AND (sale_quantity_limit IS NULL OR sale_quantity_sold < sale_quantity_limit)", productID).
		UpdateColumn("sale_quantity_sold", gorm.Expr("sale_quantity_sold + ?", 1))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// HasAccess reports whether the user holds an unexpired grant for the product.
func HasAccess(db *gorm.DB, userID, productID uint, now time.Time) (bool, error) {
	var grant models.AccessGrant
	err := db.Where("user_id = ? AND product_id = ?", userID, productID).First(&grant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !grant.Expired(now), nil
}

// ClaimGuestPurchases converts unclaimed guest purchases for the email into
// grants for the now-authenticated user. Returns how many were claimed.
func ClaimGuestPurchases(db *gorm.DB, userID uint, email string, now time.Time) (int, error) {
	claimed := 0
	err := db.Transaction(func(tx *gorm.DB) error {
		var purchases []models.GuestPurchase
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("email = ? AND claimed_at IS NULL", email).Find(&purchases).Error; err != nil {
			return err
		}
		for _, gp := range purchases {
			var product models.Product
			if err := tx.First(&product, gp.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					utils.LogError("Guest purchase %d references missing product %d", gp.ID, gp.ProductID)
					continue
				}
				return err
			}
			if _, err := GrantAccess(tx, userID, gp.ProductID, product.AutoGrantDurationDays, now); err != nil {
				return err
			}
			if err := tx.Model(&models.GuestPurchase{}).Where("id = ?", gp.ID).
				Update("claimed_at", now).Error; err != nil {
				return err
			}
			claimed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if claimed > 0 {
		utils.LogInfo("Claimed %d guest purchases for user %d", claimed, userID)
	}
	return claimed, nil
}
