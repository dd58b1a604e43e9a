package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func couponRow(id int, limitGlobal, usedCount int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "code", "active", "discount_type", "discount_value", "usage_limit_global", "used_count"}).
		AddRow(id, "SAVE20", true, "percentage", 20, limitGlobal, usedCount)
}

// A session already in the redemption ledger reports success without touching
// used_count. The ordered mock ends at the conflicting ledger insert, so any
// counter UPDATE would fail the expectations.
func TestRedeemCouponReplaySkipsCounter(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT \* FROM "coupons" WHERE(.+)FOR UPDATE`).
		WillReturnRows(couponRow(3, 100, 40))
	mock.ExpectQuery(`INSERT INTO "coupon_redemptions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	ok, detail, err := RedeemCoupon(db, 3, "cs_replay", Identity{Email: "buyer@example.com"}, time.Now())
	require.NoError(t, err)
	assert.True(t, ok, "a replayed session already holds its redemption")
	assert.Empty(t, detail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// The global limit is enforced by the conditional UPDATE, not by the count
// read earlier: when the WHERE clause matches no row the redemption fails and
// the caller rolls the settlement back.
func TestRedeemCouponGlobalLimitBoundsCounter(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT \* FROM "coupons" WHERE(.+)FOR UPDATE`).
		WillReturnRows(couponRow(3, 100, 100))
	mock.ExpectQuery(`INSERT INTO "coupon_redemptions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec(`UPDATE "coupons" SET "used_count"=used_count \+ \$1 WHERE \(?id = \$2 AND \(usage_limit_global IS NULL OR used_count < usage_limit_global\)`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, detail, err := RedeemCoupon(db, 3, "cs_full", Identity{Email: "buyer@example.com"}, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "coupon usage limit reached", detail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedeemCouponConsumesOneUse(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT \* FROM "coupons" WHERE(.+)FOR UPDATE`).
		WillReturnRows(couponRow(3, 100, 40))
	mock.ExpectQuery(`INSERT INTO "coupon_redemptions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec(`UPDATE "coupons" SET "used_count"=used_count \+ \$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, detail, err := RedeemCoupon(db, 3, "cs_fresh", Identity{Email: "buyer@example.com"}, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, detail)
	assert.NoError(t, mock.ExpectationsWereMet())
}
