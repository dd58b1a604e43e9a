package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func settlementRow(id int, sessionID string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "session_id", "product_id", "amount_cents", "currency", "source", "status"}).
		AddRow(id, sessionID, 1, 5000, "USD", "checkout", "completed")
}

func productRow(id int, priceCents int64, currency string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "active", "currency", "price_cents", "allow_custom_price", "tax_rate_percent"}).
		AddRow(id, "Product", true, currency, priceCents, false, 0)
}

func settleInput(sessionID string, amount int64) SettleInput {
	user := uint(9)
	return SettleInput{
		SessionID:   sessionID,
		ProductID:   1,
		AmountCents: amount,
		Currency:    "usd",
		Purchaser:   Identity{UserID: &user, Email: "buyer@example.com"},
		Now:         time.Now(),
	}
}

// A redelivered confirmation for a session that already settled must return
// the original row without writing anything. The strictly ordered mock proves
// no insert, redemption, or counter bump runs on the replay.
func TestSettleReplayWritesNothing(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT \* FROM "settlements" WHERE session_id = \$1`).
		WillReturnRows(settlementRow(7, "cs_replay"))
	mock.ExpectQuery(`SELECT \* FROM "one_time_offers"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	result, err := Settle(db, settleInput("cs_replay", 5000))
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.True(t, result.Replayed)
	require.NotNil(t, result.Settlement)
	assert.Equal(t, uint(7), result.Settlement.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Two deliveries of the same session can race past the initial lookup. The
// loser's conflicting insert affects zero rows; it must roll back its
// transaction and hand back the winner's settlement.
func TestSettleConflictRollsBackToExistingRow(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT \* FROM "settlements" WHERE session_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT \* FROM "products" WHERE \(?id = \$1 AND active`).
		WillReturnRows(productRow(1, 5000, "USD"))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "settlements"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()
	mock.ExpectQuery(`SELECT \* FROM "settlements" WHERE session_id = \$1`).
		WillReturnRows(settlementRow(7, "cs_race"))
	mock.ExpectQuery(`SELECT \* FROM "one_time_offers"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	result, err := Settle(db, settleInput("cs_race", 5000))
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.True(t, result.Replayed)
	require.NotNil(t, result.Settlement)
	assert.Equal(t, uint(7), result.Settlement.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A settlement with an accepted bump delivers both products: one grant for
// the main product and one for the bump, inside the same transaction.
func TestSettleGrantsBumpProduct(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT \* FROM "settlements" WHERE session_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT \* FROM "products" WHERE \(?id = \$1 AND active`).
		WillReturnRows(productRow(1, 5000, "USD"))
	mock.ExpectQuery(`SELECT \* FROM "order_bumps"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "main_product_id", "bump_product_id", "bump_price_cents", "active"}).
			AddRow(1, 1, 2, 1500, true))
	mock.ExpectQuery(`SELECT \* FROM "products" WHERE "products"\."id" = \$1`).
		WillReturnRows(productRow(2, 2000, "USD"))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "settlements"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
	mock.ExpectQuery(`SELECT \* FROM "products" WHERE "products"\."id" = \$1`).
		WillReturnRows(productRow(1, 5000, "USD"))
	mock.ExpectQuery(`INSERT INTO "access_grants"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery(`SELECT \* FROM "products" WHERE "products"\."id" = \$1`).
		WillReturnRows(productRow(2, 2000, "USD"))
	mock.ExpectQuery(`INSERT INTO "access_grants"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectCommit()
	mock.ExpectQuery(`SELECT \* FROM "one_time_offers"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	in := settleInput("cs_bump", 6500)
	bumpID := uint(2)
	in.BumpProductID = &bumpID

	result, err := Settle(db, in)
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.False(t, result.Replayed)
	require.NotNil(t, result.Settlement)
	require.NotNil(t, result.Settlement.BumpProductID)
	assert.Equal(t, uint(2), *result.Settlement.BumpProductID)
	assert.NoError(t, mock.ExpectationsWereMet(), "both grants must be written before commit")
}
