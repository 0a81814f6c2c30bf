package coupon_test

import (
	"context"
	"database/sql"
	"testing"

	"event-ticketing/internal/coupon"
	"event-ticketing/internal/database/migrations"
	"event-ticketing/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	if err := migrations.Reset(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedCoupon(t *testing.T, db *bun.DB, c models.Coupon) {
	t.Helper()
	if _, err := db.NewInsert().Model(&c).Exec(context.Background()); err != nil {
		t.Fatalf("seed coupon: %v", err)
	}
}

func couponQuantity(t *testing.T, db *bun.DB, id string) int {
	t.Helper()
	var c models.Coupon
	if err := db.NewSelect().Model(&c).Where("id = ?", id).Scan(context.Background()); err != nil {
		t.Fatalf("read coupon: %v", err)
	}
	return c.Quantity
}

func TestFindByCode(t *testing.T) {
	db := setupTestDB(t)
	seedCoupon(t, db, models.Coupon{ID: "cpn-1", Code: "SUMMER10", Type: models.CouponTypePercentage, Amount: 10, Quantity: 5})
	ledger := &coupon.DB{Bun: db}

	c, err := ledger.FindByCode(context.Background(), "SUMMER10")
	assert.NoError(t, err)
	assert.Equal(t, "cpn-1", c.ID)
	assert.Equal(t, models.CouponTypePercentage, c.Type)
	assert.Equal(t, 10.0, c.Amount)
}

func TestFindByCodeIsCaseSensitive(t *testing.T) {
	db := setupTestDB(t)
	seedCoupon(t, db, models.Coupon{ID: "cpn-1", Code: "SUMMER10", Type: models.CouponTypeValue, Amount: 5, Quantity: 5})
	ledger := &coupon.DB{Bun: db}

	_, err := ledger.FindByCode(context.Background(), "summer10")
	assert.ErrorIs(t, err, coupon.ErrNotFound)
}

func TestFindByCodeNotFound(t *testing.T) {
	db := setupTestDB(t)
	ledger := &coupon.DB{Bun: db}

	_, err := ledger.FindByCode(context.Background(), "NOPE")
	assert.ErrorIs(t, err, coupon.ErrNotFound)
}

func TestRedeemDecrementsUntilExhausted(t *testing.T) {
	db := setupTestDB(t)
	seedCoupon(t, db, models.Coupon{ID: "cpn-1", Code: "ONCE", Type: models.CouponTypeValue, Amount: 5, Quantity: 2})
	ledger := &coupon.DB{Bun: db}
	ctx := context.Background()

	assert.NoError(t, ledger.Redeem(ctx, "cpn-1"))
	assert.Equal(t, 1, couponQuantity(t, db, "cpn-1"))

	assert.NoError(t, ledger.Redeem(ctx, "cpn-1"))
	assert.Equal(t, 0, couponQuantity(t, db, "cpn-1"))

	assert.ErrorIs(t, ledger.Redeem(ctx, "cpn-1"), coupon.ErrExhausted)
	assert.Equal(t, 0, couponQuantity(t, db, "cpn-1"))
}

func TestRedeemUnknownCouponIsExhausted(t *testing.T) {
	db := setupTestDB(t)
	ledger := &coupon.DB{Bun: db}

	assert.ErrorIs(t, ledger.Redeem(context.Background(), "missing"), coupon.ErrExhausted)
}

func TestRestoreGivesRedemptionBack(t *testing.T) {
	db := setupTestDB(t)
	seedCoupon(t, db, models.Coupon{ID: "cpn-1", Code: "ONCE", Type: models.CouponTypeValue, Amount: 5, Quantity: 1})
	ledger := &coupon.DB{Bun: db}
	ctx := context.Background()

	assert.NoError(t, ledger.Redeem(ctx, "cpn-1"))
	assert.ErrorIs(t, ledger.Redeem(ctx, "cpn-1"), coupon.ErrExhausted)

	assert.NoError(t, ledger.Restore(ctx, "cpn-1"))
	assert.Equal(t, 1, couponQuantity(t, db, "cpn-1"))
	assert.NoError(t, ledger.Redeem(ctx, "cpn-1"))
}
