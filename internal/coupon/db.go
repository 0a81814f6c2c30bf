package coupon

import (
	"context"
	"database/sql"
	"errors"

	"event-ticketing/internal/models"

	"github.com/uptrace/bun"
)

var (
	ErrNotFound  = errors.New("invalid promo code")
	ErrExhausted = errors.New("promo code already used up")
)

// DB is the coupon ledger. Redemption is a conditional decrement with a
// floor of zero, so a coupon can never be redeemed past its quantity even
// under concurrent checkouts.
type DB struct {
	Bun *bun.DB
}

// FindByCode looks a coupon up by its exact code. Matching is
// case-sensitive.
func (d *DB) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var c models.Coupon
	err := d.Bun.NewSelect().
		Model(&c).
		Where("code = ?", code).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Redeem consumes one use of the coupon. Returns ErrExhausted when no
// redemptions are left at write time.
func (d *DB) Redeem(ctx context.Context, couponID string) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Coupon)(nil)).
		Set("quantity = quantity - 1").
		Where("id = ?", couponID).
		Where("quantity > 0").
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrExhausted
	}
	return nil
}

// Restore gives one redemption back. Compensating step for a checkout
// that failed after Redeem.
func (d *DB) Restore(ctx context.Context, couponID string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Coupon)(nil)).
		Set("quantity = quantity + 1").
		Where("id = ?", couponID).
		Exec(ctx)
	return err
}
