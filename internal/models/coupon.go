package models

import "github.com/uptrace/bun"

// Coupon discount types.
const (
	CouponTypeValue      = "value"      // flat amount off
	CouponTypePercentage = "percentage" // percent of the order total
)

// Coupon is a promo code with a finite number of redemptions left in
// Quantity. Quantity only ever decreases, and never below zero.
type Coupon struct {
	bun.BaseModel `bun:"table:coupons"`

	ID       string  `bun:"id,pk" json:"id"`
	Code     string  `bun:"code,notnull,unique" json:"code"`
	Type     string  `bun:"type,notnull" json:"type"`
	Amount   float64 `bun:"amount,notnull" json:"amount"`
	Quantity int     `bun:"quantity,notnull" json:"quantity"`
}

// Discount computes the discount this coupon grants against an order total.
func (c *Coupon) Discount(total float64) float64 {
	if c.Type == CouponTypePercentage {
		return total * (c.Amount / 100)
	}
	return c.Amount
}
