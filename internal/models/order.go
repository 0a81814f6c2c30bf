package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Recognized payment methods for checkout.
const (
	PaymentMethodStripe    = "Stripe"
	PaymentMethodPaypal    = "Paypal"
	PaymentMethodETransfer = "ETransfer"
)

type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID             string    `bun:"id,pk" json:"id"`
	EventID        string    `bun:"event_id,notnull" json:"eventID"`
	AccountID      string    `bun:"account_id,notnull" json:"accountID"`
	CouponID       string    `bun:"coupon_id,nullzero" json:"couponID,omitempty"`
	Subtotal       float64   `bun:"subtotal,notnull" json:"subtotal"`
	GST            float64   `bun:"gst,notnull" json:"GST"`
	DiscountAmount float64   `bun:"discount_amount,notnull" json:"discountAmount"`
	Total          float64   `bun:"total,notnull" json:"total"`
	CreatedAt      time.Time `bun:"created_at,notnull" json:"createdAt"`
}

// TicketLine is one {session, quantity} entry of a checkout cart.
type TicketLine struct {
	SessionID string `json:"sessionID"`
	Quantity  int    `json:"quantity"`
}

// PaymentFields carries the method-specific payment details. Values are
// only checked for presence; nothing is ever charged here.
type PaymentFields struct {
	CardName   string `json:"cardName,omitempty"`
	Country    string `json:"country,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Email      string `json:"email,omitempty"`
}

// OrderRequest mirrors the checkout payload submitted by the mobile client.
// Subtotal, GST and Total are computed client side and treated as
// authoritative inputs.
type OrderRequest struct {
	Event struct {
		ID string `json:"id"`
	} `json:"event"`
	Tickets       []TicketLine  `json:"tickets"`
	AccountID     string        `json:"accountID"`
	CouponCode    string        `json:"couponCode,omitempty"`
	PaymentMethod string        `json:"paymentMethod"`
	PaymentFields PaymentFields `json:"paymentFields"`
	Subtotal      float64       `json:"subtotal"`
	GST           float64       `json:"GST"`
	Total         float64       `json:"total"`
}

// TotalQuantity sums the requested quantities across all cart lines.
func (r *OrderRequest) TotalQuantity() int {
	sum := 0
	for _, line := range r.Tickets {
		sum += line.Quantity
	}
	return sum
}

type OrderResponse struct {
	Message string `json:"message"`
	OrderID string `json:"orderID"`
}
