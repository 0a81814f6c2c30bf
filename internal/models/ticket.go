package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Ticket statuses.
const (
	TicketStatusNotUsed = "NotUsed"
	TicketStatusUsed    = "Used"
)

// Ticket is one purchased seat belonging to an order. The QR payload is
// never stored; it is derived at read time from the ticket and session IDs.
type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	ID        string    `bun:"id,pk" json:"id"`
	OrderID   string    `bun:"order_id,notnull" json:"-"`
	SessionID string    `bun:"session_id,notnull" json:"sessionID"`
	AccountID string    `bun:"account_id,notnull" json:"-"`
	Status    string    `bun:"status,notnull" json:"status"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"createdAt"`
}

// TicketDetail is the read-side view of a ticket: the stored row plus the
// derived QR payload and the session it was purchased against.
// SessionDetail is nil when the session can no longer be resolved.
type TicketDetail struct {
	Ticket
	QRCode        string   `json:"QRCode"`
	SessionDetail *Session `json:"sessionDetail"`
}

// OrderWithTickets is an order joined with its event and ticket details,
// as served to receipt and QR-display views.
type OrderWithTickets struct {
	Order
	EventDetail *Event         `json:"eventDetail"`
	Tickets     []TicketDetail `json:"tickets"`
}
