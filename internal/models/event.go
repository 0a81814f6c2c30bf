package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID        string    `bun:"id,pk" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"createdAt"`

	// Sessions are child rows loaded by the inventory store, ordered by
	// start date. Never written through this struct.
	Sessions []Session `bun:"-" json:"session"`
}

// Session is one purchasable ticket tier of an event. Available is the
// original capacity and never changes after creation; Remain is the live
// inventory counter and must stay within [0, Available].
type Session struct {
	bun.BaseModel `bun:"table:sessions"`

	SessionID string    `bun:"session_id,pk" json:"sessionID"`
	EventID   string    `bun:"event_id,notnull" json:"-"`
	Type      string    `bun:"type" json:"type"`
	Price     float64   `bun:"price" json:"price"`
	Available int       `bun:"available" json:"available"`
	Remain    int       `bun:"remain" json:"remain"`
	StartDate time.Time `bun:"start_date" json:"startDate"`
	EndDate   time.Time `bun:"end_date,nullzero" json:"endDate"`
}

// FindSession returns the session with the given ID, or nil.
func (e *Event) FindSession(sessionID string) *Session {
	for i := range e.Sessions {
		if e.Sessions[i].SessionID == sessionID {
			return &e.Sessions[i]
		}
	}
	return nil
}
