package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"event-ticketing/internal/models"

	"github.com/uptrace/bun"
)

var (
	ErrEventNotFound      = errors.New("event not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrInsufficientRemain = errors.New("insufficient remaining tickets")
)

// DB is the inventory store: events and their session rows.
type DB struct {
	Bun *bun.DB
}

// GetEvent fetches an event with its session list, ordered by start date.
func (d *DB) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("id = ?", eventID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}

	err = d.Bun.NewSelect().
		Model(&event.Sessions).
		Where("event_id = ?", eventID).
		Order("start_date", "session_id").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// DecrementSessions applies all cart-line decrements against idb, the
// caller's transaction. Each line is a conditional update that refuses to
// take remain below zero, so concurrent checkouts against the same session
// can never oversell it; when any line fails, the caller's transaction
// rolls every earlier decrement back.
func DecrementSessions(ctx context.Context, idb bun.IDB, eventID string, lines []models.TicketLine) error {
	for _, line := range lines {
		if line.Quantity == 0 {
			continue
		}
		res, err := idb.NewUpdate().
			Model((*models.Session)(nil)).
			Set("remain = remain - ?", line.Quantity).
			Where("session_id = ?", line.SessionID).
			Where("event_id = ?", eventID).
			Where("remain >= ?", line.Quantity).
			Exec(ctx)
		if err != nil {
			return err
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			exists, err := idb.NewSelect().
				Model((*models.Session)(nil)).
				Where("session_id = ?", line.SessionID).
				Where("event_id = ?", eventID).
				Exists(ctx)
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("%w: %s", ErrSessionNotFound, line.SessionID)
			}
			return fmt.Errorf("%w: session %s", ErrInsufficientRemain, line.SessionID)
		}
	}
	return nil
}
