package db

import (
	"context"
	"database/sql"
	"errors"

	"event-ticketing/internal/inventory"
	"event-ticketing/internal/models"

	"github.com/uptrace/bun"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrTicketNotFound = errors.New("ticket not found")
)

// DB is the order store: orders and their ticket sub-records. Rows are
// written once at checkout and only read afterwards.
type DB struct {
	Bun *bun.DB
}

// CreateOrderWithTickets reserves the cart's inventory and inserts the
// order with all of its tickets in one transaction. Either every decrement
// and every row commits or none does; a crash mid-checkout can never leak
// decremented inventory without its order.
func (d *DB) CreateOrderWithTickets(ctx context.Context, order models.Order, tickets []models.Ticket, lines []models.TicketLine) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := inventory.DecrementSessions(ctx, tx, order.EventID, lines); err != nil {
			return err
		}
		if _, err := tx.NewInsert().Model(&order).Exec(ctx); err != nil {
			return err
		}
		if len(tickets) == 0 {
			return nil
		}
		_, err := tx.NewInsert().Model(&tickets).Exec(ctx)
		return err
	})
}

// GetOrderByID fetches one order by its ID.
func (d *DB) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrdersByAccount fetches all of an account's orders, newest first.
func (d *DB) GetOrdersByAccount(ctx context.Context, accountID string) ([]models.Order, error) {
	var orders []models.Order
	err := d.Bun.NewSelect().
		Model(&orders).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// GetTicketsByOrder fetches all tickets linked to an order.
func (d *DB) GetTicketsByOrder(ctx context.Context, orderID string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("order_id = ?", orderID).
		Order("created_at", "id").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

// GetTicketsByOrders fetches the tickets of several orders in one query.
func (d *DB) GetTicketsByOrders(ctx context.Context, orderIDs []string) ([]models.Ticket, error) {
	if len(orderIDs) == 0 {
		return []models.Ticket{}, nil
	}
	var tickets []models.Ticket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("order_id IN (?)", bun.In(orderIDs)).
		Order("order_id", "created_at", "id").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

// GetTicketByID looks a ticket up by its ID across all orders.
func (d *DB) GetTicketByID(ctx context.Context, id string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}
