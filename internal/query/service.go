package query

import (
	"context"
	"errors"
	"fmt"

	"event-ticketing/internal/inventory"
	"event-ticketing/internal/logger"
	"event-ticketing/internal/models"
)

// ErrTicketMismatch is returned by CheckTicket when the scanned session ID
// does not match the ticket's stored one.
var ErrTicketMismatch = errors.New("ticket does not belong to this session")

// QRSeparator joins the ticket and session IDs into the QR payload.
const QRSeparator = "+++"

// TicketQR derives the QR payload for a ticket. Never persisted, always
// recomputed from the two IDs.
func TicketQR(ticketID, sessionID string) string {
	return ticketID + QRSeparator + sessionID
}

type DBLayer interface {
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetOrdersByAccount(ctx context.Context, accountID string) ([]models.Order, error)
	GetTicketsByOrder(ctx context.Context, orderID string) ([]models.Ticket, error)
	GetTicketsByOrders(ctx context.Context, orderIDs []string) ([]models.Ticket, error)
	GetTicketByID(ctx context.Context, id string) (*models.Ticket, error)
}

type InventoryStore interface {
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)
}

// QueryService is the read side of checkout: it reconstitutes orders with
// their event, session details and derived QR payloads for receipts and
// ticket display.
type QueryService struct {
	DB        DBLayer
	Inventory InventoryStore
	Logger    *logger.Logger
}

func NewQueryService(db DBLayer, inv InventoryStore, log *logger.Logger) *QueryService {
	return &QueryService{DB: db, Inventory: inv, Logger: log}
}

// ListOrdersForAccount returns all of an account's orders enriched with
// event and ticket details, newest first.
func (s *QueryService) ListOrdersForAccount(ctx context.Context, accountID string) ([]models.OrderWithTickets, error) {
	orders, err := s.DB.GetOrdersByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return []models.OrderWithTickets{}, nil
	}

	orderIDs := make([]string, len(orders))
	for i, o := range orders {
		orderIDs[i] = o.ID
	}
	tickets, err := s.DB.GetTicketsByOrders(ctx, orderIDs)
	if err != nil {
		return nil, err
	}
	ticketsByOrder := make(map[string][]models.Ticket)
	for _, t := range tickets {
		ticketsByOrder[t.OrderID] = append(ticketsByOrder[t.OrderID], t)
	}

	// One event lookup per distinct event, reused across orders.
	events := make(map[string]*models.Event)
	result := make([]models.OrderWithTickets, len(orders))
	for i, o := range orders {
		event, err := s.eventFor(ctx, events, o.EventID)
		if err != nil {
			return nil, err
		}
		result[i] = enrich(o, event, ticketsByOrder[o.ID])
	}
	return result, nil
}

// GetOrderDetail returns one enriched order for the receipt view.
func (s *QueryService) GetOrderDetail(ctx context.Context, orderID string) (*models.OrderWithTickets, error) {
	order, err := s.DB.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	tickets, err := s.DB.GetTicketsByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	event, err := s.eventFor(ctx, nil, order.EventID)
	if err != nil {
		return nil, err
	}
	enriched := enrich(*order, event, tickets)
	return &enriched, nil
}

// GetTicket looks one ticket up by ID across all orders.
func (s *QueryService) GetTicket(ctx context.Context, ticketID string) (*models.Ticket, error) {
	return s.DB.GetTicketByID(ctx, ticketID)
}

// CheckTicket validates a scanned QR code's two components against the
// stored record. An unknown ticket and a session mismatch are distinct
// failures so the gate can tell a forged code from a wrong-door scan.
func (s *QueryService) CheckTicket(ctx context.Context, ticketID, sessionID string) (*models.Ticket, error) {
	ticket, err := s.DB.GetTicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.SessionID != sessionID {
		return nil, fmt.Errorf("%w: ticket %s belongs to session %s", ErrTicketMismatch, ticketID, ticket.SessionID)
	}
	return ticket, nil
}

// eventFor resolves an event, caching per call when a map is supplied.
// A deleted event enriches to nil rather than failing the whole read.
func (s *QueryService) eventFor(ctx context.Context, cache map[string]*models.Event, eventID string) (*models.Event, error) {
	if cache != nil {
		if ev, ok := cache[eventID]; ok {
			return ev, nil
		}
	}
	event, err := s.Inventory.GetEvent(ctx, eventID)
	if errors.Is(err, inventory.ErrEventNotFound) {
		event = nil
	} else if err != nil {
		return nil, err
	}
	if cache != nil {
		cache[eventID] = event
	}
	return event, nil
}

func enrich(order models.Order, event *models.Event, tickets []models.Ticket) models.OrderWithTickets {
	details := make([]models.TicketDetail, len(tickets))
	for i, t := range tickets {
		var sessionDetail *models.Session
		if event != nil {
			sessionDetail = event.FindSession(t.SessionID)
		}
		details[i] = models.TicketDetail{
			Ticket:        t,
			QRCode:        TicketQR(t.ID, t.SessionID),
			SessionDetail: sessionDetail,
		}
	}
	return models.OrderWithTickets{
		Order:       order,
		EventDetail: event,
		Tickets:     details,
	}
}
