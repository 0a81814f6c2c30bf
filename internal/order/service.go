package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"event-ticketing/internal/coupon"
	"event-ticketing/internal/inventory"
	"event-ticketing/internal/logger"
	"event-ticketing/internal/models"

	"github.com/google/uuid"
)

// ErrInvalidRequest marks client-correctable input defects: empty carts,
// missing payment fields, unknown payment methods.
var ErrInvalidRequest = errors.New("invalid request")

type DBLayer interface {
	CreateOrderWithTickets(ctx context.Context, order models.Order, tickets []models.Ticket, lines []models.TicketLine) error
}

type InventoryStore interface {
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)
}

type CouponLedger interface {
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	Redeem(ctx context.Context, couponID string) error
	Restore(ctx context.Context, couponID string) error
}

type Publisher interface {
	PublishOrderCreated(order models.Order) error
}

// OrderService runs the checkout workflow: validate the cart, redeem the
// coupon, then decrement session inventory and persist the order with its
// tickets in one transaction. The coupon redeem is the only side effect
// ahead of the final write, and it is undone when a later step fails.
type OrderService struct {
	DB        DBLayer
	Inventory InventoryStore
	Coupons   CouponLedger
	Kafka     Publisher
	Logger    *logger.Logger
}

func NewOrderService(db DBLayer, inv InventoryStore, coupons CouponLedger, kafka Publisher, log *logger.Logger) *OrderService {
	return &OrderService{DB: db, Inventory: inv, Coupons: coupons, Kafka: kafka, Logger: log}
}

func (s *OrderService) PlaceOrder(ctx context.Context, req models.OrderRequest) (*models.OrderResponse, error) {
	// Step 1: the cart must hold at least one ticket.
	for _, line := range req.Tickets {
		if line.Quantity < 0 {
			return nil, fmt.Errorf("%w: negative quantity for session %s", ErrInvalidRequest, line.SessionID)
		}
	}
	if req.TotalQuantity() < 1 {
		return nil, fmt.Errorf("%w: you must purchase at least one ticket", ErrInvalidRequest)
	}

	// Step 2: payment fields are shape-checked only, never charged.
	if err := validatePayment(req.PaymentMethod, req.PaymentFields); err != nil {
		return nil, err
	}

	// Step 3: resolve and redeem the coupon. Redeem is a conditional
	// decrement with a floor, so an exhausted coupon fails here before
	// any inventory is touched.
	var couponID string
	var discount float64
	if req.CouponCode != "" {
		c, err := s.Coupons.FindByCode(ctx, req.CouponCode)
		if err != nil {
			return nil, err
		}
		if c.Quantity <= 0 {
			return nil, fmt.Errorf("coupon %s: %w", c.ID, coupon.ErrExhausted)
		}
		if err := s.Coupons.Redeem(ctx, c.ID); err != nil {
			return nil, err
		}
		couponID = c.ID
		discount = c.Discount(req.Total)
		s.Logger.Info("ORDER", fmt.Sprintf("Coupon %s redeemed, discount %.2f", c.Code, discount))
	}

	// Step 4: fast-fail every cart line against a snapshot of the event.
	eventID := req.Event.ID
	if err := s.validateCart(ctx, eventID, req.Tickets); err != nil {
		s.compensateCoupon(ctx, couponID)
		return nil, err
	}

	// Step 5: the caller-supplied total is authoritative; the discount
	// can at most bring it to zero.
	finalTotal := req.Total - discount
	if finalTotal < 0 {
		finalTotal = 0
	}

	// Steps 6 and 7: the inventory decrements, the order and its tickets
	// commit as one unit.
	now := time.Now()
	newOrder := models.Order{
		ID:             uuid.NewString(),
		EventID:        eventID,
		AccountID:      req.AccountID,
		CouponID:       couponID,
		Subtotal:       req.Subtotal,
		GST:            req.GST,
		DiscountAmount: discount,
		Total:          finalTotal,
		CreatedAt:      now,
	}
	tickets := buildTickets(newOrder, req.Tickets, now)

	if err := s.DB.CreateOrderWithTickets(ctx, newOrder, tickets, req.Tickets); err != nil {
		s.Logger.Error("ORDER", fmt.Sprintf("Failed to create order: %v", err))
		s.compensateCoupon(ctx, couponID)
		return nil, err
	}

	s.Logger.LogOrder("PLACED", newOrder.ID, fmt.Sprintf("%d tickets, total %.2f", len(tickets), finalTotal))

	if s.Kafka != nil {
		if err := s.Kafka.PublishOrderCreated(newOrder); err != nil {
			s.Logger.Warn("KAFKA", fmt.Sprintf("Publish error (order created): %v", err))
		}
	}

	return &models.OrderResponse{
		Message: "Checkout successful",
		OrderID: newOrder.ID,
	}, nil
}

// validateCart fast-fails every line against a snapshot of the event. The
// snapshot check is advisory; the conditional decrement inside the order
// transaction is what guards the floor under concurrency.
func (s *OrderService) validateCart(ctx context.Context, eventID string, lines []models.TicketLine) error {
	event, err := s.Inventory.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	for _, line := range lines {
		if line.Quantity == 0 {
			continue
		}
		sess := event.FindSession(line.SessionID)
		if sess == nil {
			return fmt.Errorf("%w: %s", inventory.ErrSessionNotFound, line.SessionID)
		}
		if line.Quantity > sess.Remain {
			return fmt.Errorf("%w: session %s has %d left", inventory.ErrInsufficientRemain, line.SessionID, sess.Remain)
		}
	}
	return nil
}

func (s *OrderService) compensateCoupon(ctx context.Context, couponID string) {
	if couponID == "" {
		return
	}
	if err := s.Coupons.Restore(ctx, couponID); err != nil {
		s.Logger.Error("ORDER", fmt.Sprintf("Failed to restore coupon %s: %v", couponID, err))
	}
}

func buildTickets(order models.Order, lines []models.TicketLine, now time.Time) []models.Ticket {
	var tickets []models.Ticket
	for _, line := range lines {
		for i := 0; i < line.Quantity; i++ {
			tickets = append(tickets, models.Ticket{
				ID:        uuid.NewString(),
				OrderID:   order.ID,
				SessionID: line.SessionID,
				AccountID: order.AccountID,
				Status:    models.TicketStatusNotUsed,
				CreatedAt: now,
			})
		}
	}
	return tickets
}

func validatePayment(method string, fields models.PaymentFields) error {
	switch method {
	case models.PaymentMethodStripe:
		if fields.CardName == "" || fields.Country == "" || fields.PostalCode == "" {
			return fmt.Errorf("%w: please fill in all Stripe payment fields", ErrInvalidRequest)
		}
	case models.PaymentMethodPaypal:
		if fields.Email == "" {
			return fmt.Errorf("%w: Paypal requires an email", ErrInvalidRequest)
		}
	case models.PaymentMethodETransfer:
		// No additional fields.
	default:
		return fmt.Errorf("%w: unsupported payment method %q", ErrInvalidRequest, method)
	}
	return nil
}
