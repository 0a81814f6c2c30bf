package order_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"event-ticketing/internal/auth"
	"event-ticketing/internal/coupon"
	"event-ticketing/internal/inventory"
	"event-ticketing/internal/logger"
	"event-ticketing/internal/models"
	"event-ticketing/internal/order"
	orderdb "event-ticketing/internal/order/db"
	"event-ticketing/internal/query"
	"event-ticketing/internal/sse"
	"event-ticketing/internal/tickets/qr"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	OrderService *order.OrderService
	QueryService *query.QueryService
	Emitter      *sse.CheckoutEventEmitter
	QR           *qr.Generator
	Logger       *logger.Logger
}

func NewHandler(orderService *order.OrderService, queryService *query.QueryService, emitter *sse.CheckoutEventEmitter, log *logger.Logger) *Handler {
	return &Handler{
		OrderService: orderService,
		QueryService: queryService,
		Emitter:      emitter,
		QR:           qr.NewGenerator(),
		Logger:       log,
	}
}

// Routes mounts the checkout surface under /events.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/eventOrder", h.PlaceOrder)
	r.Get("/eventOrder/{accountID}", h.ListOrdersForAccount)
	r.Get("/eventOrderDetail/{orderID}", h.GetOrderDetail)
	r.Get("/eventOrderTicketCheck", h.CheckTicket)
	r.Get("/eventOrderTicketQR/{ticketID}", h.TicketQRImage)
	r.Get("/eventOrderStream/{eventID}", h.StreamEventCheckouts)
}

func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req models.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("PlaceOrder: failed to decode request body: %v", err))
		writeMessage(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	// The authenticated subject wins over a body-supplied account ID.
	if accountID := auth.AccountID(r.Context()); accountID != "" {
		req.AccountID = accountID
	}

	resp, err := h.OrderService.PlaceOrder(r.Context(), req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("PlaceOrder: checkout failed: %v", err))
		writeMessage(w, placeOrderStatus(err), err.Error())
		return
	}

	// Push the enriched order to any SSE watchers of this event.
	if h.Emitter != nil {
		if enriched, err := h.QueryService.GetOrderDetail(r.Context(), resp.OrderID); err == nil {
			h.Emitter.EmitCheckout(*enriched)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.Logger.Error("API", fmt.Sprintf("PlaceOrder: failed to encode response: %v", err))
	}
}

// placeOrderStatus maps the checkout failure taxonomy onto HTTP codes:
// unknown event is a 404, every other client-visible defect is a 400,
// the rest are internal.
func placeOrderStatus(err error) int {
	switch {
	case errors.Is(err, inventory.ErrEventNotFound):
		return http.StatusNotFound
	case errors.Is(err, order.ErrInvalidRequest),
		errors.Is(err, inventory.ErrSessionNotFound),
		errors.Is(err, inventory.ErrInsufficientRemain),
		errors.Is(err, coupon.ErrNotFound),
		errors.Is(err, coupon.ErrExhausted):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) ListOrdersForAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	if accountID == "" {
		writeMessage(w, http.StatusBadRequest, "Account ID is required")
		return
	}

	orders, err := h.QueryService.ListOrdersForAccount(r.Context(), accountID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListOrdersForAccount: %v", err))
		writeMessage(w, http.StatusInternalServerError, "Failed to retrieve orders")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(orders); err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListOrdersForAccount: failed to encode response: %v", err))
	}
}

func (h *Handler) GetOrderDetail(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	detail, err := h.QueryService.GetOrderDetail(r.Context(), orderID)
	if errors.Is(err, orderdb.ErrOrderNotFound) {
		writeMessage(w, http.StatusNotFound, "Order not found")
		return
	}
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetOrderDetail: %v", err))
		writeMessage(w, http.StatusInternalServerError, "Failed to retrieve order")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(detail); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetOrderDetail: failed to encode response: %v", err))
	}
}

func (h *Handler) CheckTicket(w http.ResponseWriter, r *http.Request) {
	ticketID := r.URL.Query().Get("ticketID")
	sessionID := r.URL.Query().Get("sessionID")
	if ticketID == "" || sessionID == "" {
		writeMessage(w, http.StatusBadRequest, "ticketID and sessionID are required")
		return
	}

	ticket, err := h.QueryService.CheckTicket(r.Context(), ticketID, sessionID)
	if errors.Is(err, orderdb.ErrTicketNotFound) {
		writeMessage(w, http.StatusNotFound, "Ticket not found")
		return
	}
	if errors.Is(err, query.ErrTicketMismatch) {
		writeMessage(w, http.StatusBadRequest, "Ticket does not match this session")
		return
	}
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CheckTicket: %v", err))
		writeMessage(w, http.StatusInternalServerError, "Failed to check ticket")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(ticket); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CheckTicket: failed to encode response: %v", err))
	}
}

func (h *Handler) TicketQRImage(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketID")

	ticket, err := h.QueryService.GetTicket(r.Context(), ticketID)
	if errors.Is(err, orderdb.ErrTicketNotFound) {
		writeMessage(w, http.StatusNotFound, "Ticket not found")
		return
	}
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("TicketQRImage: %v", err))
		writeMessage(w, http.StatusInternalServerError, "Failed to retrieve ticket")
		return
	}

	png, err := h.QR.RenderPNG(query.TicketQR(ticket.ID, ticket.SessionID))
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("TicketQRImage: failed to render QR: %v", err))
		writeMessage(w, http.StatusInternalServerError, "Failed to render QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}
