package order_api_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"event-ticketing/internal/coupon"
	"event-ticketing/internal/database/migrations"
	"event-ticketing/internal/inventory"
	"event-ticketing/internal/logger"
	"event-ticketing/internal/models"
	"event-ticketing/internal/order"
	orderdb "event-ticketing/internal/order/db"
	"event-ticketing/internal/order/order_api"
	"event-ticketing/internal/query"
	"event-ticketing/internal/sse"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// setupServer wires the handler over real services on an in-memory
// database, the same shape main assembles in production.
func setupServer(t *testing.T) (*httptest.Server, *bun.DB) {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	if err := migrations.Reset(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	log := logger.NewLogger()
	invStore := &inventory.DB{Bun: db}
	couponStore := &coupon.DB{Bun: db}
	orderStore := &orderdb.DB{Bun: db}

	orderService := order.NewOrderService(orderStore, invStore, couponStore, nil, log)
	queryService := query.NewQueryService(orderStore, invStore, log)
	handler := order_api.NewHandler(orderService, queryService, sse.NewCheckoutEventEmitter(), log)

	r := chi.NewRouter()
	r.Route("/events", handler.Routes)
	server := httptest.NewServer(r)
	t.Cleanup(func() {
		server.Close()
		db.Close()
	})
	return server, db
}

func seedCatalog(t *testing.T, db *bun.DB) {
	t.Helper()
	ctx := context.Background()

	event := models.Event{ID: "E1", Name: "Harbour Jazz Night", CreatedAt: time.Now()}
	if _, err := db.NewInsert().Model(&event).Exec(ctx); err != nil {
		t.Fatalf("seed event: %v", err)
	}
	sessions := []models.Session{
		{SessionID: "S1", EventID: "E1", Type: "General", Price: 30, Available: 10, Remain: 5,
			StartDate: time.Date(2026, 9, 1, 19, 0, 0, 0, time.UTC)},
	}
	if _, err := db.NewInsert().Model(&sessions).Exec(ctx); err != nil {
		t.Fatalf("seed sessions: %v", err)
	}
	promo := models.Coupon{ID: "cpn-1", Code: "JAZZ10", Type: models.CouponTypePercentage, Amount: 10, Quantity: 1}
	if _, err := db.NewInsert().Model(&promo).Exec(ctx); err != nil {
		t.Fatalf("seed coupon: %v", err)
	}
}

func checkoutBody(eventID string, quantity int, couponCode string) []byte {
	payload := map[string]interface{}{
		"event":         map[string]string{"id": eventID},
		"tickets":       []map[string]interface{}{{"sessionID": "S1", "quantity": quantity}},
		"accountID":     "acct-1",
		"couponCode":    couponCode,
		"paymentMethod": models.PaymentMethodStripe,
		"paymentFields": map[string]string{"cardName": "Sam Lee", "country": "CA", "postalCode": "M5V 1A1"},
		"subtotal":      88.50,
		"GST":           11.50,
		"total":         100,
	}
	body, _ := json.Marshal(payload)
	return body
}

func postCheckout(t *testing.T, server *httptest.Server, body []byte) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Post(server.URL+"/events/eventOrder", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post checkout: %v", err)
	}
	defer resp.Body.Close()
	var decoded map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, decoded
}

func TestPlaceOrderEndpoint(t *testing.T) {
	server, db := setupServer(t)
	seedCatalog(t, db)

	resp, body := postCheckout(t, server, checkoutBody("E1", 3, ""))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Checkout successful", body["message"])
	orderID, _ := body["orderID"].(string)
	assert.NotEmpty(t, orderID)

	// Inventory moved and the order is readable back with its tickets.
	var sess models.Session
	err := db.NewSelect().Model(&sess).Where("session_id = ?", "S1").Scan(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 2, sess.Remain)

	detailResp, err := http.Get(server.URL + "/events/eventOrderDetail/" + orderID)
	assert.NoError(t, err)
	defer detailResp.Body.Close()
	assert.Equal(t, http.StatusOK, detailResp.StatusCode)

	var detail models.OrderWithTickets
	assert.NoError(t, json.NewDecoder(detailResp.Body).Decode(&detail))
	assert.Len(t, detail.Tickets, 3)
	assert.Equal(t, 100.0, detail.Total)
}

func TestPlaceOrderInsufficientInventory(t *testing.T) {
	server, db := setupServer(t)
	seedCatalog(t, db)

	resp, _ := postCheckout(t, server, checkoutBody("E1", 9, ""))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Nothing was decremented.
	var sess models.Session
	err := db.NewSelect().Model(&sess).Where("session_id = ?", "S1").Scan(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 5, sess.Remain)
}

func TestPlaceOrderUnknownEvent(t *testing.T) {
	server, db := setupServer(t)
	seedCatalog(t, db)

	resp, _ := postCheckout(t, server, checkoutBody("ghost", 1, ""))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	server, db := setupServer(t)
	seedCatalog(t, db)

	resp, _ := postCheckout(t, server, checkoutBody("E1", 0, ""))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPlaceOrderMalformedBody(t *testing.T) {
	server, _ := setupServer(t)

	resp, _ := postCheckout(t, server, []byte("{not json"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPlaceOrderCouponLifecycle(t *testing.T) {
	server, db := setupServer(t)
	seedCatalog(t, db)

	resp, body := postCheckout(t, server, checkoutBody("E1", 1, "JAZZ10"))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	orderID, _ := body["orderID"].(string)

	// 10% off the caller's total of 100.
	detailResp, err := http.Get(server.URL + "/events/eventOrderDetail/" + orderID)
	assert.NoError(t, err)
	defer detailResp.Body.Close()
	var detail models.OrderWithTickets
	assert.NoError(t, json.NewDecoder(detailResp.Body).Decode(&detail))
	assert.Equal(t, 10.0, detail.DiscountAmount)
	assert.Equal(t, 90.0, detail.Total)

	// Single-use coupon rejects a second checkout.
	resp, _ = postCheckout(t, server, checkoutBody("E1", 1, "JAZZ10"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Unknown codes are a 400 too.
	resp, _ = postCheckout(t, server, checkoutBody("E1", 1, "NOPE"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// The failed checkouts left inventory consistent: one ticket sold.
	var sess models.Session
	err = db.NewSelect().Model(&sess).Where("session_id = ?", "S1").Scan(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 4, sess.Remain)
}

func TestListOrdersForAccountEndpoint(t *testing.T) {
	server, db := setupServer(t)
	seedCatalog(t, db)

	postCheckout(t, server, checkoutBody("E1", 1, ""))
	postCheckout(t, server, checkoutBody("E1", 2, ""))

	resp, err := http.Get(server.URL + "/events/eventOrder/acct-1")
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var orders []models.OrderWithTickets
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&orders))
	assert.Len(t, orders, 2)

	resp, err = http.Get(server.URL + "/events/eventOrder/acct-other")
	assert.NoError(t, err)
	defer resp.Body.Close()
	var empty []models.OrderWithTickets
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&empty))
	assert.Empty(t, empty)
}

func TestGetOrderDetailNotFound(t *testing.T) {
	server, _ := setupServer(t)

	resp, err := http.Get(server.URL + "/events/eventOrderDetail/missing")
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCheckTicketEndpoint(t *testing.T) {
	server, db := setupServer(t)
	seedCatalog(t, db)

	_, body := postCheckout(t, server, checkoutBody("E1", 1, ""))
	orderID, _ := body["orderID"].(string)

	var tickets []models.Ticket
	err := db.NewSelect().Model(&tickets).Where("order_id = ?", orderID).Scan(context.Background())
	assert.NoError(t, err)
	assert.Len(t, tickets, 1)
	ticketID := tickets[0].ID

	resp, err := http.Get(server.URL + "/events/eventOrderTicketCheck?ticketID=" + ticketID + "&sessionID=S1")
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var checked models.Ticket
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&checked))
	assert.Equal(t, models.TicketStatusNotUsed, checked.Status)

	// Wrong session is a mismatch, unknown ticket is not found.
	resp, err = http.Get(server.URL + "/events/eventOrderTicketCheck?ticketID=" + ticketID + "&sessionID=S2")
	assert.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(server.URL + "/events/eventOrderTicketCheck?ticketID=forged&sessionID=S1")
	assert.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(server.URL + "/events/eventOrderTicketCheck?ticketID=" + ticketID)
	assert.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTicketQRImageEndpoint(t *testing.T) {
	server, db := setupServer(t)
	seedCatalog(t, db)

	_, body := postCheckout(t, server, checkoutBody("E1", 1, ""))
	orderID, _ := body["orderID"].(string)

	var tickets []models.Ticket
	err := db.NewSelect().Model(&tickets).Where("order_id = ?", orderID).Scan(context.Background())
	assert.NoError(t, err)
	ticketID := tickets[0].ID

	resp, err := http.Get(server.URL + "/events/eventOrderTicketQR/" + ticketID)
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	resp, err = http.Get(server.URL + "/events/eventOrderTicketQR/missing")
	assert.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
