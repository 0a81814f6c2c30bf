package sse

import (
	"context"
	"sync"

	"event-ticketing/internal/models"
)

// CheckoutEventEmitter fans completed checkouts out to SSE clients
// subscribed per event.
type CheckoutEventEmitter struct {
	clients map[string][]chan models.OrderWithTickets
	mu      sync.RWMutex
}

func NewCheckoutEventEmitter() *CheckoutEventEmitter {
	return &CheckoutEventEmitter{
		clients: make(map[string][]chan models.OrderWithTickets),
	}
}

// SubscribeToEvent registers a client for an event's checkouts. The
// channel closes when the context is done.
func (e *CheckoutEventEmitter) SubscribeToEvent(ctx context.Context, eventID string) chan models.OrderWithTickets {
	clientChan := make(chan models.OrderWithTickets, 10)

	e.mu.Lock()
	e.clients[eventID] = append(e.clients[eventID], clientChan)
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.removeClient(eventID, clientChan)
	}()

	return clientChan
}

// EmitCheckout broadcasts a completed checkout to the event's subscribers.
// Slow clients are skipped rather than blocked on. The sends happen under
// the read lock: removeClient closes channels under the write lock, so a
// send can never race a close.
func (e *CheckoutEventEmitter) EmitCheckout(order models.OrderWithTickets) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, clientChan := range e.clients[order.EventID] {
		select {
		case clientChan <- order:
		default:
		}
	}
}

// ClientCount returns how many clients are subscribed to an event.
func (e *CheckoutEventEmitter) ClientCount(eventID string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.clients[eventID])
}

func (e *CheckoutEventEmitter) removeClient(eventID string, clientChan chan models.OrderWithTickets) {
	e.mu.Lock()
	defer e.mu.Unlock()

	clients := e.clients[eventID]
	for i, ch := range clients {
		if ch == clientChan {
			e.clients[eventID] = append(clients[:i], clients[i+1:]...)
			close(clientChan)
			break
		}
	}
	if len(e.clients[eventID]) == 0 {
		delete(e.clients, eventID)
	}
}
