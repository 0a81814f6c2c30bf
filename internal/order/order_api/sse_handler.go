package order_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// StreamEventCheckouts streams completed checkouts for one event as
// server-sent events, for live sales dashboards.
func (h *Handler) StreamEventCheckouts(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	if eventID == "" {
		writeMessage(w, http.StatusBadRequest, "Event ID is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeMessage(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx := r.Context()
	eventChan := h.Emitter.SubscribeToEvent(ctx, eventID)

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"eventID\":%q}\n\n", eventID)
	flusher.Flush()

	h.Logger.Info("SSE", fmt.Sprintf("Client connected to checkout stream for event: %s", eventID))

	for {
		select {
		case order, open := <-eventChan:
			if !open {
				return
			}
			jsonData, err := json.Marshal(order)
			if err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize checkout event: %v", err))
				continue
			}
			fmt.Fprintf(w, "event: checkout\ndata: %s\n\n", jsonData)
			flusher.Flush()

		case <-ctx.Done():
			h.Logger.Debug("SSE", fmt.Sprintf("Client disconnected from checkout stream for event: %s", eventID))
			return
		}
	}
}
