package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Meshu-webDEV/singularity-api/live"
	"github.com/Meshu-webDEV/singularity-api/services"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Subscribers are read-only and events are public, so any origin may
	// connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WebSocketHandler struct {
	hub    *live.Hub
	events services.EventService
}

func NewWebSocketHandler(hub *live.Hub, events services.EventService) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, events: events}
}

// ServeLive upgrades the connection and subscribes it to the event's room.
// The event must exist; the room itself is created lazily.
func (h *WebSocketHandler) ServeLive(w http.ResponseWriter, r *http.Request) {
	uniqueid := chi.URLParam(r, "uniqueid")
	if _, err := h.events.GetEventDetail(r.Context(), uniqueid); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		slog.Warn("websocket upgrade failed",
			slog.String("event", uniqueid), slog.Any("error", err))
		return
	}
	h.hub.NewClient(conn, uniqueid)
}
