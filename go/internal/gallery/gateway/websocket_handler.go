package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler upgrades viewer connections and attaches them to the hub
type WebSocketHandler struct {
	hub      *Hub
	config   ConnectionConfig
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *Hub, config ConnectionConfig) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hub,
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
	}
}

// HandleGalleryConnection handles GET /ws/gallery
func (h *WebSocketHandler) HandleGalleryConnection(w http.ResponseWriter, r *http.Request) {
	// Register before the handshake completes so the client never misses an event
	// published between its upgrade and its first read.
	session := h.hub.Subscribe()

	// Upgrade writes its own HTTP error response on failure
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.hub.Unsubscribe(session)
		log.Error().Err(err).Str("remote_addr", r.RemoteAddr).Msg("failed to upgrade WebSocket connection")
		return
	}

	connection := newConnection(session, h.hub, conn, h.config, r.RemoteAddr)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("session_id", connection.session.ID).
		Str("remote_addr", r.RemoteAddr).
		Msg("WebSocket connection established")
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.hub.Stats()); err != nil {
		log.Error().Err(err).Msg("failed to encode connection stats")
	}
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/gallery", h.HandleGalleryConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}
