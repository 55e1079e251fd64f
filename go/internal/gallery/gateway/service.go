package gateway

import (
	"context"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/fotowall/go/internal/gallery"
	"github.com/rs/zerolog/log"
)

// Service is the gallery gateway: the broadcast hub plus its HTTP and WebSocket surface
type Service struct {
	hub          *Hub
	wsHandler    *WebSocketHandler
	stateHandler *StateHandler
}

// Config holds configuration for the gallery gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	HubConfig        HubConfig
}

// DefaultConfig returns default configuration for the gallery gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		HubConfig:        DefaultHubConfig(),
	}
}

// NewService creates a new gallery gateway service
func NewService(config Config, store *gallery.Store, clock clockwork.Clock, sinks ...EventSink) *Service {
	hub := NewHub(store, clock, config.HubConfig)
	for _, sink := range sinks {
		hub.AddSink(sink)
	}

	return &Service{
		hub:          hub,
		wsHandler:    NewWebSocketHandler(hub, config.ConnectionConfig),
		stateHandler: NewStateHandler(hub),
	}
}

// Hub exposes the broadcast hub to the ingestion path
func (s *Service) Hub() *Hub {
	return s.hub
}

// Start blocks until ctx is cancelled, then shuts the hub down
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting gallery gateway service")

	<-ctx.Done()

	log.Info().Msg("gallery gateway service shutting down")
	return s.Stop()
}

// Stop disconnects every viewer
func (s *Service) Stop() error {
	s.hub.Shutdown()
	log.Info().Msg("gallery gateway service stopped")
	return nil
}

// RegisterRoutes registers the WebSocket and state HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.stateHandler.RegisterStateRoutes(mux)
	log.Info().Msg("gallery gateway routes registered")
}

// GetStats returns statistics about the gateway service
func (s *Service) GetStats() HubStats {
	return s.hub.Stats()
}
