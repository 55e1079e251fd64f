package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/mcdev12/fotowall/go/internal/models"
	"github.com/rs/zerolog/log"
)

// GalleryStateResponse is the REST view of the current gallery
type GalleryStateResponse struct {
	Images []models.ImageRecord `json:"images"`
	Count  int                  `json:"count"`
	Epoch  uint64               `json:"epoch"`
}

// StateHandler handles HTTP requests for gallery state
type StateHandler struct {
	hub *Hub
}

// NewStateHandler creates a new state handler
func NewStateHandler(hub *Hub) *StateHandler {
	return &StateHandler{hub: hub}
}

// HandleGetGallery handles GET /api/gallery
func (h *StateHandler) HandleGetGallery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	images, epoch := h.hub.State()
	response := GalleryStateResponse{
		Images: images,
		Count:  len(images),
		Epoch:  epoch,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().Err(err).Msg("failed to encode gallery state response")
	}
}

// HandleClearGallery handles POST /api/gallery/clear
func (h *StateHandler) HandleClearGallery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	removed := h.hub.RequestClear()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"removed": removed,
	}); err != nil {
		log.Error().Err(err).Msg("failed to encode clear response")
	}
}

// RegisterStateRoutes registers state-related HTTP routes
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/gallery", h.HandleGetGallery)
	mux.HandleFunc("/api/gallery/clear", h.HandleClearGallery)
}
