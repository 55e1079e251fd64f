package gateway

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/fotowall/go/internal/gallery"
	"github.com/mcdev12/fotowall/go/internal/models"
	"github.com/rs/zerolog/log"
)

// EventSink observes every event the hub publishes, in publish order.
// Enqueue is called while the hub holds its ordering lock and must not block.
type EventSink interface {
	Enqueue(event *Event)
}

// HubConfig holds configuration for the broadcast hub
type HubConfig struct {
	// SendBuffer is the per-session queue length. A session whose queue is full
	// when an event is published gets dropped.
	SendBuffer int
}

// DefaultHubConfig returns default hub configuration
func DefaultHubConfig() HubConfig {
	return HubConfig{
		SendBuffer: 256,
	}
}

// Session is one live viewer registered with the hub
type Session struct {
	ID          string
	ConnectedAt time.Time

	send   chan []byte
	closed bool // guarded by Hub.mu
}

// Messages returns the session's outbound queue. It is closed when the session is
// unsubscribed or dropped.
func (s *Session) Messages() <-chan []byte {
	return s.send
}

// HubStats is a point-in-time view of the hub
type HubStats struct {
	Sessions int    `json:"total_connections"`
	Images   int    `json:"images"`
	Epoch    uint64 `json:"epoch"`
	LastSeq  uint64 `json:"last_seq"`
}

// Hub owns the viewer sessions and fans gallery changes out to them.
type Hub struct {
	store  *gallery.Store
	clock  clockwork.Clock
	config HubConfig

	// mu is the single ordering point: gallery mutations, fanout and
	// snapshot+register all happen under it, so every viewer sees one total order.
	mu       sync.Mutex
	sessions map[*Session]struct{}
	sinks    []EventSink
	seq      uint64

	marshal func(v interface{}) ([]byte, error)
}

// NewHub creates a new broadcast hub on top of a gallery store
func NewHub(store *gallery.Store, clock clockwork.Clock, config HubConfig) *Hub {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if config.SendBuffer < 1 {
		config.SendBuffer = DefaultHubConfig().SendBuffer
	}
	return &Hub{
		store:    store,
		clock:    clock,
		config:   config,
		sessions: make(map[*Session]struct{}),
		marshal:  json.Marshal,
	}
}

// AddSink registers an observer for published events
func (h *Hub) AddSink(sink EventSink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sinks = append(h.sinks, sink)
}

// Subscribe registers a new session. The first message on its queue is a
// GallerySnapshot of the current gallery; live events follow without gaps or duplicates.
func (h *Hub) Subscribe() *Session {
	session := &Session{
		ID:          uuid.New().String(),
		ConnectedAt: h.clock.Now(),
		send:        make(chan []byte, h.config.SendBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	snapshot := h.store.Snapshot()
	event, err := newEvent(EventTypeGallerySnapshot, GallerySnapshotPayload{Images: snapshot})
	if err != nil {
		log.Error().Err(err).Msg("failed to build gallery snapshot")
		session.closed = true
		close(session.send)
		return session
	}
	event.Seq = h.seq
	event.Epoch = h.store.Epoch()
	event.Timestamp = h.clock.Now().UTC()

	data, err := h.marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal gallery snapshot")
		session.closed = true
		close(session.send)
		return session
	}

	// The queue is fresh and has room for at least one message.
	session.send <- data
	h.sessions[session] = struct{}{}

	log.Debug().
		Str("session_id", session.ID).
		Int("snapshot_images", len(snapshot)).
		Int("total_sessions", len(h.sessions)).
		Msg("session registered")

	return session
}

// Unsubscribe removes a session. Calling it more than once, or for a session the hub
// already dropped, is a no-op.
func (h *Hub) Unsubscribe(session *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.removeLocked(session) {
		log.Info().
			Str("session_id", session.ID).
			Int("total_sessions", len(h.sessions)).
			Msg("session unregistered")
	}
}

// Append records an image reference in the gallery and broadcasts ImageAdded.
func (h *Hub) Append(reference string) models.ImageRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	record := h.store.Append(reference)
	if err := h.publishLocked(EventTypeImageAdded, ImageAddedPayload{Image: record}); err != nil {
		panic(fmt.Errorf("%w: image %d recorded but not broadcast: %w", gallery.ErrInvariant, record.ID, err))
	}

	log.Info().
		Int64("image_id", record.ID).
		Str("reference", record.Reference).
		Msg("image added to gallery")

	return record
}

// RequestClear empties the gallery and broadcasts GalleryCleared. Viewers never see
// an ImageAdded for an image this clear already discarded.
func (h *Hub) RequestClear() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	removed := h.store.Clear()
	if err := h.publishLocked(EventTypeGalleryCleared, GalleryClearedPayload{Removed: removed}); err != nil {
		panic(fmt.Errorf("%w: gallery cleared but not broadcast: %w", gallery.ErrInvariant, err))
	}

	log.Info().
		Int("removed", removed).
		Uint64("epoch", h.store.Epoch()).
		Msg("gallery cleared")

	return removed
}

// Snapshot returns the current gallery contents
func (h *Hub) Snapshot() []models.ImageRecord {
	return h.store.Snapshot()
}

// State returns the gallery contents together with the epoch they belong to
func (h *Hub) State() ([]models.ImageRecord, uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.store.Snapshot(), h.store.Epoch()
}

// Stats returns statistics about the hub
func (h *Hub) Stats() HubStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	return HubStats{
		Sessions: len(h.sessions),
		Images:   h.store.Len(),
		Epoch:    h.store.Epoch(),
		LastSeq:  h.seq,
	}
}

// Shutdown drops every session; their connections close once the queues drain.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	count := len(h.sessions)
	for session := range h.sessions {
		h.removeLocked(session)
	}
	log.Info().Int("sessions", count).Msg("hub shut down")
}

// publishLocked stamps, marshals and fans out an event. Caller holds h.mu.
// seq only advances once the event is ready to send.
func (h *Hub) publishLocked(eventType EventType, payload interface{}) error {
	event, err := newEvent(eventType, payload)
	if err != nil {
		return err
	}

	event.Seq = h.seq + 1
	event.Epoch = h.store.Epoch()
	event.Timestamp = h.clock.Now().UTC()

	// Marshal the event once
	data, err := h.marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	h.seq = event.Seq

	// Iterate over a copy so dropping sessions below cannot disturb the loop
	targets := make([]*Session, 0, len(h.sessions))
	for session := range h.sessions {
		targets = append(targets, session)
	}

	for _, session := range targets {
		select {
		case session.send <- data:
		default:
			// Session is slow/dead, drop it rather than stall the gallery
			log.Warn().
				Str("session_id", session.ID).
				Str("event_type", string(eventType)).
				Msg("session send buffer full, dropping session")
			h.removeLocked(session)
		}
	}

	for _, sink := range h.sinks {
		sink.Enqueue(event)
	}

	log.Debug().
		Str("event_type", string(eventType)).
		Uint64("seq", event.Seq).
		Int("sessions", len(targets)).
		Msg("event broadcasted")

	return nil
}

// removeLocked unregisters a session and closes its queue. Caller holds h.mu.
func (h *Hub) removeLocked(session *Session) bool {
	if _, ok := h.sessions[session]; !ok {
		return false
	}
	delete(h.sessions, session)
	if !session.closed {
		session.closed = true
		close(session.send)
	}
	return true
}
