package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcdev12/fotowall/go/internal/models"
)

// Event is the envelope pushed to every viewer
type Event struct {
	Seq       uint64          `json:"seq"`       // Hub-wide publish order
	Epoch     uint64          `json:"epoch"`     // Gallery epoch after the event applied
	Type      EventType       `json:"type"`      // Event type
	Timestamp time.Time       `json:"timestamp"` // Event creation time
	Data      json.RawMessage `json:"data"`      // Event-specific payload
}

// EventType represents the type of gallery event
type EventType string

const (
	EventTypeImageAdded      EventType = "ImageAdded"
	EventTypeGalleryCleared  EventType = "GalleryCleared"
	EventTypeGallerySnapshot EventType = "GallerySnapshot"
)

// ImageAddedPayload carries the record that was appended
type ImageAddedPayload struct {
	Image models.ImageRecord `json:"image"`
}

// GalleryClearedPayload is sent after a reset
type GalleryClearedPayload struct {
	Removed int `json:"removed"`
}

// GallerySnapshotPayload is the join-time state of the gallery, oldest first.
// Events with a seq greater than the snapshot's seq come after it.
type GallerySnapshotPayload struct {
	Images []models.ImageRecord `json:"images"`
}

// ClientMessageType is what viewers may send to the server
type ClientMessageType string

const (
	ClientMessageClearGallery ClientMessageType = "ClearGallery"
)

// ClientMessage is a command received from a viewer connection
type ClientMessage struct {
	Type ClientMessageType `json:"type"`
}

func newEvent(eventType EventType, payload interface{}) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Event{Type: eventType, Data: data}, nil
}

// ParseEventPayload parses event data into the appropriate payload struct
func ParseEventPayload(event *Event) (interface{}, error) {
	switch event.Type {
	case EventTypeImageAdded:
		var payload ImageAddedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeGalleryCleared:
		var payload GalleryClearedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeGallerySnapshot:
		var payload GallerySnapshotPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	default:
		return nil, fmt.Errorf("unknown event type: %s", event.Type)
	}
}
