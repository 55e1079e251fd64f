package relay

import (
	"context"

	"github.com/mcdev12/fotowall/go/internal/gallery/gateway"
)

// EventPublisher delivers one hub event to an external system
type EventPublisher interface {
	Publish(ctx context.Context, event *gateway.Event) error
}
