package ports

import (
	"context"

	"github.com/aescanero/chloe/pkg/domain"
)

// EventHandler handles a single event
type EventHandler func(ctx context.Context, event domain.Event) error

// EventBus publishes and delivers run events
type EventBus interface {
	Publish(ctx context.Context, topic string, event domain.Event) error
	// Subscribe delivers events on topic until ctx is done
	Subscribe(ctx context.Context, topic string, handler EventHandler) error
	Close() error
}

// Event topics
const (
	TopicRunEvents  = "run.events"
	TopicNodeEvents = "node.events"
)
