package memory

import (
	"context"
	"sync"

	"github.com/aescanero/chloe/pkg/domain"
	"github.com/aescanero/chloe/pkg/ports"
	"go.uber.org/zap"
)

// subscriberBuffer bounds the events queued for a slow subscriber
const subscriberBuffer = 256

type subscription struct {
	id      uint64
	events  chan domain.Event
	handler ports.EventHandler
}

// EventBus implements ports.EventBus in process. Each subscriber receives
// events in publish order on its own goroutine.
type EventBus struct {
	logger *zap.Logger

	mu          sync.RWMutex
	nextID      uint64
	subscribers map[string]map[uint64]*subscription
	closed      bool
	wg          sync.WaitGroup
}

// NewEventBus creates a new in-memory event bus
func NewEventBus(logger *zap.Logger) *EventBus {
	return &EventBus{
		logger:      logger,
		subscribers: make(map[string]map[uint64]*subscription),
	}
}

// Publish hands an event to every subscriber of a topic without blocking.
// Events for a subscriber whose buffer is full are dropped.
func (e *EventBus) Publish(ctx context.Context, topic string, event domain.Event) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil
	}

	for _, sub := range e.subscribers[topic] {
		select {
		case sub.events <- event:
		default:
			e.logger.Warn("dropping event for slow subscriber",
				zap.String("topic", topic),
				zap.String("run_id", event.RunID),
				zap.String("event_type", string(event.Type)))
		}
	}
	return nil
}

// Subscribe delivers events on topic to handler until ctx is done
func (e *EventBus) Subscribe(ctx context.Context, topic string, handler ports.EventHandler) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return context.Canceled
	}

	e.nextID++
	sub := &subscription{
		id:      e.nextID,
		events:  make(chan domain.Event, subscriberBuffer),
		handler: handler,
	}
	if e.subscribers[topic] == nil {
		e.subscribers[topic] = make(map[uint64]*subscription)
	}
	e.subscribers[topic][sub.id] = sub

	e.wg.Add(1)
	go e.deliver(ctx, topic, sub)
	return nil
}

func (e *EventBus) deliver(ctx context.Context, topic string, sub *subscription) {
	defer e.wg.Done()
	defer e.unsubscribe(topic, sub.id)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sub.events:
			if !ok {
				return
			}
			if err := sub.handler(ctx, event); err != nil {
				e.logger.Debug("event handler error",
					zap.String("topic", topic),
					zap.String("event_id", event.ID),
					zap.Error(err))
			}
		}
	}
}

// unsubscribe removes a subscription from a topic
func (e *EventBus) unsubscribe(topic string, id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.subscribers[topic], id)
	if len(e.subscribers[topic]) == 0 {
		delete(e.subscribers, topic)
	}
}

// Close stops every subscription and waits for their handlers to return
func (e *EventBus) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	for _, subs := range e.subscribers {
		for _, sub := range subs {
			close(sub.events)
		}
	}
	e.subscribers = make(map[string]map[uint64]*subscription)
	e.mu.Unlock()

	e.wg.Wait()
	return nil
}
