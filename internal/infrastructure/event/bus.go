package event

import (
	"sync"

	"go.uber.org/zap"

	"github.com/treasury/backend/internal/domain/shared"
)

// HandlerFunc processes a single domain event
type HandlerFunc func(event shared.DomainEvent)

// InMemoryEventBus implements EventBus with synchronous in-process dispatch.
// Handlers run on the publisher's goroutine; a panicking handler is logged
// and never takes the publisher down.
type InMemoryEventBus struct {
	mu       sync.RWMutex
	handlers map[string][]HandlerFunc
	logger   *zap.Logger
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	return &InMemoryEventBus{
		handlers: make(map[string][]HandlerFunc),
		logger:   logger,
	}
}

// Subscribe registers a handler for the given event types
func (b *InMemoryEventBus) Subscribe(handler HandlerFunc, eventTypes ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, eventType := range eventTypes {
		b.handlers[eventType] = append(b.handlers[eventType], handler)
	}
	b.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

// Publish dispatches events to all handlers registered for their types
func (b *InMemoryEventBus) Publish(events ...shared.DomainEvent) {
	for _, e := range events {
		b.mu.RLock()
		handlers := b.handlers[e.EventType()]
		b.mu.RUnlock()

		b.logger.Debug("publishing event",
			zap.String("event_type", e.EventType()),
			zap.String("event_id", e.EventID().String()),
			zap.String("aggregate_id", e.AggregateID().String()),
		)

		for _, handler := range handlers {
			b.dispatch(handler, e)
		}
	}
}

func (b *InMemoryEventBus) dispatch(handler HandlerFunc, e shared.DomainEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("event_type", e.EventType()),
				zap.String("event_id", e.EventID().String()),
				zap.Any("panic", r),
			)
		}
	}()
	handler(e)
}

// Ensure InMemoryEventBus implements EventBus
var _ shared.EventBus = (*InMemoryEventBus)(nil)
