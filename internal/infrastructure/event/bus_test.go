package event

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/treasury/backend/internal/domain/shared"
)

func newTestEvent(eventType string) shared.DomainEvent {
	e := shared.NewBaseDomainEvent(eventType, "payment", uuid.New(), uuid.New())
	return &e
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	t.Run("dispatches to subscribed handlers", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())

		var received []string
		bus.Subscribe(func(e shared.DomainEvent) {
			received = append(received, e.EventType())
		}, "payment.executed", "payment.confirmed")

		bus.Publish(
			newTestEvent("payment.executed"),
			newTestEvent("payment.cancelled"),
			newTestEvent("payment.confirmed"),
		)

		assert.Equal(t, []string{"payment.executed", "payment.confirmed"}, received)
	})

	t.Run("ignores events without handlers", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		assert.NotPanics(t, func() {
			bus.Publish(newTestEvent("payment.created"))
		})
	})

	t.Run("recovers from panicking handler", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())

		calls := 0
		bus.Subscribe(func(shared.DomainEvent) { panic("boom") }, "payment.executed")
		bus.Subscribe(func(shared.DomainEvent) { calls++ }, "payment.executed")

		assert.NotPanics(t, func() {
			bus.Publish(newTestEvent("payment.executed"))
		})
		assert.Equal(t, 1, calls)
	})
}
