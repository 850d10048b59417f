package event

import (
	"context"
	"sync/atomic"

	"github.com/hms/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// InMemoryEventBus implements shared.EventBus with synchronous in-memory
// pub/sub. Handlers run on the publisher's goroutine; a failing or
// panicking handler is logged and never blocks the others.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
	running  atomic.Bool
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	return &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger,
	}
}

// Publish publishes events to all registered handlers synchronously
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, evt := range events {
		for _, handler := range b.registry.GetHandlers(evt.EventType()) {
			if err := b.dispatch(ctx, handler, evt); err != nil {
				b.logger.Error("handler failed to process event",
					zap.String("event_type", evt.EventType()),
					zap.String("event_id", evt.EventID().String()),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

// Subscribe registers a handler for specific event types
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
	b.logger.Debug("handler unsubscribed")
}

// Start starts the event bus
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	b.running.Store(true)
	b.logger.Info("event bus started")
	return nil
}

// Stop stops the event bus
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.running.Store(false)
	b.logger.Info("event bus stopped")
	return nil
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, handler shared.EventHandler, evt shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panicked",
				zap.String("event_type", evt.EventType()),
				zap.Any("panic", r),
			)
		}
	}()

	return handler.Handle(ctx, evt)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
