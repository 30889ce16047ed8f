package shared

import "context"

// EventHandler consumes domain events published after a run commits.
// Handlers are where the derived side of the system hangs off the
// pipeline: series recompute, run metrics.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes narrows delivery; empty means every event
	EventTypes() []string
}

// EventPublisher is the half the ingestion coordinator depends on. It
// publishes only after the run transaction is durable, so handlers
// never observe rolled-back work.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventBus is the full in-process bus: publication plus subscription
// management and lifecycle.
type EventBus interface {
	EventPublisher
	// Subscribe registers a handler; with no event types it falls back
	// to the handler's own EventTypes
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
