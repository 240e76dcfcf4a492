package events

import (
	"context"
	"encoding/json"
)

// Handler receives the raw payload of one named event.
type Handler func(data json.RawMessage)

// Channel is a push-event subscription: named events in, named events
// out. Implementations own the transport; reconnect and backoff are
// their business, not the consumer's. The consumer that activates a
// view owns the channel for that view's lifetime.
type Channel interface {
	Connect(ctx context.Context) error
	Disconnect() error
	On(event string, h Handler)
	Emit(event string, data interface{}) error
}
