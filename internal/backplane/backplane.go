// Package backplane defines the cross-instance publish/subscribe transport
// that fans room events out to every gateway instance, plus redis, NATS,
// and in-memory implementations of it.
package backplane

import (
	"context"
	"encoding/json"
)

// Event is the envelope relayed between gateway instances. Payload carries
// the already-encoded client frame so every instance delivers an identical
// payload to its local sockets.
type Event struct {
	Room         string          `json:"roomId"`
	Type         string          `json:"event"`
	Origin       string          `json:"origin"`
	SourceSocket string          `json:"sourceSocket,omitempty"`
	Payload      json.RawMessage `json:"data"`
}

// Handler receives every event published for any room, including events
// published by the local instance. Implementations must call it from a
// single goroutine per source so per-publisher ordering is preserved.
type Handler func(Event)

// Backplane relays room events across gateway instances. Publish delivers
// the event to every subscribed instance, the publisher included, so local
// and cross-instance delivery share one code path.
type Backplane interface {
	Publish(ctx context.Context, ev Event) error
	Subscribe(h Handler) error
	Close() error
}
