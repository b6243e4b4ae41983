package backplane

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"

	"github.com/parley-chat/parley/internal/logger"
)

const natsSubjectPrefix = "parley.room."

// NATS is a backplane backed by NATS core pub/sub, one subject per room.
// The client library handles reconnection; messages published while the
// connection is down are reported as errors and handled by the gateway's
// local-only fallback.
type NATS struct {
	conn *nats.Conn
	sub  *nats.Subscription
}

// NewNATS creates a NATS-backed backplane on an existing connection. The
// caller retains ownership of the connection.
func NewNATS(conn *nats.Conn) *NATS {
	return &NATS{conn: conn}
}

// Publish sends the event on the room's subject.
func (n *NATS) Publish(_ context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "marshal backplane event")
	}
	if err := n.conn.Publish(natsSubjectPrefix+ev.Room, payload); err != nil {
		return errors.Wrap(err, "publish backplane event")
	}
	return nil
}

// Subscribe listens on the room subject wildcard and dispatches decoded
// events to the handler.
func (n *NATS) Subscribe(h Handler) error {
	sub, err := n.conn.Subscribe(natsSubjectPrefix+">", func(msg *nats.Msg) {
		var ev Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			logger.Warnf("backplane: dropping undecodable event on %s: %v", msg.Subject, err)
			return
		}
		h(ev)
	})
	if err != nil {
		return errors.Wrap(err, "subscribe backplane")
	}
	n.sub = sub
	return nil
}

// Close tears down the subscription. The underlying connection is left open.
func (n *NATS) Close() error {
	if n.sub != nil {
		return n.sub.Unsubscribe()
	}
	return nil
}
