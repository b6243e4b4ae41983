package backplane

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/parley-chat/parley/internal/logger"
)

const redisChannelPrefix = "parley.room."

// Redis is a backplane backed by redis pub/sub. One pattern subscription
// covers every room; the client reconnects and resubscribes automatically,
// so a redis outage degrades delivery without requiring manual recovery.
type Redis struct {
	client *redis.Client
	cancel context.CancelFunc
	pubsub *redis.PubSub
}

// NewRedis creates a redis-backed backplane on an existing client. The
// caller retains ownership of the client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Publish sends the event on the room's channel. Errors are returned to the
// caller so the gateway can fall back to local-only delivery.
func (r *Redis) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "marshal backplane event")
	}
	if err := r.client.Publish(ctx, redisChannelPrefix+ev.Room, payload).Err(); err != nil {
		return errors.Wrap(err, "publish backplane event")
	}
	return nil
}

// Subscribe starts a pattern subscription over all room channels and
// dispatches decoded events to the handler from a single goroutine.
func (r *Redis) Subscribe(h Handler) error {
	ctx, cancel := context.WithCancel(context.Background())
	pubsub := r.client.PSubscribe(ctx, redisChannelPrefix+"*")
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		_ = pubsub.Close()
		return errors.Wrap(err, "subscribe backplane")
	}

	r.cancel = cancel
	r.pubsub = pubsub

	go func() {
		for msg := range pubsub.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				logger.Warnf("backplane: dropping undecodable event on %s: %v", msg.Channel, err)
				continue
			}
			h(ev)
		}
	}()

	return nil
}

// Close tears down the subscription. The underlying client is left open.
func (r *Redis) Close() error {
	if r.cancel != nil {
		r.cancel()
	}
	if r.pubsub != nil {
		return r.pubsub.Close()
	}
	return nil
}
