package pubsub

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// channelPrefix namespaces job rooms on the shared Redis instance.
const channelPrefix = "clipforge:job:"

// RedisPublisher publishes events to Redis channels keyed by room, for
// deployments where the web surface runs in a separate process.
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher wraps a Redis client.
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// Publish implements Publisher. Failures are logged, never propagated:
// progress delivery is best-effort.
func (p *RedisPublisher) Publish(ctx context.Context, room string, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal progress event", "room", room, "error", err)
		return
	}
	if err := p.client.Publish(ctx, channelPrefix+room, payload).Err(); err != nil {
		slog.Warn("failed to publish progress event", "room", room, "error", err)
	}
}

// Fanout publishes every event to all wrapped publishers. Used to feed the
// in-process SSE hub and Redis at the same time.
type Fanout []Publisher

// Publish implements Publisher.
func (f Fanout) Publish(ctx context.Context, room string, event Event) {
	for _, p := range f {
		p.Publish(ctx, room, event)
	}
}
