package events

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// PayloadField is the stream entry field holding the message body.
const PayloadField = "payload"

// RedisPublisher appends messages to a Redis stream named after the queue.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// DeclareQueue only checks connectivity; XADD creates the stream on first use.
func (p *RedisPublisher) DeclareQueue(ctx context.Context, queue string) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}
	return nil
}

func (p *RedisPublisher) Publish(ctx context.Context, queue string, body []byte) error {
	args := &redis.XAddArgs{
		Stream: queue,
		Values: map[string]any{
			PayloadField: body,
		},
	}

	if _, err := p.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
