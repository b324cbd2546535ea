package events

import (
	"context"
	"fmt"
	"net/url"

	sharedredis "github.com/kpressOrg/user-service/shared/redis"
)

// Publisher sends fire-and-forget messages to a named queue. Implementations
// are safe for concurrent use and own their broker connection.
type Publisher interface {
	// DeclareQueue makes sure the queue exists, creating it non-durable if absent.
	DeclareQueue(ctx context.Context, queue string) error
	Publish(ctx context.Context, queue string, body []byte) error
	Ping(ctx context.Context) error
	Close() error
}

// Dial connects to the broker named by rawURL. amqp:// and amqps:// select
// RabbitMQ, redis:// and rediss:// select Redis streams.
func Dial(ctx context.Context, rawURL string) (Publisher, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid broker url: %w", err)
	}

	switch u.Scheme {
	case "amqp", "amqps":
		return DialAMQP(ctx, rawURL)
	case "redis", "rediss":
		client, err := sharedredis.NewClient(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		return NewRedisPublisher(client.Client), nil
	default:
		return nil, fmt.Errorf("unsupported broker scheme %q", u.Scheme)
	}
}
