package stream

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rwa-network/usdyx/pkg/events"
	"github.com/rwa-network/usdyx/pkg/utils"
)

// Publisher appends events to the stream. The chain gateway is the
// production publisher; tests and backfill tooling use this one.
type Publisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{
		client: client,
		stream: utils.Env("EVENT_STREAM", "usdyx:events"),
		maxLen: utils.EnvInt64("EVENT_STREAM_MAXLEN", 0),
	}
}

// Publish appends one event; entries inherit stream order from call order.
func (p *Publisher) Publish(ctx context.Context, ev events.Event) error {
	values, err := events.Encode(ev)
	if err != nil {
		return err
	}
	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: values,
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("publish %s %s: %w", ev.Kind(), ev.Prov().ID(), err)
	}
	return nil
}
