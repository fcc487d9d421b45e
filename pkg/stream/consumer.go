// Package stream consumes the ordered event feed from a Redis stream.
// Delivery is strictly sequential: one entry at a time, in stream order,
// acknowledged only after the handler succeeds. A failing entry is retried
// in place with backoff, never skipped, so interrupted processing resumes
// from the exact event that did not commit.
package stream

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rwa-network/usdyx/pkg/utils"
	"go.uber.org/zap"
)

// Handler processes one stream entry. Returning nil acknowledges the
// entry; returning an error blocks the stream and retries the same entry.
// Handlers must swallow (and log) errors that should not halt the stream.
type Handler func(ctx context.Context, msg Message) error

// Message is a single stream entry with its raw fields.
type Message struct {
	ID     string
	Values map[string]interface{}
}

// ConsumerConfig configures a Consumer. Zero values pick sane defaults.
type ConsumerConfig struct {
	// Stream is the Redis stream name (required).
	Stream string

	// Group and Consumer name the consumer group membership. The group is
	// created at the stream head if it does not exist, so restarts resume
	// from the first unacknowledged entry.
	Group    string
	Consumer string

	// Block is how long each read waits for new entries.
	Block time.Duration

	// RetryInterval / MaxRetryInterval bound the backoff applied when the
	// handler or the read fails.
	RetryInterval    time.Duration
	MaxRetryInterval time.Duration

	Logger *zap.Logger
}

// NewConsumerConfig builds a config from the environment:
// EVENT_STREAM (default "usdyx:events"), EVENT_STREAM_GROUP
// (default "usdyx-indexer"), EVENT_STREAM_CONSUMER (default "indexer-1").
func NewConsumerConfig(logger *zap.Logger) ConsumerConfig {
	return ConsumerConfig{
		Stream:   utils.Env("EVENT_STREAM", "usdyx:events"),
		Group:    utils.Env("EVENT_STREAM_GROUP", "usdyx-indexer"),
		Consumer: utils.Env("EVENT_STREAM_CONSUMER", "indexer-1"),
		Logger:   logger,
	}
}

// Consumer reads a Redis stream sequentially through a consumer group.
type Consumer struct {
	client *redis.Client
	config ConsumerConfig
	logger *zap.Logger
}

func NewConsumer(client *redis.Client, config ConsumerConfig) (*Consumer, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if config.Stream == "" {
		return nil, errors.New("stream name is required")
	}
	if config.Group == "" || config.Consumer == "" {
		return nil, errors.New("group and consumer names are required")
	}
	if config.Block == 0 {
		config.Block = 5 * time.Second
	}
	if config.RetryInterval == 0 {
		config.RetryInterval = 1 * time.Second
	}
	if config.MaxRetryInterval == 0 {
		config.MaxRetryInterval = 30 * time.Second
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{client: client, config: config, logger: logger.Named("stream")}, nil
}

// Run consumes entries until the context is cancelled.
func (c *Consumer) Run(ctx context.Context, handler Handler) error {
	if err := c.ensureGroup(ctx); err != nil {
		return err
	}
	c.logger.Info("Consumer group ready",
		zap.String("stream", c.config.Stream),
		zap.String("group", c.config.Group),
		zap.String("consumer", c.config.Consumer))

	// Drain entries delivered but unacknowledged before a restart first,
	// then switch to new entries. "0" reads our pending list; ">" reads new.
	cursor := "0"
	retryInterval := c.config.RetryInterval

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Stream consumer shutting down",
				zap.String("stream", c.config.Stream))
			return ctx.Err()
		default:
		}

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.config.Group,
			Consumer: c.config.Consumer,
			Streams:  []string{c.config.Stream, cursor},
			Count:    100,
			Block:    c.config.Block,
		}).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			c.logger.Warn("Error reading from stream, will retry",
				zap.String("stream", c.config.Stream),
				zap.Error(err),
				zap.Duration("retryIn", retryInterval))
			select {
			case <-time.After(retryInterval):
				retryInterval = min(retryInterval*2, c.config.MaxRetryInterval)
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		retryInterval = c.config.RetryInterval

		empty := true
		for _, s := range streams {
			for _, xmsg := range s.Messages {
				empty = false
				msg := Message{ID: xmsg.ID, Values: xmsg.Values}
				if err := c.processSequential(ctx, handler, msg); err != nil {
					return err
				}
			}
		}

		// Pending list exhausted: start reading new entries.
		if cursor == "0" && empty {
			cursor = ">"
		}
	}
}

// processSequential retries the same entry until the handler accepts it or
// the context ends. Ordering is the whole contract: the stream never
// advances past an unapplied entry.
func (c *Consumer) processSequential(ctx context.Context, handler Handler, msg Message) error {
	retryInterval := c.config.RetryInterval
	for {
		err := handler(ctx, msg)
		if err == nil {
			if ackErr := c.client.XAck(ctx, c.config.Stream, c.config.Group, msg.ID).Err(); ackErr != nil {
				c.logger.Warn("Failed to acknowledge entry",
					zap.String("stream", c.config.Stream),
					zap.String("id", msg.ID),
					zap.Error(ackErr))
			}
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		c.logger.Warn("Entry failed, retrying in place",
			zap.String("stream", c.config.Stream),
			zap.String("id", msg.ID),
			zap.Duration("retryIn", retryInterval),
			zap.Error(err))
		select {
		case <-time.After(retryInterval):
			retryInterval = min(retryInterval*2, c.config.MaxRetryInterval)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Consumer) ensureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.config.Stream, c.config.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}
