package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rwa-network/usdyx/pkg/utils"
	"go.uber.org/zap"
)

// Redis persists aggregates as JSON documents in Redis. Batch commits use
// MULTI/EXEC pipelines, so all writes of an event (applied mark included)
// become visible together.
type Redis struct {
	client *redis.Client
	logger *zap.Logger
	prefix string
}

// NewRedis creates a Redis-backed store using environment variables for
// configuration:
//   - REDIS_HOST: Redis host (default: "localhost")
//   - REDIS_PORT: Redis port (default: "6379")
//   - REDIS_PASSWORD: Redis password (default: "")
//   - REDIS_DB: Redis database number (default: "0")
//   - STORE_KEY_PREFIX: namespace prefix for all keys (default: "usdyx:")
func NewRedis(ctx context.Context, logger *zap.Logger) (*Redis, error) {
	host := utils.Env("REDIS_HOST", "localhost")
	port := utils.Env("REDIS_PORT", "6379")
	password := utils.Env("REDIS_PASSWORD", "")
	db := utils.EnvInt("REDIS_DB", 0)
	prefix := utils.Env("STORE_KEY_PREFIX", "usdyx:")

	addr := fmt.Sprintf("%s:%s", host, port)

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,

		// Connection pool
		PoolSize:     10,
		MinIdleConns: 2,

		// Timeouts
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	logger.Info("Connected to Redis entity store",
		zap.String("addr", addr),
		zap.Int("db", db),
		zap.String("prefix", prefix))

	return &Redis{client: rdb, logger: logger, prefix: prefix}, nil
}

// NewRedisWithClient wraps an existing client; the stream consumer and the
// entity store share one connection pool this way.
func NewRedisWithClient(client *redis.Client, logger *zap.Logger, prefix string) *Redis {
	return &Redis{client: client, logger: logger, prefix: prefix}
}

// Client exposes the underlying connection for collaborators that share it.
func (r *Redis) Client() *redis.Client {
	return r.client
}

func (r *Redis) Get(ctx context.Context, key string, doc interface{}) (bool, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store get %s: %w", key, err)
	}
	if err := unmarshalDoc(data, doc); err != nil {
		return false, fmt.Errorf("store decode %s: %w", key, err)
	}
	return true, nil
}

func (r *Redis) Applied(ctx context.Context, eventID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.prefix+appliedPrefix+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("store applied check %s: %w", eventID, err)
	}
	return n > 0, nil
}

func (r *Redis) Commit(ctx context.Context, b *Batch) error {
	if b.Empty() {
		return nil
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, p := range b.puts {
			pipe.Set(ctx, r.prefix+p.key, p.data, 0)
		}
		for _, id := range b.applied {
			pipe.Set(ctx, r.prefix+appliedPrefix+id, "1", 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store commit (%d writes): %w", b.Len(), err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
