package clickhouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rwa-network/usdyx/pkg/retry"
	"github.com/rwa-network/usdyx/pkg/utils"
	"go.uber.org/zap"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

type Client struct {
	Logger         *zap.Logger
	Db             driver.Conn
	TargetDatabase string
}

const (
	MergeTree          = "MergeTree"
	ReplacingMergeTree = "ReplacingMergeTree"
)

// New initializes a ClickHouse client connected to the default database;
// the caller creates and switches to its target database afterwards.
// Environment variables:
//   - CLICKHOUSE_HOST / CLICKHOUSE_PORT: server address (default localhost:9000)
//   - CLICKHOUSE_USER / CLICKHOUSE_PASSWORD: credentials (default "default" / "")
//   - CLICKHOUSE_MAX_OPEN_CONNS / CLICKHOUSE_MAX_IDLE_CONNS: pool sizing
func New(ctx context.Context, logger *zap.Logger, dbName string) (client Client, e error) {
	connCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	client.Logger = logger
	client.TargetDatabase = dbName

	addr := fmt.Sprintf("%s:%s",
		utils.Env("CLICKHOUSE_HOST", "localhost"),
		utils.Env("CLICKHOUSE_PORT", "9000"))

	options := &clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: "default", // Connect to default first; target db may not exist yet
			Username: utils.Env("CLICKHOUSE_USER", "default"),
			Password: utils.Env("CLICKHOUSE_PASSWORD", ""),
		},
		DialTimeout:     30 * time.Second,
		MaxOpenConns:    utils.EnvInt("CLICKHOUSE_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    utils.EnvInt("CLICKHOUSE_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: utils.EnvDuration("CLICKHOUSE_CONN_MAX_LIFETIME", time.Hour),
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		Settings: clickhouse.Settings{
			"prefer_column_name_to_alias": 1,
		},
	}

	if logger.Core().Enabled(zap.DebugLevel) {
		sugar := logger.Named("clickhouse.driver").Sugar()
		options.Debugf = sugar.Debugf
	}

	err := retry.WithBackoff(connCtx, retry.DefaultConfig(), logger, "clickhouse_connection", func() error {
		conn, err := clickhouse.Open(options)
		if err != nil {
			return fmt.Errorf("failed to open clickhouse connection: %w", err)
		}
		if err := conn.Ping(connCtx); err != nil {
			return fmt.Errorf("failed to ping clickhouse: %w", err)
		}
		client.Db = conn
		client.Logger.Info("ClickHouse connection pool configured",
			zap.String("addr", addr),
			zap.String("database", dbName))
		return nil
	})
	if err != nil {
		return Client{}, err
	}

	return client, nil
}

// Exec runs a statement through the underlying connection.
func (c *Client) Exec(ctx context.Context, query string, args ...interface{}) error {
	return c.Db.Exec(ctx, query, args...)
}

// PrepareBatch starts a batch insert through the underlying connection.
func (c *Client) PrepareBatch(ctx context.Context, query string) (driver.Batch, error) {
	return c.Db.PrepareBatch(ctx, query)
}

// CreateDbIfNotExists creates the target database.
func (c *Client) CreateDbIfNotExists(ctx context.Context, name string) error {
	return c.Exec(ctx, fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS "%s"`, name))
}

// SanitizeName sanitizes the provided database name to be compatible with ClickHouse.
func SanitizeName(id string) string {
	s := strings.ToLower(id)
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, ".", "_")
	return s
}
