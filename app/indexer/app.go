// Package indexer wires the event-stream consumer to the aggregation core:
// Redis entity store, ClickHouse audit log, dispatcher, and the cron jobs
// that flush the audit buffer and log progress.
package indexer

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rwa-network/usdyx/pkg/db/audit"
	"github.com/rwa-network/usdyx/pkg/dispatcher"
	"github.com/rwa-network/usdyx/pkg/events"
	"github.com/rwa-network/usdyx/pkg/logging"
	"github.com/rwa-network/usdyx/pkg/store"
	"github.com/rwa-network/usdyx/pkg/stream"
	"github.com/rwa-network/usdyx/pkg/utils"
	"go.uber.org/zap"
)

// auditSink is what the app needs from the audit layer: the dispatcher's
// record surface plus flush lifecycle.
type auditSink interface {
	dispatcher.AuditLog
	NeedsFlush() bool
	Flush(ctx context.Context) error
	Close(ctx context.Context) error
}

type App struct {
	Logger     *zap.Logger
	Store      store.Store
	AuditDB    *audit.DB
	Audit      auditSink
	Dispatcher *dispatcher.Dispatcher
	Consumer   *stream.Consumer
	Cron       *cron.Cron
}

// Initialize builds the application or dies trying.
func Initialize(ctx context.Context) *App {
	logger, err := logging.New()
	if err != nil {
		// nothing else to do here, we'll just log to stderr
		panic(err)
	}

	// Entity store. MEMORY_STORE=1 keeps aggregates in process memory, for
	// local development against a real stream.
	var st store.Store
	var redisStore *store.Redis
	if utils.EnvBool("MEMORY_STORE", false) {
		logger.Warn("Using in-memory entity store; aggregates will not survive restarts")
		st = store.NewMemory()
	} else {
		redisStore, err = store.NewRedis(ctx, logger)
		if err != nil {
			logger.Fatal("Unable to connect entity store", zap.Error(err))
		}
		st = redisStore
	}

	// Audit log.
	var sink auditSink = audit.Nop{}
	var auditDb *audit.DB
	if utils.EnvBool("AUDIT_DISABLED", false) {
		logger.Warn("Audit log disabled; no write-once records will be persisted")
	} else {
		auditDb, err = audit.New(ctx, logger)
		if err != nil {
			logger.Fatal("Unable to initialize audit database", zap.Error(err))
		}
		sink = audit.NewWriter(auditDb, logger)
	}

	disp := dispatcher.New(logger, st, sink)

	// The stream consumer shares the store's Redis connection when there is
	// one; memory mode opens its own.
	var consumerClient = redisStore
	if consumerClient == nil {
		consumerClient, err = store.NewRedis(ctx, logger)
		if err != nil {
			logger.Fatal("Unable to connect event stream", zap.Error(err))
		}
	}
	consumer, err := stream.NewConsumer(consumerClient.Client(), stream.NewConsumerConfig(logger))
	if err != nil {
		logger.Fatal("Unable to build stream consumer", zap.Error(err))
	}

	app := &App{
		Logger:     logger,
		Store:      st,
		AuditDB:    auditDb,
		Audit:      sink,
		Dispatcher: disp,
		Consumer:   consumer,
		Cron:       cron.New(),
	}

	flushSpec := "@every " + utils.Env("AUDIT_FLUSH_INTERVAL", "5s")
	if _, err := app.Cron.AddFunc(flushSpec, func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := app.Audit.Flush(flushCtx); err != nil {
			logger.Warn("Scheduled audit flush failed", zap.Error(err))
		}
	}); err != nil {
		logger.Fatal("Unable to schedule audit flush", zap.Error(err))
	}

	return app
}

// Start runs the consumer and blocks until the context is cancelled.
func (a *App) Start(ctx context.Context) {
	a.Cron.Start()

	err := a.Consumer.Run(ctx, a.handle)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error("Consumer stopped", zap.Error(err))
	}
	a.Stop()
}

// Stop drains the audit buffer and releases connections.
func (a *App) Stop() {
	cronCtx := a.Cron.Stop()
	<-cronCtx.Done()

	closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.Audit.Close(closeCtx); err != nil {
		a.Logger.Warn("Audit writer close failed", zap.Error(err))
	}
	if a.AuditDB != nil {
		_ = a.AuditDB.Close()
	}
	_ = a.Store.Close()
	a.Logger.Info("さようなら!")
}

// handle decodes and applies one stream entry. Returning nil acknowledges;
// returning an error makes the consumer retry the same entry, which is the
// store-unavailability contract: nothing partial committed, resume here.
func (a *App) handle(ctx context.Context, msg stream.Message) error {
	ev, err := events.Decode(msg.Values)
	if err != nil {
		// Undecodable or invalid entries cannot succeed on retry. Reject
		// with provenance and move on.
		a.Logger.Warn("Dropping malformed stream entry",
			zap.String("id", msg.ID),
			zap.Error(err))
		return nil
	}

	err = a.Dispatcher.Process(ctx, ev)
	switch {
	case err == nil:
	case errors.Is(err, dispatcher.ErrDuplicate):
		// Already applied; redelivery after a crash between commit and ack.
	case errors.Is(err, events.ErrMalformed):
		a.Logger.Warn("Dropping malformed event",
			zap.String("id", msg.ID),
			zap.Error(err))
	default:
		return err
	}

	if a.Audit.NeedsFlush() {
		if err := a.Audit.Flush(ctx); err != nil {
			a.Logger.Warn("Backpressure audit flush failed", zap.Error(err))
		}
	}
	return nil
}
