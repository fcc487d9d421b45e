// Package query serves read-only views of the aggregate state over HTTP:
// health, the protocol metrics singleton, per-address accounts, and daily
// rollup buckets.
package query

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rwa-network/usdyx/pkg/logging"
	"github.com/rwa-network/usdyx/pkg/store"
	"github.com/rwa-network/usdyx/pkg/utils"
	"go.uber.org/zap"
)

type App struct {
	Logger *zap.Logger
	Store  store.Store
	Server *http.Server
}

// Initialize builds the query application.
func Initialize(ctx context.Context) *App {
	logger, err := logging.New()
	if err != nil {
		panic(err)
	}

	st, err := store.NewRedis(ctx, logger)
	if err != nil {
		logger.Fatal("Unable to connect entity store", zap.Error(err))
	}

	app := &App{Logger: logger, Store: st}

	// use <ip>:<port> to bind to a specific interface or :<port> to bind to all interfaces
	addr := utils.Env("ADDR", ":3001")
	app.Server = &http.Server{
		Addr:              addr,
		Handler:           app.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return app
}

// Start serves until the context is cancelled.
func (a *App) Start(ctx context.Context) {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = a.Server.Shutdown(shutdownCtx)
	}()

	a.Logger.Info("Starting query server", zap.String("addr", a.Server.Addr))
	if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.Logger.Fatal("Query server failed", zap.Error(err))
	}
	_ = a.Store.Close()
}
