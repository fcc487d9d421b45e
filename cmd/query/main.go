package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rwa-network/usdyx/app/query"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	defer cancel()

	app := query.Initialize(ctx)

	app.Start(ctx)
}
