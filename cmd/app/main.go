package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"dexflow/internal/app"

	"github.com/joho/godotenv"

	_ "net/http/pprof" // For pprof profiling
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	// Local development overrides, ignored when absent.
	_ = godotenv.Load()

	// 1. Pprof Server (for performance profiling)
	go func() {
		// Localhost only for security
		slog.Info("pprof server started on localhost:6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("pprof server failed", slog.Any("error", err))
		}
	}()

	// 2. System Bootstrapping
	configPath := os.Getenv("DEXFLOW_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(configPath); err != nil {
		slog.Error("bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}

	// 3. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Background machinery: worker pool + cache janitor
	bootstrap.Start(ctx)

	// 5. HTTP/WS front
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- bootstrap.Server.Start()
	}()
	slog.InfoContext(ctx, "dexflow operational",
		slog.String("ws", "/api/orders/{orderId}/ws"),
		slog.Int("port", bootstrap.Config.Server.Port),
	)

	select {
	case <-ctx.Done():
		slog.Info("shutting down gracefully...")
	case err := <-serverErr:
		if err != nil {
			slog.Error("http server failed", slog.Any("error", err))
		}
		stop()
	}

	bootstrap.Shutdown()
	slog.Info("bye")
}
