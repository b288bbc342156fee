package app

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"time"

	"dexflow/internal/dex"
	"dexflow/internal/infra"
	"dexflow/internal/infra/cache"
	"dexflow/internal/infra/storage"
	"dexflow/internal/pipeline"
	"dexflow/internal/queue"
	"dexflow/internal/server"
	"dexflow/internal/ws"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config      *infra.Config
	Storage     *storage.Storage
	Cache       *cache.Cache
	Broadcaster *ws.Broadcaster
	Router      *dex.Router
	Queue       *queue.Queue
	Pipeline    *pipeline.Pipeline
	Server      *server.Server
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization and wires every
// component together. Nothing starts running until Start is called.
func (b *Bootstrap) Initialize(configPath string) error {
	slog.Info("bootstrapping dexflow...")

	// 1. Load Config
	cfg, err := infra.LoadConfig(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("config file missing, using defaults", slog.String("path", configPath))
		cfg = infra.Default()
	} else if err != nil {
		return err
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	// 3. Order Store
	store, err := storage.NewStorage(cfg.Storage.Path)
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("database initialized", slog.String("path", cfg.Storage.Path))

	// 4. Active Cache
	b.Cache = cache.New(cfg.CacheTTL())

	// 5. Status Broadcaster
	b.Broadcaster = ws.NewBroadcaster()

	// 6. Venue Router
	b.Router = dex.NewRouter(cfg)

	// 7. Submission Queue + Execution Pipeline
	b.Queue = queue.New(cfg.Queue.Concurrency, cfg.Queue.RateLimit, cfg.RateWindow())
	b.Pipeline = pipeline.New(store, b.Cache, b.Broadcaster, b.Router, cfg)
	b.Pipeline.AttachQueue(b.Queue)
	b.Queue.OnJob(b.Pipeline.Process)

	// 8. HTTP/WS layer
	b.Server = server.NewServer(cfg, store, b.Cache, b.Queue, b.Broadcaster)

	return nil
}

// Start launches the background machinery: cache janitor and the worker
// pool. The HTTP server is started separately by the caller.
func (b *Bootstrap) Start(ctx context.Context) {
	b.Cache.StartJanitor(ctx, time.Minute)
	b.Queue.Start(ctx)
}

// Shutdown drains the HTTP layer and the worker pool. The Start context
// must already be cancelled.
func (b *Bootstrap) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := b.Server.Shutdown(ctx); err != nil {
		slog.Warn("http shutdown error", slog.Any("error", err))
	}
	b.Queue.Stop()
}
