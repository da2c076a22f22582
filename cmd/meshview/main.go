// meshview connects to a geometry source and keeps a live scene of its updates.
// Usage: go run ./cmd/meshview --config configs/meshview.example.yaml
//
// Without --config the viewer connects to ws://localhost:9223 with defaults.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/meshview/internal/config"
	"github.com/rickgao/meshview/internal/connection"
	"github.com/rickgao/meshview/internal/database"
	"github.com/rickgao/meshview/internal/geometry"
	"github.com/rickgao/meshview/internal/journal"
	"github.com/rickgao/meshview/internal/palette"
	"github.com/rickgao/meshview/internal/router"
	"github.com/rickgao/meshview/internal/scene"
	"github.com/rickgao/meshview/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults apply when empty)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting meshview",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"url", cfg.Connection.URL,
		"unknown_kind", cfg.Scene.UnknownKind,
		"journal", cfg.Journal.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("meshview failed", "error", err)
		os.Exit(1)
	}

	logger.Info("meshview stopped")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.LoadAndValidate(path)
}

// viewer holds the wired components of one run.
type viewer struct {
	engine  *scene.MemoryEngine
	applier *scene.Applier
	router  router.Router
	manager connection.Manager
	journal *journal.Writer // nil when disabled or unavailable
	db      *pgxpool.Pool
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	v, err := buildViewer(ctx, cfg, logger)
	if err != nil {
		return err
	}

	if v.journal != nil {
		if err := v.journal.Start(ctx); err != nil {
			return fmt.Errorf("start journal: %w", err)
		}
	}

	healthServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Health.Port),
		Handler:           newHealthHandler(cfg.Instance.ID, v, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := v.manager.Start(gctx); err != nil {
			return fmt.Errorf("start connection manager: %w", err)
		}
		<-gctx.Done()

		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return v.manager.Stop(stopCtx)
	})

	g.Go(func() error {
		logger.Info("starting health server", "port", cfg.Health.Port)
		if err := healthServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return healthServer.Shutdown(shutdownCtx)
	})

	err = g.Wait()

	// The event loop has exited, so nothing records after this point.
	if v.journal != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		v.journal.Stop(stopCtx)
		v.db.Close()
	}

	return err
}

// buildViewer wires the scene, router, journal and connection manager.
func buildViewer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*viewer, error) {
	colors, err := cfg.Scene.Colors()
	if err != nil {
		return nil, err
	}
	policy, err := geometry.ParsePolicy(cfg.Scene.UnknownKind)
	if err != nil {
		return nil, err
	}

	engine := scene.NewMemoryEngine()
	setup := scene.DefaultSetup()
	setup.ClearColor = colors.Clear
	if err := engine.Init(setup); err != nil {
		return nil, fmt.Errorf("init scene: %w", err)
	}

	// Polyline colors are checked against the clear color they are drawn on.
	sampler := palette.NewSampler(palette.Config{
		Reference:   colors.Clear,
		Threshold:   cfg.Scene.ContrastThreshold,
		MaxAttempts: cfg.Scene.MaxColorAttempts,
	}, nil)

	style := scene.DefaultMeshStyle()
	style.BaseColor = colors.Mesh
	style.SpecularColor = colors.Specular

	v := &viewer{
		engine:  engine,
		applier: scene.NewApplier(engine, sampler, style, logger.With("component", "scene")),
	}

	var recorder router.Recorder
	if cfg.Journal.Enabled {
		v.journal, v.db = openJournal(ctx, cfg.Journal, logger.With("component", "journal"))
		if v.journal != nil {
			recorder = v.journal
		}
	}

	v.router = router.NewRouter(router.RouterConfig{
		UnknownKind:   policy,
		RecordPayload: !cfg.Journal.SkipPayload,
	}, v.applier, recorder, logger.With("component", "router"))

	v.manager = connection.NewManager(managerConfig(cfg.Connection), v.router, logger.With("component", "connection"))

	return v, nil
}

// openJournal connects the journal database. Failures disable the journal
// instead of stopping the viewer.
func openJournal(ctx context.Context, cfg config.JournalConfig, logger *slog.Logger) (*journal.Writer, *pgxpool.Pool) {
	logger.Info("connecting to journal database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := database.Connect(connectCtx, cfg.Database)
	if err != nil {
		logger.Warn("journal disabled: database unavailable", "error", err)
		return nil, nil
	}
	if err := journal.EnsureSchema(connectCtx, pool); err != nil {
		logger.Warn("journal disabled: schema setup failed", "error", err)
		pool.Close()
		return nil, nil
	}

	input := journal.NewGrowableBuffer[router.UpdateRecord](cfg.BufferSize, cfg.MaxBufferSize)
	w := journal.NewWriter(journal.WriterConfig{
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
	}, input, pool, logger)

	logger.Info("journal connected", "session", w.Session())
	return w, pool
}

func managerConfig(c config.ConnectionConfig) connection.ManagerConfig {
	mc := connection.DefaultManagerConfig()
	mc.ReconnectInterval = c.ReconnectInterval
	mc.Client = connection.ClientConfig{
		URL:              c.URL,
		HandshakeTimeout: c.HandshakeTimeout,
		PingInterval:     c.PingInterval,
		PingTimeout:      c.PingTimeout,
		WriteTimeout:     c.WriteTimeout,
		BufferSize:       c.BufferSize,
	}
	return mc
}
