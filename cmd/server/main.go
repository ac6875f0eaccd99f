package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/opsdesk/console-core/internal/api"
	"github.com/opsdesk/console-core/internal/config"
	"github.com/opsdesk/console-core/internal/presentation"
	"github.com/opsdesk/console-core/internal/rules"
	"github.com/opsdesk/console-core/internal/snapshot"
	"github.com/opsdesk/console-core/internal/store"
	"github.com/opsdesk/console-core/internal/worker"
	"github.com/opsdesk/console-core/pkg/database"
	"github.com/opsdesk/console-core/pkg/utils"
)

func main() {
	// Local overrides from .env before viper reads the environment.
	_ = gotenv.Load()

	// Load configuration
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
		MaxSizeMB:  cfg.Logger.MaxSizeMB,
		MaxBackups: cfg.Logger.MaxBackups,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Console Core",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	// Initialize database
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Presentation state is keyed per role and session. The session id
	// rotates on every process start so dismissals do not outlive a shift.
	kv := store.NewSQLiteStore(db, logger)
	scope := store.Scope{
		Role:    "employee",
		Session: uuid.NewString(),
	}

	clock := presentation.SystemClock{}
	state := presentation.LoadState(kv, scope, logger)
	policy := presentation.NewPolicy(state, clock, presentation.Config{
		QuietStartHour:     cfg.Alerts.QuietStartHour,
		QuietEndHour:       cfg.Alerts.QuietEndHour,
		DedupeWindow:       time.Duration(cfg.Alerts.DedupeWindowMins) * time.Minute,
		MaxImportantToasts: cfg.Alerts.MaxImportantToasts,
		DefaultSnooze:      time.Duration(cfg.Alerts.SnoozeMinutes) * time.Minute,
	}, logger)

	engine := rules.NewEngine(logger)

	// Snapshots arrive over POST /api/v1/snapshot; the provider holds the
	// latest one for the timed evaluation passes.
	provider := snapshot.NewStaticProvider(nil)

	hub := api.NewHub(logger)

	refresher := snapshot.NewRefresher(
		provider,
		engine,
		policy,
		clock,
		cfg.Refresh.DataInterval,
		cfg.Refresh.ClockInterval,
		hub.Broadcast,
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	workers := worker.NewManager(logger)
	workers.Register(refresher)
	if err := workers.StartAll(ctx); err != nil {
		logger.Fatal("Failed to start background workers", zap.Error(err))
	}

	handlers := api.NewHandlers(refresher, policy, provider, clock, kv, scope, hub, logger)
	server := api.NewServer(api.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, handlers, logger)

	// Start server in a goroutine
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(ctx)
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("Shutting down server...")
	case err := <-serverErr:
		if err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
		}
	}

	cancel()
	workers.StopAll()
	hub.Close()

	logger.Info("Server exited successfully")
}
