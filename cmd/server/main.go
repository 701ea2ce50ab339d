package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	dbfs "github.com/garnizeh/timesheet/db"
	"github.com/garnizeh/timesheet/api"
	"github.com/garnizeh/timesheet/internal/config"
	"github.com/garnizeh/timesheet/internal/db"
	"github.com/garnizeh/timesheet/internal/metrics"
	"github.com/garnizeh/timesheet/internal/queue"
	"github.com/garnizeh/timesheet/internal/report"
	"github.com/garnizeh/timesheet/internal/repository/sqlite"
	"github.com/garnizeh/timesheet/internal/session"
	"github.com/garnizeh/timesheet/internal/timesheet"
	"github.com/garnizeh/timesheet/pkg/logging"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "timesheet: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "", "Path to config YAML file")
		envFile    = flag.String("env-file", ".env", "Path to a .env file (optional)")
	)
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		return err
	}
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.Setup(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}
	api.SetLogger(logger)
	logger.Info("starting timesheet server", slog.String("version", version), slog.String("build_time", buildTime), slog.String("env", config.Env()))

	locale, err := report.ParseLocale(cfg.Locale)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, cfg.APITimeout)
	defer cancel()
	conn, err := db.New(openCtx, cfg.DatabasePath, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Error("close database", slog.Any("err", err))
		}
	}()

	if cfg.MigrateOnStart {
		if err := db.Migrate(openCtx, conn, dbfs.Migrations); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	m := metrics.New()
	repo := sqlite.New(conn, logger)
	notifier := session.NewNotifier()
	notifier.Subscribe(func(e session.Event) {
		logger.Info("session event", slog.String("kind", string(e.Kind)), slog.Int64("user_id", e.UserID), slog.String("email", e.Email))
		m.SessionEvent(string(e.Kind))
	})

	// the pool and the service reference each other: the service enqueues
	// exports and the pool runs the service's export handler
	handlers := map[string]queue.Handler{}
	pool := queue.NewWorkerPool(queue.NewRepository(conn), handlers, logger.With(slog.String("component", "queue")), cfg.Workers, queue.WithMetrics(m))
	svc := timesheet.NewService(repo, timesheet.Options{
		Locale:    locale,
		Brand:     cfg.Brand,
		ExportDir: cfg.ExportDir,
		Metrics:   m,
		Logger:    logger,
		Tasks:     pool,
	})
	handlers[timesheet.TaskExportReport] = svc.HandleExportTask

	pool.Start(ctx)
	defer pool.Stop()

	handler := api.SetupRoutes(api.Deps{
		Config:    cfg,
		Version:   version,
		BuildTime: buildTime,
		Store:     repo,
		Service:   svc,
		Notifier:  notifier,
		Metrics:   m,
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.APITimeout,
		WriteTimeout:      cfg.APITimeout,
		IdleTimeout:       60 * time.Second,
		// open event streams end when a shutdown signal arrives
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}
