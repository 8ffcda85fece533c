// Package main implements the entry point for the content pipeline worker,
// which claims generation, integration and scheduled-publish jobs from the
// durable queue and drives them through the quality-control loop.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/Inferno2211/blog-gen-sub002/internal/config"
	"github.com/Inferno2211/blog-gen-sub002/internal/generation"
	"github.com/Inferno2211/blog-gen-sub002/internal/job"
	"github.com/Inferno2211/blog-gen-sub002/internal/platform/email"
	"github.com/Inferno2211/blog-gen-sub002/internal/platform/gemini"
	"github.com/Inferno2211/blog-gen-sub002/internal/platform/logger"
	"github.com/Inferno2211/blog-gen-sub002/internal/platform/postgres"
	"github.com/Inferno2211/blog-gen-sub002/internal/processor"
	"github.com/Inferno2211/blog-gen-sub002/internal/qc"
	"github.com/Inferno2211/blog-gen-sub002/internal/scheduler"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Failed to run worker: %v", err)
	}
}

// configuredRunner applies the configured attempt ceiling to runs that do
// not set one themselves. The queue handlers leave MaxAttempts at zero.
type configuredRunner struct {
	inner       *qc.Loop
	maxAttempts int
}

func (r configuredRunner) Run(
	ctx context.Context,
	articleID uuid.UUID,
	brief generation.Brief,
	opts qc.Options,
) (*qc.Result, error) {
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = r.maxAttempts
	}
	return r.inner.Run(ctx, articleID, brief, opts)
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	db, err := setupDatabase(cfg.Database, appLogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			appLogger.Error("Failed to close database connection", slog.String("error", err.Error()))
		}
	}()

	if err := runMigrations(db, appLogger); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	articles := postgres.NewPostgresArticleStore(db, appLogger)
	versions := postgres.NewPostgresVersionStore(db, appLogger)
	orders := postgres.NewPostgresOrderStore(db, appLogger)
	queue := postgres.NewPostgresJobQueue(db, appLogger)

	llm, err := gemini.NewClient(ctx, appLogger, cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}

	notifier, err := email.NewNotifier(cfg.Email, appLogger)
	if err != nil {
		return fmt.Errorf("failed to create notifier: %w", err)
	}

	loop, err := qc.NewLoop(llm, llm, articles, versions, nil, appLogger)
	if err != nil {
		return fmt.Errorf("failed to create quality-control loop: %w", err)
	}
	qcRunner := configuredRunner{inner: loop, maxAttempts: cfg.QC.MaxAttempts}

	generateHandler, err := processor.NewGenerateHandler(orders, articles, qcRunner, notifier, appLogger)
	if err != nil {
		return fmt.Errorf("failed to create generate handler: %w", err)
	}

	integrateHandler, err := processor.NewIntegrateHandler(orders, articles, versions, qcRunner, notifier, appLogger)
	if err != nil {
		return fmt.Errorf("failed to create integrate handler: %w", err)
	}

	publisher := newFilePublisher(cfg.Server.ContentRoot, articles, versions, appLogger)
	publishHandler, err := processor.NewPublishHandler(db, orders, articles, versions, publisher, notifier, appLogger)
	if err != nil {
		return fmt.Errorf("failed to create publish handler: %w", err)
	}

	runner, err := job.NewRunner(queue, job.RunnerConfig{
		WorkerCount:  cfg.Queue.WorkerCount,
		PollInterval: time.Duration(cfg.Queue.PollIntervalSec) * time.Second,
		LockTimeout:  time.Duration(cfg.Queue.LockTimeoutSec) * time.Second,
	}, appLogger)
	if err != nil {
		return fmt.Errorf("failed to create job runner: %w", err)
	}
	for _, h := range []job.Handler{generateHandler, integrateHandler, publishHandler} {
		if err := runner.Register(h); err != nil {
			return fmt.Errorf("failed to register handler for queue %s: %w", h.Queue(), err)
		}
	}

	sweeper, err := scheduler.NewSweeper(queue, articles, appLogger)
	if err != nil {
		return fmt.Errorf("failed to create sweeper: %w", err)
	}

	if err := runner.Start(ctx); err != nil {
		return fmt.Errorf("failed to start job runner: %w", err)
	}
	if err := sweeper.Start(); err != nil {
		return fmt.Errorf("failed to start sweeper: %w", err)
	}

	appLogger.Info("Worker running",
		slog.Int("workers", cfg.Queue.WorkerCount),
		slog.String("content_root", cfg.Server.ContentRoot))

	<-ctx.Done()
	appLogger.Info("Shutdown signal received, draining workers")

	sweeper.Stop()
	if err := runner.Stop(); err != nil {
		appLogger.Error("Failed to stop job runner cleanly", slog.String("error", err.Error()))
	}

	appLogger.Info("Worker stopped")
	return nil
}
