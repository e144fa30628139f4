// Package main implements the background worker: it polls for eligible
// jobs, executes them against the generation provider, and publishes
// job-update events.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/inkwell-ai/inkwell-api/internal/config"
	"github.com/inkwell-ai/inkwell-api/internal/events"
	"github.com/inkwell-ai/inkwell-api/internal/platform/gemini"
	"github.com/inkwell-ai/inkwell-api/internal/platform/logger"
	"github.com/inkwell-ai/inkwell-api/internal/platform/postgres"
	"github.com/inkwell-ai/inkwell-api/internal/platform/redisq"
	"github.com/inkwell-ai/inkwell-api/internal/task"
)

// intakeWaitTimeout bounds each blocking pop so the wake loop notices
// shutdown promptly.
const intakeWaitTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("worker failed: %v", err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger := logger.Setup(cfg.Server)
	slog.SetDefault(appLogger)

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	jobStore := postgres.NewPostgresJobStore(db)
	artifactStore := postgres.NewPostgresArtifactStore(db)
	completer := postgres.NewPostgresJobCompleter(db)

	provider, err := gemini.NewGenerator(ctx, appLogger, cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to create generation provider: %w", err)
	}

	// Redis carries the intake wake-ups and the job-update fanout. Both
	// are optional: without them the worker still drains jobs on its
	// poll interval, just without push updates.
	var publisher events.Publisher
	var waiter *redisq.IntakeWaiter
	redisClient, err := redisq.NewClient(ctx, cfg.Redis)
	if err != nil {
		appLogger.Warn("redis unavailable, running in poll-only mode",
			"error", err)
	} else {
		defer func() { _ = redisClient.Close() }()
		publisher = redisq.NewBus(appLogger, redisClient)
		waiter = redisq.NewIntakeWaiter(redisClient)
	}

	engine, err := task.NewEngine(appLogger, jobStore, artifactStore, completer, provider, publisher, cfg.Queue.MaxRetries)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	runner, err := task.NewRunner(jobStore, engine, task.RunnerConfig{
		WorkerCount:    cfg.Queue.WorkerCount,
		PollInterval:   time.Duration(cfg.Queue.PollIntervalMs) * time.Millisecond,
		ExecutionDelay: time.Duration(cfg.Queue.ExecutionDelaySeconds) * time.Second,
		BatchSize:      cfg.Queue.BatchSize,
	}, appLogger)
	if err != nil {
		return fmt.Errorf("failed to create runner: %w", err)
	}

	runner.Start()

	if waiter != nil {
		go wakeOnIntake(ctx, appLogger, waiter, runner)
	}

	<-ctx.Done()

	appLogger.Info("shutting down worker")
	runner.Stop()

	return nil
}

// wakeOnIntake blocks on the intake queue and nudges the runner whenever
// a job is announced, so new jobs do not wait out a full poll interval.
func wakeOnIntake(ctx context.Context, log *slog.Logger, waiter *redisq.IntakeWaiter, runner *task.Runner) {
	for {
		ticket, err := waiter.Wait(ctx, intakeWaitTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("intake wait failed", "error", err)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		if ticket != nil {
			log.Debug("intake announcement received",
				"job_id", ticket.JobID,
				"ticket", ticket.Ticket)
			runner.Wake()
		}
	}
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
