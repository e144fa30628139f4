// Package main implements the entry point for the Inkwell API server,
// which accepts content-generation jobs, serves their results, and
// handles user authentication.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/bcrypt"

	"github.com/inkwell-ai/inkwell-api/internal/api"
	apimiddleware "github.com/inkwell-ai/inkwell-api/internal/api/middleware"
	"github.com/inkwell-ai/inkwell-api/internal/config"
	"github.com/inkwell-ai/inkwell-api/internal/platform/logger"
	"github.com/inkwell-ai/inkwell-api/internal/platform/metrics"
	"github.com/inkwell-ai/inkwell-api/internal/platform/postgres"
	"github.com/inkwell-ai/inkwell-api/internal/platform/redisq"
	"github.com/inkwell-ai/inkwell-api/internal/service"
	"github.com/inkwell-ai/inkwell-api/internal/service/auth"
	"github.com/inkwell-ai/inkwell-api/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("server failed: %v", err)
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

	if err := applyMigrations(db); err != nil {
		return err
	}

	// Stores
	userStore := postgres.NewPostgresUserStore(db, bcrypt.DefaultCost)
	jobStore := postgres.NewPostgresJobStore(db)
	artifactStore := postgres.NewPostgresArtifactStore(db)
	feedbackStore := postgres.NewPostgresFeedbackStore(db)

	// Intake announcements are an optimization. When redis is down the
	// server still accepts jobs and the worker picks them up by polling.
	var intake service.IntakeEnqueuer
	redisClient, err := redisq.NewClient(ctx, cfg.Redis)
	if err != nil {
		appLogger.Warn("intake queue unavailable, jobs rely on worker polling",
			"error", err)
	} else {
		defer func() { _ = redisClient.Close() }()
		intake = redisq.NewIntakeQueue(redisClient)
	}

	// Services
	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to create JWT service: %w", err)
	}

	jobService, err := service.NewJobService(jobStore, artifactStore, feedbackStore, intake, appLogger)
	if err != nil {
		return fmt.Errorf("failed to create job service: %w", err)
	}

	// Handlers
	authHandler := api.NewAuthHandler(userStore, jwtService, auth.NewBcryptVerifier())
	jobHandler := api.NewJobHandler(jobService)
	authMiddleware := apimiddleware.NewAuthMiddleware(jwtService)

	metrics.MustRegister()

	router := newRouter(authHandler, jobHandler, authMiddleware)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info("starting API server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	appLogger.Info("shutting down API server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}

// openDatabase connects to postgres and verifies the connection.
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

// applyMigrations brings the schema up to date using the embedded
// migration files.
func applyMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}

// newRouter wires the HTTP routes. Auth endpoints are public; everything
// under /api besides them requires a valid access token.
func newRouter(authHandler *api.AuthHandler, jobHandler *api.JobHandler, authMiddleware *apimiddleware.AuthMiddleware) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(apimiddleware.TraceMiddleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.RefreshToken)
			r.Post("/logout", authHandler.Logout)
			r.With(authMiddleware.Authenticate).Get("/verify", authHandler.Verify)
		})

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Post("/generate", jobHandler.Generate)

			r.Route("/jobs", func(r chi.Router) {
				// Literal route first so "saved" is not read as a job ID.
				r.Get("/saved", jobHandler.ListSaved)
				r.Get("/{id}", jobHandler.GetJob)
				r.Get("/{id}/artifact", jobHandler.GetArtifact)
				r.Post("/{id}/save", jobHandler.SaveJob)
				r.Post("/{id}/feedback", jobHandler.CreateFeedback)
			})
		})
	})

	return r
}
