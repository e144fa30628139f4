// Package main implements the live-update gateway: a WebSocket endpoint
// that streams job-update events to their owners as jobs resolve.
package main

import (
	"context"
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
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/inkwell-ai/inkwell-api/internal/config"
	"github.com/inkwell-ai/inkwell-api/internal/gateway"
	"github.com/inkwell-ai/inkwell-api/internal/platform/logger"
	"github.com/inkwell-ai/inkwell-api/internal/platform/metrics"
	"github.com/inkwell-ai/inkwell-api/internal/platform/redisq"
	"github.com/inkwell-ai/inkwell-api/internal/service/auth"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("gateway failed: %v", err)
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

	// The gateway is pure fanout: without the event stream it has
	// nothing to deliver, so redis is a hard dependency here.
	redisClient, err := redisq.NewClient(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer func() { _ = redisClient.Close() }()

	bus := redisq.NewBus(appLogger, redisClient)

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to create JWT service: %w", err)
	}

	hub := gateway.NewHub(appLogger)
	handler := gateway.NewHandler(appLogger, hub, &jwtVerifier{jwt: jwtService})

	metrics.MustRegister()

	go func() {
		if err := hub.Run(ctx, bus); err != nil && !errors.Is(err, context.Canceled) {
			appLogger.Error("hub stopped", "error", err)
			stop()
		}
	}()

	router := chi.NewRouter()
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())
	router.Handle("/ws", handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Gateway.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // WebSocket connections stay open
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info("starting gateway", "port", cfg.Gateway.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("gateway error: %w", err)
	case <-ctx.Done():
	}

	appLogger.Info("shutting down gateway")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}

// jwtVerifier adapts the JWT service to the gateway's token check.
type jwtVerifier struct {
	jwt auth.JWTService
}

func (v *jwtVerifier) VerifyToken(ctx context.Context, token string) (uuid.UUID, error) {
	claims, err := v.jwt.ValidateToken(ctx, token)
	if err != nil {
		return uuid.Nil, err
	}
	return claims.UserID, nil
}
