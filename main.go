// ABOUTME: Entry point for the portal gateway service
// ABOUTME: Serves the session API and guarded pages in front of the upstream identity API

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/markalston/portal-gateway/config"
	"github.com/markalston/portal-gateway/handlers"
	"github.com/markalston/portal-gateway/logger"
	"github.com/markalston/portal-gateway/middleware"
	"github.com/markalston/portal-gateway/notify"
	"github.com/markalston/portal-gateway/services"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Initialize structured logging
	logger.Init()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	slog.Info("Starting portal gateway", "environment", cfg.Environment, "secure_cookies", cfg.CookieSecure)
	slog.Info("Upstream identity API configured", "url", cfg.UpstreamURL)
	if cfg.UpstreamAllProxy != "" {
		slog.Info("Upstream reached through SSH jump host")
	}

	identity, err := services.NewIdentityClientFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("identity client: %w", err)
	}

	bus := notify.New()
	unsubscribe := bus.Subscribe(auditLog)
	defer unsubscribe()

	h, err := handlers.NewHandler(cfg, identity, bus)
	if err != nil {
		return err
	}

	var rdb *redis.Client
	if cfg.RateLimitEnabled && cfg.RedisURL != "" {
		rdb, err = middleware.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("Redis not reachable at startup, rate limiting fails open until it is", "error", err)
		}
	}
	limiters := handlers.NewLimiters(cfg, rdb)
	slog.Info("Rate limiting configured", "store", limiters.Store)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h.Router(limiters),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// auditLog records session lifecycle events. Tokens are never part of an event.
func auditLog(e notify.Event) {
	slog.Info("Session event",
		"event", string(e.Kind),
		"user_id", e.UserID,
		"request_id", e.RequestID,
	)
}
