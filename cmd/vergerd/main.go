package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vergerhq/verger/internal/config"
	"github.com/vergerhq/verger/internal/digest"
	"github.com/vergerhq/verger/server"
	"github.com/vergerhq/verger/storage"
	"github.com/vergerhq/verger/storage/memory"
	"github.com/vergerhq/verger/storage/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	store, err := openStore(cfg.DB, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	cache := server.NewProjectionCache(server.DefaultCacheConfig)
	defer cache.Close()

	router := server.NewRouter(store, server.Options{
		Logger:         logger,
		Cache:          cache,
		FeedName:       cfg.Feed.Name,
		FeedWindowDays: cfg.Feed.WindowDays,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var scheduler *cron.Cron
	if cfg.Digest.Enabled {
		job := digest.New(store, logger, cfg.Digest.WindowDays)
		scheduler = cron.New()
		if _, err := scheduler.AddFunc(cfg.Digest.Spec, func() {
			if err := job.Run(ctx); err != nil {
				logger.Error("digest run failed", "error", err)
			}
		}); err != nil {
			logger.Error("invalid digest schedule", "spec", cfg.Digest.Spec, "error", err)
			os.Exit(1)
		}
		scheduler.Start()
		logger.Info("digest scheduled", "spec", cfg.Digest.Spec, "window_days", cfg.Digest.WindowDays)
	}

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
		}
	}

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

// openStore picks the backend from DBConfig. An empty path keeps
// everything in memory.
func openStore(cfg config.DBConfig, logger *slog.Logger) (storage.Store, error) {
	if cfg.Path == "" {
		logger.Info("using in-memory store")
		return memory.New(memory.WithLogger(logger)), nil
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("prepare database path: %w", err)
		}
	}
	logger.Info("using sqlite store", "path", cfg.Path)
	return sqlite.Open(cfg.Path)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
