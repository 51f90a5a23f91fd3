package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/templui/goalpulse/internal/app"
	"github.com/templui/goalpulse/internal/config"
	"github.com/templui/goalpulse/internal/logger"
	"github.com/templui/goalpulse/internal/middleware"
	"github.com/templui/goalpulse/internal/routes"
	"github.com/templui/goalpulse/internal/scheduler"
)

func main() {
	cfg := config.Load()

	logger.Init(cfg.IsDevelopment(), cfg.SentryDSN)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		os.Exit(1)
	}
	defer func() {
		closeErr := app.Close()
		if closeErr != nil {
			slog.Error("failed to close app", "error", closeErr)
		}
	}()

	if cfg.SyncEnabled {
		c, err := scheduler.Start(cfg.SyncSchedule, app.MetricSyncService, 30*time.Minute)
		if err != nil {
			slog.Error("failed to start scheduler", "error", err)
			os.Exit(1)
		}
		defer func() { <-c.Stop().Done() }()
	}

	limiter := middleware.NewRateLimiter(10, time.Minute)
	limiter.StartCleanup(5*time.Minute, ctx.Done())

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           routes.SetupRoutes(app, limiter),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.AppEnv, "url", "http://localhost:"+cfg.Port)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
}
