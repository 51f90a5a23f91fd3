package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/templui/goalpulse/internal/config"
	"github.com/templui/goalpulse/internal/db"
	"github.com/templui/goalpulse/internal/events"
	"github.com/templui/goalpulse/internal/metrics"
	"github.com/templui/goalpulse/internal/repository"
	"github.com/templui/goalpulse/internal/service"
	"github.com/templui/goalpulse/internal/storage"
	"github.com/templui/goalpulse/internal/textgen"
)

type App struct {
	Cfg                 *config.Config
	DB                  *sqlx.DB
	AuthService         *service.AuthService
	UserService         *service.UserService
	SubscriptionService *service.SubscriptionService
	GoalService         *service.GoalService
	ProgressService     *service.ProgressService
	ProjectionService   *service.ProjectionService
	ChallengeService    *service.ChallengeService
	MetricSyncService   *service.MetricSyncService
	ExportService       *service.ExportService

	closers []func() error
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a := &App{Cfg: cfg, DB: database}
	a.closers = append(a.closers, database.Close)

	// Run database migrations
	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Repositories
	userRepository := repository.NewUserRepository(database)
	subscriptionRepository := repository.NewSubscriptionRepository(database)
	goalRepository := repository.NewGoalRepository(database)

	// Notification sinks
	notifiers := service.MultiNotifier{
		service.NewEmailNotifier(cfg.ResendAPIKey, cfg.EmailFrom, cfg.AppURL, cfg.AppName, cfg.IsDevelopment(), userRepository),
	}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize event producer: %w", err)
		}
		a.closers = append(a.closers, producer.Close)
		notifiers = append(notifiers, events.NewNotifier(producer))
		slog.Info("goal events enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	}

	// Metrics provider, optionally behind the Redis cache
	var metricsProvider service.MetricsProvider
	if cfg.MetricsURL != "" {
		var provider metrics.Provider = metrics.NewClient(cfg.MetricsURL, cfg.MetricsAPIKey, cfg.MetricsTimeout)
		if cfg.RedisURL != "" {
			cache, client, err := metrics.NewRedisCache(ctx, cfg.RedisURL)
			if err != nil {
				slog.Warn("redis unavailable, metrics will not be cached", "error", err)
			} else {
				a.closers = append(a.closers, client.Close)
				provider = metrics.NewCachedProvider(provider, cache, cfg.MetricsCacheTTL)
			}
		}
		metricsProvider = provider
	} else {
		slog.Warn("METRICS_URL not set, metric sync only accepts pushed snapshots")
	}

	// Storage (optional: exports are returned inline without it)
	var objectStore service.ObjectStore
	if cfg.HasS3() {
		s3Storage, err := storage.New(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		objectStore = s3Storage
	}

	// Services
	subscriptionService := service.NewSubscriptionService(subscriptionRepository, nil)
	projectionService := service.NewProjectionService(goalRepository, nil)
	progressService := service.NewProgressService(goalRepository, notifiers, nil, cfg.ProgressMaxRetries)

	a.AuthService = service.NewAuthService(cfg.JWTSecret, nil)
	a.UserService = service.NewUserService(userRepository, nil)
	a.SubscriptionService = subscriptionService
	a.ProjectionService = projectionService
	a.ProgressService = progressService
	a.GoalService = service.NewGoalService(goalRepository, subscriptionService, projectionService, nil)
	a.ChallengeService = service.NewChallengeService(
		goalRepository,
		subscriptionService,
		textgen.NewClient(cfg.TextGenURL, cfg.TextGenModel, cfg.TextGenTimeout),
		cfg.TextGenTimeout,
		nil,
		nil,
	)
	a.MetricSyncService = service.NewMetricSyncService(goalRepository, progressService, metricsProvider)
	a.ExportService = service.NewExportService(
		goalRepository,
		subscriptionService,
		projectionService,
		objectStore,
		cfg.S3PresignExpiry,
		nil,
	)

	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
