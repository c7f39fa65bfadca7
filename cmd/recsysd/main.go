package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/merchkit/recsys/internal/cache"
	"github.com/merchkit/recsys/internal/config"
	"github.com/merchkit/recsys/internal/engine"
	"github.com/merchkit/recsys/internal/messaging"
	"github.com/merchkit/recsys/internal/store"
)

// recsysd ingests interaction events from kafka into postgres and refits
// the recommendation snapshot on an interval. Serving sits elsewhere; this
// process owns the data and model lifecycle.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := newLogger(&cfg.Logging)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to postgres")
	}
	defer pool.Close()
	db := store.NewPostgresStore(pool, logger)

	engineOpts := []engine.Option{}
	if cfg.Redis.URL != "" {
		redisOpts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			logger.WithError(err).Fatal("Failed to parse redis URL")
		}
		redisOpts.PoolSize = cfg.Redis.PoolSize
		client := redis.NewClient(redisOpts)
		defer client.Close()
		engineOpts = append(engineOpts,
			engine.WithResultCache(cache.NewRecommendationCache(client, cfg.Redis.CacheTTL, logger)))
	}

	e := engine.New(&cfg.Engine, logger, engineOpts...)
	if err := refit(ctx, e, db); err != nil {
		logger.WithError(err).Error("Initial fit failed, serving starts after the next successful fit")
	}

	bus, err := messaging.NewInteractionBus(&cfg.Kafka, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create interaction bus")
	}
	defer bus.Close()

	go func() {
		if err := bus.Consume(ctx, db); err != nil && !errors.Is(err, context.Canceled) {
			logger.WithError(err).Error("Interaction consumer stopped")
		}
	}()

	go refitLoop(ctx, e, db, cfg.Engine.RefitInterval, logger)

	metricsServer := &http.Server{Addr: cfg.Metrics.Addr, Handler: promhttp.Handler()}
	go func() {
		logger.WithField("addr", cfg.Metrics.Addr).Info("Metrics listener started")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Metrics listener failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Metrics listener forced to shut down")
	}
}

func refit(ctx context.Context, e *engine.Engine, db *store.PostgresStore) error {
	interactions, err := db.ListInteractions(ctx)
	if err != nil {
		return err
	}
	catalog, err := db.ListProducts(ctx)
	if err != nil {
		return err
	}
	users, err := db.ListUsers(ctx)
	if err != nil {
		return err
	}
	_, err = e.Fit(ctx, interactions, catalog, users)
	return err
}

func refitLoop(ctx context.Context, e *engine.Engine, db *store.PostgresStore,
	interval time.Duration, logger *logrus.Logger) {

	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := refit(ctx, e, db); err != nil {
				logger.WithError(err).Error("Scheduled refit failed")
			}
		}
	}
}

func newLogger(cfg *config.LoggingConfig) *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}
