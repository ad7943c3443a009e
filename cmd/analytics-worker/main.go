package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cbigquery "cloud.google.com/go/bigquery"
	"github.com/joho/godotenv"

	"github.com/angelmondragon/coinledger-backend/internal/analytics"
	"github.com/angelmondragon/coinledger-backend/internal/analytics/worker"
	"github.com/angelmondragon/coinledger-backend/internal/analytics/writer"
	"github.com/angelmondragon/coinledger-backend/pkg/bigquery"
	"github.com/angelmondragon/coinledger-backend/pkg/config"
	"github.com/angelmondragon/coinledger-backend/pkg/logger"
	"github.com/angelmondragon/coinledger-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/coinledger-backend/pkg/pubsub"
	"github.com/angelmondragon/coinledger-backend/pkg/redis"
)

const serviceKind = "analytics-worker"

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: serviceKind})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)
	cfg.Service.Kind = serviceKind

	logg = logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "failed to close redis client", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg, cfg.PubSub.AnalyticsSubscription)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "failed to close pubsub client", err)
		}
	}()

	schema, err := analytics.Schema()
	requireResource(ctx, logg, "ledger events schema", err)
	bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, map[string]cbigquery.Schema{
		cfg.BigQuery.LedgerEventsTable: schema,
	}, logg)
	requireResource(ctx, logg, "bigquery client", err)
	defer func() {
		if err := bqClient.Close(); err != nil {
			logg.Error(ctx, "failed to close bigquery client", err)
		}
	}()

	subscription := pubsubClient.AnalyticsSubscription()
	if subscription == nil {
		requireResource(ctx, logg, "analytics subscription", errors.New("subscription not configured"))
	}

	dedupe, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	sink, err := writer.New(bqClient, cfg.BigQuery.LedgerEventsTable, writer.RetryPolicy{})
	requireResource(ctx, logg, "bigquery writer", err)

	service, err := worker.NewService(worker.Params{
		Subscription: subscription,
		Sink:         sink,
		Dedupe:       dedupe,
		Logger:       logg,
	})
	requireResource(ctx, logg, "analytics worker", err)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{"env": cfg.App.Env, "serviceKind": serviceKind})
	logg.Info(runCtx, "analytics worker ready")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "analytics worker failed", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
