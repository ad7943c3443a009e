package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/coinledger-backend/api/controllers"
	"github.com/angelmondragon/coinledger-backend/api/routes"
	"github.com/angelmondragon/coinledger-backend/internal/ledger"
	"github.com/angelmondragon/coinledger-backend/internal/plans"
	"github.com/angelmondragon/coinledger-backend/internal/reports"
	"github.com/angelmondragon/coinledger-backend/internal/users"
	"github.com/angelmondragon/coinledger-backend/pkg/config"
	"github.com/angelmondragon/coinledger-backend/pkg/db"
	"github.com/angelmondragon/coinledger-backend/pkg/instance"
	"github.com/angelmondragon/coinledger-backend/pkg/logger"
	"github.com/angelmondragon/coinledger-backend/pkg/metrics"
	"github.com/angelmondragon/coinledger-backend/pkg/migrate"
	"github.com/angelmondragon/coinledger-backend/pkg/outbox"
	"github.com/angelmondragon/coinledger-backend/pkg/redis"
	"github.com/angelmondragon/coinledger-backend/pkg/storage/driver"
)

const (
	serviceKind     = "api"
	shutdownTimeout = 15 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceKind})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceKind

	logg = logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	store, err := driver.Open(ctx, cfg, logg)
	if err != nil {
		return err
	}

	ledgerMetrics := metrics.NewLedgerMetrics(prometheus.DefaultRegisterer)
	emitter := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	userRepo := users.NewRepository(dbClient.DB())
	entries := ledger.NewRepository(dbClient.DB())
	planService := plans.NewService(plans.NewRepository(dbClient.DB()))

	mutator, err := ledger.NewMutator(ledger.MutatorParams{
		Tx:              dbClient,
		Entries:         entries,
		Users:           userRepo,
		Plans:           planService,
		Outbox:          emitter,
		Metrics:         ledgerMetrics,
		Logger:          logg,
		SpendDollarRate: cfg.Ledger.SpendDollarRate,
		MaxCASRetries:   cfg.Ledger.MaxCASRetries,
	})
	if err != nil {
		return err
	}

	reportRepo := reports.NewRepository(dbClient.DB())
	generator, err := reports.NewGenerator(reports.GeneratorParams{
		Tx:      dbClient,
		Users:   userRepo,
		Entries: entries,
		Repo:    reportRepo,
		Store:   store,
		Outbox:  emitter,
		Metrics: ledgerMetrics,
		Logger:  logg,
		Brand:   cfg.Reports.Brand,
	})
	if err != nil {
		return err
	}
	archive, err := reports.NewArchive(reports.ArchiveParams{
		Tx:      dbClient,
		Repo:    reportRepo,
		Store:   store,
		Outbox:  emitter,
		Metrics: ledgerMetrics,
		Logger:  logg,
	})
	if err != nil {
		return err
	}

	deps := routes.Dependencies{
		Config:      cfg,
		Logger:      logg,
		Ledger:      ledger.NewQuery(entries, userRepo),
		Mutator:     mutator,
		Generator:   generator,
		Archive:     archive,
		Plans:       planService,
		Idempotency: redisClient,
		RateLimiter: redisClient,
		Readiness: map[string]controllers.Pinger{
			"db":      dbClient,
			"redis":   redisClient,
			"storage": store,
		},
		Metrics: metrics.NewHTTPMetrics(prometheus.DefaultRegisterer),
	}
	if local, ok := store.(interface{ Handler() http.Handler }); ok {
		deps.Downloads = local.Handler()
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
