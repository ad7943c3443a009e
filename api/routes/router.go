package routes

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/coinledger-backend/api/controllers"
	"github.com/angelmondragon/coinledger-backend/api/middleware"
	"github.com/angelmondragon/coinledger-backend/pkg/config"
	"github.com/angelmondragon/coinledger-backend/pkg/logger"
	"github.com/angelmondragon/coinledger-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/coinledger-backend/pkg/redis"
)

// Dependencies is everything the HTTP surface needs from cmd/api.
type Dependencies struct {
	Config *config.Config
	Logger *logger.Logger

	Ledger    controllers.LedgerReader
	Mutator   controllers.LedgerMutator
	Generator controllers.ReportGenerator
	Archive   controllers.ReportArchive
	Plans     controllers.PlanCatalog

	// Idempotency and RateLimiter are usually the same redis client.
	Idempotency pkgredis.IdempotencyStore
	RateLimiter middleware.FixedWindowLimiter

	// Readiness lists the dependencies probed by /health/ready, keyed by name.
	Readiness map[string]controllers.Pinger

	// Downloads serves report artifacts under Reports.PublicBaseURL when they
	// live on local disk; nil when a bucket serves them.
	Downloads http.Handler

	Metrics  *metrics.HTTPMetrics
	Gatherer prometheus.Gatherer
}

func NewRouter(deps Dependencies) http.Handler {
	cfg, logg := deps.Config, deps.Logger

	r := chi.NewRouter()
	r.Use(middleware.Recoverer(logg))
	r.Use(middleware.RequestID(logg))
	r.Use(middleware.Logging(logg))
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	r.Get("/health/live", controllers.HealthLive(cfg))
	r.Get("/health/ready", controllers.HealthReady(cfg, deps.Readiness, logg))

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	if deps.Downloads != nil {
		if mount := strings.TrimRight(cfg.Reports.PublicBaseURL, "/"); strings.HasPrefix(mount, "/") {
			r.Handle(mount+"/*", http.StripPrefix(mount, deps.Downloads))
		}
	}

	reportLimit := middleware.NewRateLimitPolicy("reports",
		cfg.Reports.RateLimitWindow, cfg.Reports.RateLimitIP, cfg.Reports.RateLimitUser)

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Use(middleware.Idempotency(deps.Idempotency, logg))

		v1.Get("/coin-plans", controllers.ListCoinPlans(deps.Plans, logg))

		v1.Route("/coin-history", func(ch chi.Router) {
			ch.Get("/user", controllers.UserCoinHistory(deps.Ledger, logg))
			ch.Get("/all", controllers.AllCoinHistory(deps.Ledger, logg))
			ch.Get("/type", controllers.CoinHistoryByType(deps.Ledger, logg))
			ch.Get("/user/stats", controllers.UserCoinStats(deps.Ledger, logg))

			ch.Post("/create", controllers.CreateCoinHistory(deps.Mutator, logg))
			ch.Post("/spend", controllers.SpendCoins(deps.Mutator, logg))
			ch.Post("/purchase", controllers.PurchaseCoinPlan(deps.Mutator, logg))

			ch.With(middleware.RateLimit(reportLimit, deps.RateLimiter, logg)).
				Post("/report", controllers.GenerateReport(deps.Generator, logg))
			ch.Post("/reports", controllers.ListReports(deps.Archive, logg))
			ch.Get("/reports/{reportId}", controllers.GetReport(deps.Archive, logg))
			ch.Delete("/reports/{reportId}", controllers.DeleteReport(deps.Archive, logg))
		})
	})

	return r
}
