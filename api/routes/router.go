package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/insights/api/controllers"
	analyticscontrollers "github.com/angelmondragon/insights/api/controllers/analytics"
	"github.com/angelmondragon/insights/api/middleware"
	"github.com/angelmondragon/insights/internal/analytics"
	"github.com/angelmondragon/insights/pkg/bigquery"
	"github.com/angelmondragon/insights/pkg/config"
	"github.com/angelmondragon/insights/pkg/logger"
	"github.com/angelmondragon/insights/pkg/redis"
)

// NewRouter wires the public API. redisClient and bigqueryClient may be nil
// when the deployment does not use them.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	bigqueryClient *bigquery.Client,
	analyticsService analytics.Service,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.AllowedOrigins()),
	)

	var checks []controllers.ReadinessCheck
	if redisClient != nil {
		checks = append(checks, controllers.ReadinessCheck{Name: "redis", Pinger: redisClient})
	}
	if bigqueryClient != nil {
		checks = append(checks, controllers.ReadinessCheck{Name: "bigquery", Pinger: bigqueryClient})
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, checks...))
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	policy := middleware.NewRateLimitPolicy("analytics", cfg.RateLimit.Window, cfg.RateLimit.Requests)
	limiter := middleware.RateLimit(policy, nil, logg)
	if redisClient != nil {
		limiter = middleware.RateLimit(policy, redisClient, logg)
	}

	r.Route("/api/v1/analytics", func(r chi.Router) {
		r.With(limiter).Get("/entities/{entityID}/metrics/{metricKind}", analyticscontrollers.MetricAnalytics(analyticsService, logg))
		r.With(limiter).Post("/query", analyticscontrollers.QueryAnalytics(analyticsService, logg))
		r.Delete("/cache", analyticscontrollers.InvalidateCache(analyticsService, logg))
	})

	return r
}
