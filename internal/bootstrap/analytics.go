package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/insights/internal/analytics"
	"github.com/angelmondragon/insights/internal/analytics/backend"
	"github.com/angelmondragon/insights/internal/analytics/orchestrator"
	"github.com/angelmondragon/insights/internal/analytics/poller"
	"github.com/angelmondragon/insights/internal/analytics/resultcache"
	"github.com/angelmondragon/insights/internal/analytics/warehouse"
	"github.com/angelmondragon/insights/pkg/bigquery"
	"github.com/angelmondragon/insights/pkg/config"
	"github.com/angelmondragon/insights/pkg/logger"
	"github.com/angelmondragon/insights/pkg/metrics"
	"github.com/angelmondragon/insights/pkg/redis"
)

// Analytics holds the clients and layers shared by the api and cache-warmer binaries.
type Analytics struct {
	Redis    *redis.Client
	BigQuery *bigquery.Client
	Cache    *resultcache.Tiered
	Resolver *orchestrator.Resolver
	Service  analytics.Service

	logg *logger.Logger
}

// Params configure NewAnalytics.
type Params struct {
	Config     *config.Config
	Logger     *logger.Logger
	Registerer prometheus.Registerer
	// RequireRedis fails startup when no Redis endpoint is configured.
	RequireRedis bool
}

// NewAnalytics connects the configured clients and assembles the resolver stack.
// On error every client opened so far is closed.
func NewAnalytics(ctx context.Context, params Params) (_ *Analytics, err error) {
	cfg := params.Config
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	reg := params.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	a := &Analytics{logg: params.Logger}
	defer func() {
		if err != nil {
			err = multierr.Append(err, a.Close())
		}
	}()

	if params.RequireRedis && !cfg.Redis.Configured() {
		return nil, fmt.Errorf("%s or %s is required", config.EnvRedisURL, config.EnvRedisAddr)
	}
	if cfg.Redis.Configured() {
		a.Redis, err = redis.New(ctx, cfg.Redis, params.Logger)
		if err != nil {
			return nil, fmt.Errorf("bootstrap redis: %w", err)
		}
	}

	b, err := a.backend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	resolverMetrics := metrics.NewResolverMetrics(reg)
	local := resultcache.NewBounded(cfg.Cache.Capacity, resultcache.WithEvictionHook(func(string) {
		resolverMetrics.IncEviction()
	}))
	var mirror resultcache.Mirror
	if cfg.Cache.RedisEnabled && a.Redis != nil {
		mirror = a.Redis
	}
	a.Cache = resultcache.NewTiered(local, mirror, cfg.Cache.RedisTTL, params.Logger)

	a.Resolver = orchestrator.New(b, a.Cache,
		orchestrator.WithLogger(params.Logger),
		orchestrator.WithMetrics(resolverMetrics),
		orchestrator.WithPolling(
			poller.WithInterval(cfg.Polling.Interval),
			poller.WithMaxWait(cfg.Polling.MaxWait),
		),
	)
	a.Service, err = analytics.NewService(a.Resolver, params.Logger)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Analytics) backend(ctx context.Context, cfg *config.Config) (backend.Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend.Kind)) {
	case config.BackendKindBigQuery:
		client, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, a.logg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap bigquery: %w", err)
		}
		a.BigQuery = client
		return warehouse.New(client, a.logg)
	default:
		return backend.NewHTTPClient(cfg.Backend.BaseURL,
			backend.WithAPIKey(cfg.Backend.APIKey),
			backend.WithTimeout(cfg.Backend.RequestTimeout),
		)
	}
}

// Close disposes the cache and closes every opened client.
func (a *Analytics) Close() error {
	if a == nil {
		return nil
	}
	if a.Cache != nil {
		a.Cache.Dispose()
	}
	var err error
	if a.BigQuery != nil {
		err = multierr.Append(err, a.BigQuery.Close())
	}
	if a.Redis != nil {
		err = multierr.Append(err, a.Redis.Close())
	}
	return err
}
