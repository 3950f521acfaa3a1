package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/insights/internal/bootstrap"
	"github.com/angelmondragon/insights/internal/cron"
	"github.com/angelmondragon/insights/pkg/config"
	"github.com/angelmondragon/insights/pkg/enums"
	"github.com/angelmondragon/insights/pkg/logger"
	"github.com/angelmondragon/insights/pkg/metrics"
)

const serviceName = "cache-warmer"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	kinds, presets, err := warmTargets(cfg.Warmer)
	if err != nil {
		logg.Error(context.Background(), "invalid warmer config", err)
		os.Exit(1)
	}
	if !cfg.Cache.RedisEnabled {
		logg.Warn(context.Background(), "shared cache tier disabled, warmed results stay in this process")
	}

	deps, err := bootstrap.NewAnalytics(context.Background(), bootstrap.Params{
		Config:       cfg,
		Logger:       logg,
		Registerer:   prometheus.DefaultRegisterer,
		RequireRedis: true,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap analytics", err)
		os.Exit(1)
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logg.Error(context.Background(), "error closing analytics clients", err)
		}
	}()

	lock, err := cron.NewRedisLock(deps.Redis, deps.Redis.LockKey(serviceName), cfg.Warmer.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	job, err := cron.NewCacheWarmJob(cron.CacheWarmJobParams{
		Logger:      logg,
		Resolver:    deps.Resolver,
		EntityIDs:   cfg.Warmer.Entities(),
		MetricKinds: kinds,
		Presets:     presets,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cache warm job", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(job),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Warmer.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Warmer.Interval.String(),
		"entities": len(cfg.Warmer.Entities()),
	})
	logg.Info(ctx, "starting cache warmer")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cache warmer stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(context.WithoutCancel(ctx), "cache warmer shutting down gracefully")
}

func warmTargets(cfg config.WarmerConfig) ([]enums.MetricKind, []enums.PeriodHint, error) {
	if len(cfg.Entities()) == 0 {
		return nil, nil, fmt.Errorf("%s is required", config.EnvWarmerEntityIDs)
	}
	var kinds []enums.MetricKind
	for _, raw := range cfg.Kinds() {
		kind, err := enums.ParseMetricKind(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", config.EnvWarmerMetricKinds, err)
		}
		kinds = append(kinds, kind)
	}
	var presets []enums.PeriodHint
	for _, raw := range cfg.PresetList() {
		preset, err := enums.ParsePeriodHint(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", config.EnvWarmerPresets, err)
		}
		presets = append(presets, preset)
	}
	return kinds, presets, nil
}
