package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/insights/internal/analytics/period"
	"github.com/angelmondragon/insights/internal/analytics/types"
	"github.com/angelmondragon/insights/pkg/enums"
	"github.com/angelmondragon/insights/pkg/logger"
)

const defaultWarmConcurrency = 4

type resultResolver interface {
	Resolve(ctx context.Context, desc types.RequestDescriptor) (json.RawMessage, error)
}

type CacheWarmJobParams struct {
	Logger      *logger.Logger
	Resolver    resultResolver
	EntityIDs   []string
	MetricKinds []enums.MetricKind
	Presets     []enums.PeriodHint
	// Concurrency bounds the resolutions in flight; defaults to 4.
	Concurrency int
}

// NewCacheWarmJob builds a job that resolves every configured entity, metric
// kind and preset, plus each preset's comparison period, so shared cache
// tiers hold them before dashboards ask.
func NewCacheWarmJob(params CacheWarmJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("resolver required")
	}
	for _, kind := range params.MetricKinds {
		if !kind.IsValid() {
			return nil, fmt.Errorf("invalid metric kind %q", kind)
		}
	}
	for _, preset := range params.Presets {
		if _, err := period.RangeFor(preset, time.Now()); err != nil {
			return nil, err
		}
	}
	concurrency := params.Concurrency
	if concurrency <= 0 {
		concurrency = defaultWarmConcurrency
	}
	return &cacheWarmJob{
		logg:        params.Logger,
		resolver:    params.Resolver,
		entities:    params.EntityIDs,
		kinds:       params.MetricKinds,
		presets:     params.Presets,
		concurrency: concurrency,
		now:         time.Now,
	}, nil
}

type cacheWarmJob struct {
	logg        *logger.Logger
	resolver    resultResolver
	entities    []string
	kinds       []enums.MetricKind
	presets     []enums.PeriodHint
	concurrency int
	now         func() time.Time
}

func (j *cacheWarmJob) Name() string { return "cache-warmer" }

func (j *cacheWarmJob) Run(ctx context.Context) error {
	descriptors := j.descriptors()
	if len(descriptors) == 0 {
		j.logg.Info(ctx, "cache warm skipped; nothing configured")
		return nil
	}

	var (
		mu     sync.Mutex
		errs   error
		warmed int
	)
	g := new(errgroup.Group)
	g.SetLimit(j.concurrency)
	for _, desc := range descriptors {
		g.Go(func() error {
			_, err := j.resolver.Resolve(ctx, desc)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s %s %s: %w", desc.EntityID, desc.MetricKind, desc.Range, err))
				return nil
			}
			warmed++
			return nil
		})
	}
	_ = g.Wait()

	failed := len(multierr.Errors(errs))
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"descriptors": len(descriptors),
		"warmed":      warmed,
		"failed":      failed,
	})
	j.logg.Info(logCtx, "cache warm complete")
	if errs != nil {
		return fmt.Errorf("cache warm: %w", errs)
	}
	return nil
}

// descriptors expands the configuration into unique request descriptors.
func (j *cacheWarmJob) descriptors() []types.RequestDescriptor {
	today := j.now().UTC()
	seen := map[string]struct{}{}
	var out []types.RequestDescriptor
	add := func(desc types.RequestDescriptor) {
		key := fmt.Sprintf("%s|%s|%s", desc.MetricKind, desc.EntityID, desc.Range)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, desc)
	}

	for _, entity := range j.entities {
		for _, kind := range j.kinds {
			for _, preset := range j.presets {
				rng, err := period.RangeFor(preset, today)
				if err != nil {
					continue
				}
				desc := types.RequestDescriptor{MetricKind: kind, EntityID: entity, Range: rng}
				add(desc)
				previous, _ := period.Previous(rng, preset)
				add(desc.WithRange(previous))
			}
		}
	}
	return out
}
