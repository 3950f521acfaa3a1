package resultcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/angelmondragon/insights/pkg/logger"
	"github.com/angelmondragon/insights/pkg/redis"
)

// Store is the cache surface the resolver depends on.
type Store interface {
	Get(ctx context.Context, key string) (json.RawMessage, bool)
	Set(ctx context.Context, key string, value json.RawMessage) error
	Clear(ctx context.Context) error
}

// Mirror is a shared key/value tier, satisfied by *redis.Client.
type Mirror interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	ResultKey(cacheKey string) string
	ResultPrefix() string
}

// Tiered fronts an optional shared mirror with the bounded in-process cache.
// The FIFO bound applies to the in-process tier only.
type Tiered struct {
	local  *Bounded
	mirror Mirror
	ttl    time.Duration
	logg   *logger.Logger
}

// NewTiered builds a Store. A nil mirror yields a purely in-process cache.
func NewTiered(local *Bounded, mirror Mirror, ttl time.Duration, logg *logger.Logger) *Tiered {
	if local == nil {
		local = NewBounded(DefaultCapacity)
	}
	return &Tiered{local: local, mirror: mirror, ttl: ttl, logg: logg}
}

// Local exposes the in-process tier.
func (t *Tiered) Local() *Bounded {
	return t.local
}

func (t *Tiered) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	if key == "" {
		return nil, false
	}
	if value, ok := t.local.Get(key); ok {
		return value, true
	}
	if t.mirror == nil {
		return nil, false
	}
	raw, err := t.mirror.GetBytes(ctx, t.mirror.ResultKey(key))
	if err != nil {
		if !redis.IsNil(err) && t.logg != nil {
			t.logg.Warn(t.logg.WithField(ctx, "error", err.Error()), "result mirror read failed")
		}
		return nil, false
	}
	if !json.Valid(raw) {
		return nil, false
	}
	value := json.RawMessage(raw)
	t.local.Set(key, value)
	return value, true
}

func (t *Tiered) Set(ctx context.Context, key string, value json.RawMessage) error {
	if key == "" {
		return nil
	}
	t.local.Set(key, value)
	if t.mirror == nil {
		return nil
	}
	if err := t.mirror.Set(ctx, t.mirror.ResultKey(key), []byte(value), t.ttl); err != nil {
		return fmt.Errorf("mirror result %s: %w", key, err)
	}
	return nil
}

func (t *Tiered) Clear(ctx context.Context) error {
	t.local.Clear()
	if t.mirror == nil {
		return nil
	}
	if _, err := t.mirror.DeletePrefix(ctx, t.mirror.ResultPrefix()); err != nil {
		return fmt.Errorf("clear result mirror: %w", err)
	}
	return nil
}

// Dispose releases the in-process tier. The shared mirror is left intact.
func (t *Tiered) Dispose() {
	t.local.Dispose()
}
