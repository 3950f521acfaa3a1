package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/angelmondragon/insights/internal/analytics/backend"
	"github.com/angelmondragon/insights/internal/analytics/poller"
	"github.com/angelmondragon/insights/internal/analytics/resultcache"
	"github.com/angelmondragon/insights/internal/analytics/types"
	"github.com/angelmondragon/insights/pkg/enums"
	"github.com/angelmondragon/insights/pkg/logger"
	"github.com/angelmondragon/insights/pkg/metrics"
)

// Resolver turns request descriptors into payloads: cache first, then the
// backend's submit/poll protocol. Concurrent calls for the same key share a
// single backend sequence.
type Resolver struct {
	backend backend.Backend
	cache   resultcache.Store
	poller  *poller.Poller
	logg    *logger.Logger
	metrics *metrics.ResolverMetrics

	pollOpts []poller.Option

	mu      sync.Mutex
	flights map[string]*flight
}

// flight is one backend sequence and the callers waiting on it. It is
// canceled when the last waiter leaves before the result is committed.
type flight struct {
	done      chan struct{}
	payload   json.RawMessage
	err       error
	waiters   int
	committed bool
	cancel    context.CancelFunc
}

// Option configures a Resolver.
type Option func(*Resolver)

func WithLogger(logg *logger.Logger) Option {
	return func(r *Resolver) {
		r.logg = logg
	}
}

func WithMetrics(m *metrics.ResolverMetrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// WithPolling forwards options to the status poller.
func WithPolling(opts ...poller.Option) Option {
	return func(r *Resolver) {
		r.pollOpts = append(r.pollOpts, opts...)
	}
}

// New wires a resolver. A nil cache gets a private bounded cache of default capacity.
func New(b backend.Backend, cache resultcache.Store, opts ...Option) *Resolver {
	if cache == nil {
		cache = resultcache.NewTiered(nil, nil, 0, nil)
	}
	r := &Resolver{
		backend: b,
		cache:   cache,
		flights: map[string]*flight{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	pollOpts := append([]poller.Option{poller.WithObserver(func(s enums.TaskState) {
		r.metrics.IncPoll(s.String())
	})}, r.pollOpts...)
	r.poller = poller.New(b, pollOpts...)
	return r
}

// Resolve returns the payload for desc. An incomplete descriptor resolves to
// (nil, nil) without contacting the backend. When ctx ends first, Resolve
// returns ctx.Err() and the abandoned sequence never writes the cache.
func (r *Resolver) Resolve(ctx context.Context, desc types.RequestDescriptor) (json.RawMessage, error) {
	kind := desc.MetricKind.String()
	key := resultcache.KeyFor(desc)
	if key == "" {
		r.metrics.IncResolve(kind, metrics.OutcomeSkipped)
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		r.metrics.IncResolve(kind, metrics.OutcomeCanceled)
		return nil, err
	}
	ctx = r.withFields(ctx, desc, key)

	if payload, ok := r.cache.Get(ctx, key); ok {
		r.metrics.IncResolve(kind, metrics.OutcomeHit)
		r.debug(ctx, "analytics.cache_hit")
		return payload, nil
	}

	f, outcome := r.join(ctx, key, desc)
	r.metrics.IncResolve(kind, outcome)
	switch outcome {
	case metrics.OutcomeHit:
		r.debug(ctx, "analytics.cache_hit")
		return f.payload, nil
	case metrics.OutcomeShared:
		r.debug(ctx, "analytics.joined_in_flight")
	}

	select {
	case <-f.done:
		if f.err != nil {
			r.metrics.IncResolve(kind, outcomeFor(f.err))
		}
		return f.payload, f.err
	case <-ctx.Done():
		r.leave(key, f)
		r.metrics.IncResolve(kind, metrics.OutcomeCanceled)
		return nil, ctx.Err()
	}
}

// ResolveAsync resolves in the background and hands the outcome to fn. After
// the returned cancel func has been called fn is never invoked.
func (r *Resolver) ResolveAsync(ctx context.Context, desc types.RequestDescriptor, fn func(json.RawMessage, error)) (cancel func()) {
	const (
		pending int32 = iota
		delivering
		canceled
	)
	cctx, stop := context.WithCancel(ctx)
	var state atomic.Int32

	go func() {
		payload, err := r.Resolve(cctx, desc)
		if cctx.Err() != nil {
			return
		}
		if state.CompareAndSwap(pending, delivering) && fn != nil {
			fn(payload, err)
		}
	}()

	return func() {
		state.CompareAndSwap(pending, canceled)
		stop()
	}
}

// Invalidate drops every cached result.
func (r *Resolver) Invalidate(ctx context.Context) error {
	return r.cache.Clear(ctx)
}

// InFlight reports how many backend sequences are running.
func (r *Resolver) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flights)
}

// join attaches the caller to the flight for key, starting one if none is
// running. The cache is checked again under the lock: a flight writes the cache
// before it leaves the map, so a miss here means no sequence has completed
// since the caller's first lookup.
func (r *Resolver) join(ctx context.Context, key string, desc types.RequestDescriptor) (*flight, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.flights[key]; ok {
		f.waiters++
		return f, metrics.OutcomeShared
	}
	if payload, ok := r.cache.Get(ctx, key); ok {
		f := &flight{done: make(chan struct{}), payload: payload, committed: true}
		close(f.done)
		return f, metrics.OutcomeHit
	}
	fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	f := &flight{done: make(chan struct{}), cancel: cancel, waiters: 1}
	r.flights[key] = f
	go r.run(fctx, key, desc, f)
	return f, metrics.OutcomeMiss
}

func (r *Resolver) leave(key string, f *flight) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f.waiters--
	if f.waiters > 0 || f.committed {
		return
	}
	f.cancel()
	if r.flights[key] == f {
		delete(r.flights, key)
	}
}

func (r *Resolver) run(ctx context.Context, key string, desc types.RequestDescriptor, f *flight) {
	defer f.cancel()
	started := time.Now()
	payload, err := r.fetch(ctx, desc)

	r.mu.Lock()
	abandoned := ctx.Err() != nil
	if !abandoned {
		f.committed = true
	}
	r.mu.Unlock()

	switch {
	case abandoned:
		payload, err = nil, context.Canceled
	case err == nil:
		r.metrics.ObserveDuration(desc.MetricKind.String(), time.Since(started))
		if setErr := r.cache.Set(ctx, key, payload); setErr != nil {
			r.warn(ctx, "analytics.cache_write_failed", setErr)
		}
		r.debug(ctx, "analytics.resolved")
	default:
		r.debug(r.withError(ctx, err), "analytics.resolve_failed")
	}

	r.mu.Lock()
	if r.flights[key] == f {
		delete(r.flights, key)
	}
	r.mu.Unlock()

	f.payload, f.err = payload, err
	close(f.done)
}

func (r *Resolver) fetch(ctx context.Context, desc types.RequestDescriptor) (json.RawMessage, error) {
	submitted, err := r.backend.Submit(ctx, desc)
	if err != nil {
		return nil, err
	}
	r.metrics.IncSubmit(desc.MetricKind.String(), submitted.State.String())

	switch submitted.State {
	case enums.TaskStateSuccess:
		if !hasPayload(submitted.Data) {
			return nil, types.ProtocolError("success reply without data")
		}
		return submitted.Data, nil
	case enums.TaskStateProcessing:
		if submitted.Token == "" {
			return nil, types.ProtocolError("processing reply without poll token")
		}
		r.debug(ctx, "analytics.polling")
		terminal, err := r.poller.Wait(ctx, submitted.Token)
		if err != nil {
			return nil, err
		}
		if terminal.State == enums.TaskStateFailed {
			return nil, types.BackendFailure(terminal.Error)
		}
		if !hasPayload(terminal.Data) {
			return nil, types.ProtocolError("success status without data")
		}
		return terminal.Data, nil
	default:
		return nil, types.ProtocolError(fmt.Sprintf("unexpected submit status %q", submitted.State))
	}
}

func hasPayload(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

func outcomeFor(err error) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return metrics.OutcomeCanceled
	}
	return metrics.OutcomeError
}

func (r *Resolver) withFields(ctx context.Context, desc types.RequestDescriptor, key string) context.Context {
	if r.logg == nil {
		return ctx
	}
	ctx = r.logg.WithEntityID(ctx, desc.EntityID)
	ctx = r.logg.WithMetricKind(ctx, desc.MetricKind.String())
	return r.logg.WithCacheKey(ctx, key)
}

func (r *Resolver) withError(ctx context.Context, err error) context.Context {
	if r.logg == nil {
		return ctx
	}
	return r.logg.WithField(ctx, "error", err.Error())
}

func (r *Resolver) debug(ctx context.Context, msg string) {
	if r.logg != nil {
		r.logg.Debug(ctx, msg)
	}
}

func (r *Resolver) warn(ctx context.Context, msg string, err error) {
	if r.logg != nil {
		r.logg.Warn(r.withError(ctx, err), msg)
	}
}
