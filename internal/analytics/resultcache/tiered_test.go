package resultcache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

type fakeMirror struct {
	data     map[string][]byte
	ttls     map[string]time.Duration
	setErr   error
	clearErr error
}

func newFakeMirror() *fakeMirror {
	return &fakeMirror{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (f *fakeMirror) GetBytes(_ context.Context, key string) ([]byte, error) {
	v, ok := f.data[key]
	if !ok {
		return nil, goredis.Nil
	}
	return v, nil
}

func (f *fakeMirror) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = value.([]byte)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeMirror) DeletePrefix(_ context.Context, prefix string) (int, error) {
	if f.clearErr != nil {
		return 0, f.clearErr
	}
	n := 0
	for k := range f.data {
		if strings.HasPrefix(k, prefix) {
			delete(f.data, k)
			n++
		}
	}
	return n, nil
}

func (f *fakeMirror) ResultKey(cacheKey string) string { return "insights:result:" + cacheKey }
func (f *fakeMirror) ResultPrefix() string             { return "insights:result:" }

func TestTieredWritesThroughAndPromotes(t *testing.T) {
	ctx := context.Background()
	mirror := newFakeMirror()
	store := NewTiered(NewBounded(2), mirror, time.Hour, nil)

	if err := store.Set(ctx, "A", json.RawMessage(`{"v":1}`)); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if ttl := mirror.ttls["insights:result:A"]; ttl != time.Hour {
		t.Fatalf("expected mirror ttl 1h, got %v", ttl)
	}

	// A fresh process shares the mirror but not the local tier.
	other := NewTiered(NewBounded(2), mirror, time.Hour, nil)
	got, ok := other.Get(ctx, "A")
	if !ok || string(got) != `{"v":1}` {
		t.Fatalf("expected mirrored payload, got %s (ok=%v)", got, ok)
	}
	assertKeys(t, other.Local(), "A")
}

func TestTieredMissWithoutMirror(t *testing.T) {
	ctx := context.Background()
	store := NewTiered(nil, nil, 0, nil)
	if _, ok := store.Get(ctx, "A"); ok {
		t.Fatal("expected miss on empty cache")
	}
	if err := store.Set(ctx, "A", json.RawMessage(`1`)); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if _, ok := store.Get(ctx, "A"); !ok {
		t.Fatal("expected hit after Set")
	}
}

func TestTieredMirrorFailures(t *testing.T) {
	ctx := context.Background()
	mirror := newFakeMirror()
	mirror.setErr = errors.New("connection reset")
	store := NewTiered(NewBounded(2), mirror, time.Minute, nil)

	if err := store.Set(ctx, "A", json.RawMessage(`1`)); err == nil {
		t.Fatal("expected mirror write error")
	}
	if _, ok := store.Local().Get("A"); !ok {
		t.Fatal("local tier is written before the mirror")
	}

	mirror.clearErr = errors.New("scan failed")
	if err := store.Clear(ctx); err == nil {
		t.Fatal("expected mirror clear error")
	}
	if store.Local().Len() != 0 {
		t.Fatalf("expected local tier cleared, len=%d", store.Local().Len())
	}
}

func TestTieredClearRemovesMirroredResults(t *testing.T) {
	ctx := context.Background()
	mirror := newFakeMirror()
	mirror.data["insights:lock:warmer"] = []byte("owner")
	store := NewTiered(NewBounded(2), mirror, time.Minute, nil)
	for key, value := range map[string]string{"A": `1`, "B": `2`} {
		if err := store.Set(ctx, key, json.RawMessage(value)); err != nil {
			t.Fatalf("Set(%s) returned error: %v", key, err)
		}
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}
	if _, ok := store.Get(ctx, "A"); ok {
		t.Fatal("expected A to be cleared")
	}
	if len(mirror.data) != 1 {
		t.Fatalf("expected only the lock key to remain, got %v", mirror.data)
	}
}
