package resultcache

import (
	"encoding/json"
	"sync"
)

// DefaultCapacity keeps the current and the comparison period of one view.
const DefaultCapacity = 2

// Stats is a point-in-time view of cache effectiveness.
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
	Size      int    `json:"size"`
	Capacity  int    `json:"capacity"`
}

// Option configures a Bounded cache.
type Option func(*Bounded)

// WithEvictionHook is invoked with the evicted key, outside of the cache lock.
func WithEvictionHook(fn func(key string)) Option {
	return func(c *Bounded) {
		c.onEvict = fn
	}
}

// Bounded is a fixed-capacity result cache with first-in-first-out eviction.
// Overwriting a key keeps its original insertion position.
type Bounded struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]json.RawMessage
	order    []string
	disposed bool
	onEvict  func(key string)

	hits      uint64
	misses    uint64
	evictions uint64
}

// NewBounded returns an empty cache; non-positive capacity falls back to DefaultCapacity.
func NewBounded(capacity int, opts ...Option) *Bounded {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &Bounded{
		capacity: capacity,
		entries:  make(map[string]json.RawMessage, capacity),
		order:    make([]string, 0, capacity),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Bounded) Get(key string) (json.RawMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return nil, false
	}
	value, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	return value, true
}

func (c *Bounded) Set(key string, value json.RawMessage) {
	if key == "" {
		return
	}
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	if _, exists := c.entries[key]; exists {
		c.entries[key] = value
		c.mu.Unlock()
		return
	}

	var evicted []string
	for len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
		c.evictions++
		evicted = append(evicted, oldest)
	}
	c.entries[key] = value
	c.order = append(c.order, key)
	hook := c.onEvict
	c.mu.Unlock()

	if hook != nil {
		for _, k := range evicted {
			hook(k)
		}
	}
}

// Clear drops every entry. Statistics are kept.
func (c *Bounded) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]json.RawMessage, c.capacity)
	c.order = make([]string, 0, c.capacity)
}

// Dispose releases the entries; later calls behave as an always-empty cache.
func (c *Bounded) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
	c.order = nil
	c.disposed = true
}

func (c *Bounded) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// Keys returns the keys oldest first.
func (c *Bounded) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.order...)
}

func (c *Bounded) Capacity() int {
	return c.capacity
}

func (c *Bounded) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      len(c.order),
		Capacity:  c.capacity,
	}
}
