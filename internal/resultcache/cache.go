// ============================================================================
// Fractor Result Cache
// ============================================================================
//
// Package: internal/resultcache
// File: cache.go
// Function: A fingerprint-keyed cache of prior WorkResult values, with TTL
// expiry and LRU eviction under a maximum entry count (spec.md §4.6).
//
// Fingerprinting hashes a textual rendering of the work's input and timeout
// with xxhash (already present in the module graph as a prometheus client
// dependency). This is a pragmatic fingerprint, not a cryptographic one: the
// rendering is fmt's %#v, which prints maps in sorted key order but prints a
// pointer as its address, so two pointer inputs whose targets are equal get
// different fingerprints, and one pointer whose target changes keeps the
// same fingerprint. Work input is expected to be
// plain data (the kind that crosses a dispatch boundary), so this is an
// accepted limitation rather than a correctness bug in the common case.
//
// ============================================================================

package resultcache

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/metanorma/fractor/pkg/fractor"
)

// Fingerprint identifies a Work item's input for cache lookups.
type Fingerprint uint64

// FingerprintOf computes the cache key for w, folding in both its input and
// its timeout (spec.md §4.8: "worker_class_identity, work.input,
// work.timeout" — worker-class identity is covered by one Cache per pool,
// see internal/cliapp/run.go's cachingFactory) so two Work items with
// identical input but different per-item timeouts never collide.
func FingerprintOf(w fractor.Work) Fingerprint {
	return Fingerprint(xxhash.Sum64String(fmt.Sprintf("%#v|%d", w.Input(), w.Timeout())))
}

// Stats reports cache occupancy and hit/miss counters.
type Stats struct {
	Size       int
	Hits       int64
	Misses     int64
	Sets       int64
	Evictions  int64
	Expired    int64
}

type entry struct {
	key       Fingerprint
	value     interface{}
	expiresAt time.Time // zero means no expiry
}

// Cache is a thread-safe, bounded, TTL-aware LRU cache of WorkResult payloads
// keyed by Fingerprint.
type Cache struct {
	mu         sync.Mutex
	maxEntries int
	defaultTTL time.Duration

	order *list.List // front = most recently used
	items map[Fingerprint]*list.Element

	hits, misses, sets, evictions, expired int64
}

// New constructs a Cache. maxEntries <= 0 means unbounded (no LRU eviction).
// defaultTTL <= 0 means entries never expire unless Set with an explicit TTL.
func New(maxEntries int, defaultTTL time.Duration) *Cache {
	return &Cache{
		maxEntries: maxEntries,
		defaultTTL: defaultTTL,
		order:      list.New(),
		items:      make(map[Fingerprint]*list.Element),
	}
}

// Get returns the cached value for w's fingerprint, if present and unexpired.
func (c *Cache) Get(w fractor.Work) (interface{}, bool) {
	return c.getByKey(FingerprintOf(w))
}

func (c *Cache) getByKey(key Fingerprint) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	e := el.Value.(*entry)
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		c.removeLocked(el)
		c.expired++
		c.misses++
		return nil, false
	}
	c.order.MoveToFront(el)
	c.hits++
	return e.value, true
}

// Has reports presence without affecting LRU order or hit/miss counters.
func (c *Cache) Has(w fractor.Work) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := FingerprintOf(w)
	el, ok := c.items[key]
	if !ok {
		return false
	}
	e := el.Value.(*entry)
	return e.expiresAt.IsZero() || time.Now().Before(e.expiresAt)
}

// Set stores value for w's fingerprint using the cache's default TTL.
func (c *Cache) Set(w fractor.Work, value interface{}) {
	c.SetWithTTL(w, value, c.defaultTTL)
}

// SetWithTTL stores value with an explicit TTL override (<=0 means no expiry).
func (c *Cache) SetWithTTL(w fractor.Work, value interface{}, ttl time.Duration) {
	key := FingerprintOf(w)
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry)
		e.value = value
		e.expiresAt = expiresAt
		c.order.MoveToFront(el)
		c.sets++
		return
	}

	el := c.order.PushFront(&entry{key: key, value: value, expiresAt: expiresAt})
	c.items[key] = el
	c.sets++
	c.evictIfOverCapacityLocked()
}

// GetOrCompute returns the cached value for w if present, otherwise calls
// compute, stores its result, and returns it. Matches spec.md's "get(work)
// {compute}" shape: a cache-aside read with a fallback producer. compute is
// called with the cache lock released so a slow producer cannot stall other
// cache traffic; a second concurrent caller for the same key may therefore
// compute redundantly rather than wait — an accepted simplification over a
// per-key singleflight.
func (c *Cache) GetOrCompute(w fractor.Work, compute func() (interface{}, error)) (interface{}, error) {
	if v, ok := c.Get(w); ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		return nil, err
	}
	c.Set(w, v)
	return v, nil
}

// Invalidate removes the entry for w, if any.
func (c *Cache) Invalidate(w fractor.Work) {
	key := FingerprintOf(w)
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.removeLocked(el)
	}
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[Fingerprint]*list.Element)
}

// CleanupExpired walks the cache removing expired entries and returns how
// many were dropped. Nothing in the module calls it on a schedule; without
// an explicit call, expired entries are only dropped lazily at Get time.
func (c *Cache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		e := el.Value.(*entry)
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			c.removeLocked(el)
			c.expired++
			removed++
		}
		el = next
	}
	return removed
}

func (c *Cache) evictIfOverCapacityLocked() {
	if c.maxEntries <= 0 {
		return
	}
	for len(c.items) > c.maxEntries {
		back := c.order.Back()
		if back == nil {
			return
		}
		c.removeLocked(back)
		c.evictions++
	}
}

func (c *Cache) removeLocked(el *list.Element) {
	e := el.Value.(*entry)
	delete(c.items, e.key)
	c.order.Remove(el)
}

// Wrap returns a fractor.Worker that serves repeated Work (same input, same
// effective fingerprint) from c instead of re-invoking inner.Process, per
// spec.md §4.8's "get(work) { compute }" cache-aside shape. A cache miss
// runs inner.Process and, on success, stores the raw result; a failure (a
// returned error, or a returned fractor.WorkResult that is not a success) is
// never cached so a transient error does not poison future lookups.
//
// Wrap preserves inner's Named/Timeoutable optional interfaces so a cached
// worker still reports its name and default timeout to the host exactly as
// the uncached worker would (internal/workerhost inspects the concrete
// Worker value, not a fixed wrapper type, via the interfaces it returns).
func Wrap(inner fractor.Worker, c *Cache) fractor.Worker {
	return &cachingWorker{inner: inner, cache: c}
}

type cachingWorker struct {
	inner fractor.Worker
	cache *Cache
}

func (w *cachingWorker) Process(work fractor.Work) (interface{}, error) {
	if v, ok := w.cache.Get(work); ok {
		return v, nil
	}
	v, err := w.inner.Process(work)
	if err != nil {
		return nil, err
	}
	if wr, ok := v.(fractor.WorkResult); ok && !wr.Success() {
		return v, nil
	}
	w.cache.Set(work, v)
	return v, nil
}

func (w *cachingWorker) Name() string {
	if n, ok := w.inner.(fractor.Named); ok {
		return n.Name()
	}
	return "cached"
}

func (w *cachingWorker) DefaultTimeout() time.Duration {
	if t, ok := w.inner.(fractor.Timeoutable); ok {
		return t.DefaultTimeout()
	}
	return 0
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Size:      len(c.items),
		Hits:      c.hits,
		Misses:    c.misses,
		Sets:      c.sets,
		Evictions: c.evictions,
		Expired:   c.expired,
	}
}
