// Package cache stores compiled programs keyed by their source text.
//
// Entries are located by a 64-bit xxh3 hash of the source and confirmed by
// comparing the full text, so a hash collision behaves like a miss. When the
// cache is full the entry with the oldest access stamp is evicted.
package cache

import (
	"math"
	"sync"

	"github.com/deepnoodle-ai/pyreg/bytecode"
	"github.com/zeebo/xxh3"
)

// DefaultCapacity is the number of programs held when no size is configured.
const DefaultCapacity = 1000

// Cache is implemented by compiled-program caches.
type Cache interface {
	// Get returns the program compiled from source, if present.
	Get(source string) (*bytecode.Code, bool)

	// Insert stores code for source, replacing any previous entry.
	Insert(source string, code *bytecode.Code)

	// Stats returns a snapshot of the cache counters.
	Stats() Stats

	// Clear drops every entry and resets the counters.
	Clear()
}

// Stats reports cache effectiveness.
type Stats struct {
	Hits     int     `json:"hits"`
	Misses   int     `json:"misses"`
	Size     int     `json:"size"`
	Capacity int     `json:"capacity"`
	HitRate  float64 `json:"hit_rate"`
}

type entry struct {
	source     string
	code       *bytecode.Code
	lastAccess uint64
}

// LRU is a least-recently-used cache. It is not safe for concurrent use;
// wrap it with NewSynchronized when sharing across goroutines.
type LRU struct {
	entries  map[uint64]*entry
	capacity int
	clock    uint64
	hits     int
	misses   int
}

// NewLRU returns an empty cache holding at most capacity programs. A
// capacity of zero yields a cache that never stores anything.
func NewLRU(capacity int) *LRU {
	if capacity < 0 {
		capacity = 0
	}
	return &LRU{
		entries:  map[uint64]*entry{},
		capacity: capacity,
	}
}

// Local returns a fresh unsynchronized cache with the default capacity,
// intended to be owned by a single goroutine.
func Local() *LRU {
	return NewLRU(DefaultCapacity)
}

func hashSource(source string) uint64 {
	return xxh3.HashString(source)
}

// Get implements Cache.
func (c *LRU) Get(source string) (*bytecode.Code, bool) {
	e, ok := c.entries[hashSource(source)]
	if !ok || e.source != source {
		c.misses++
		return nil, false
	}
	c.hits++
	c.clock++
	e.lastAccess = c.clock
	return e.code, true
}

// Insert implements Cache.
func (c *LRU) Insert(source string, code *bytecode.Code) {
	if c.capacity == 0 {
		return
	}
	key := hashSource(source)
	delete(c.entries, key)
	if len(c.entries) >= c.capacity {
		c.evict()
	}
	c.clock++
	c.entries[key] = &entry{source: source, code: code, lastAccess: c.clock}
}

func (c *LRU) evict() {
	var (
		oldestKey  uint64
		oldestTime uint64 = math.MaxUint64
		found      bool
	)
	for key, e := range c.entries {
		if e.lastAccess < oldestTime {
			oldestKey, oldestTime, found = key, e.lastAccess, true
		}
	}
	if found {
		delete(c.entries, oldestKey)
	}
}

// Stats implements Cache.
func (c *LRU) Stats() Stats {
	stats := Stats{
		Hits:     c.hits,
		Misses:   c.misses,
		Size:     len(c.entries),
		Capacity: c.capacity,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}

// Clear implements Cache.
func (c *LRU) Clear() {
	c.entries = map[uint64]*entry{}
	c.clock = 0
	c.hits = 0
	c.misses = 0
}

// Synchronized guards a Cache with a mutex so it can be shared by many
// goroutines, such as the connections served by the daemon.
type Synchronized struct {
	mu    sync.Mutex
	inner Cache
}

// NewSynchronized wraps inner. Callers must not use inner directly afterwards.
func NewSynchronized(inner Cache) *Synchronized {
	return &Synchronized{inner: inner}
}

// Get implements Cache.
func (s *Synchronized) Get(source string) (*bytecode.Code, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Get(source)
}

// Insert implements Cache.
func (s *Synchronized) Insert(source string, code *bytecode.Code) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.Insert(source, code)
}

// Stats implements Cache.
func (s *Synchronized) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Stats()
}

// Clear implements Cache.
func (s *Synchronized) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.Clear()
}
