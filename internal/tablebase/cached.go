package tablebase

import (
	"sync"
	"sync/atomic"

	"github.com/hailam/lazysearch/internal/board"
)

// CachedProber wraps another prober with a bounded cache keyed by the
// position's Zobrist key. Only found results are cached, so a transient
// failure of the inner prober is retried on the next probe.
type CachedProber struct {
	inner   Prober
	cache   map[uint64]ProbeResult
	mu      sync.RWMutex
	maxSize int
	hits    atomic.Uint64
	misses  atomic.Uint64
}

// NewCachedProber creates a cached prober wrapping the given prober.
func NewCachedProber(inner Prober, cacheSize int) *CachedProber {
	return &CachedProber{
		inner:   inner,
		cache:   make(map[uint64]ProbeResult, cacheSize),
		maxSize: max(cacheSize, 2),
	}
}

func (cp *CachedProber) Probe(pos *board.Position) ProbeResult {
	key := pos.Key()

	cp.mu.RLock()
	result, ok := cp.cache[key]
	cp.mu.RUnlock()
	if ok {
		cp.hits.Add(1)
		return result
	}

	// Cache miss - probe underlying
	cp.misses.Add(1)
	result = cp.inner.Probe(pos)
	if !result.Found {
		return result
	}

	cp.mu.Lock()
	if len(cp.cache) >= cp.maxSize {
		// Simple eviction: drop half the cache
		i := 0
		for k := range cp.cache {
			if i >= cp.maxSize/2 {
				break
			}
			delete(cp.cache, k)
			i++
		}
	}
	cp.cache[key] = result
	cp.mu.Unlock()

	return result
}

func (cp *CachedProber) MaxPieces() int {
	return cp.inner.MaxPieces()
}

func (cp *CachedProber) Available() bool {
	return cp.inner.Available()
}

// HitRate returns the cache hit rate as a percentage.
func (cp *CachedProber) HitRate() float64 {
	hits, misses := cp.hits.Load(), cp.misses.Load()
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

// CacheSize returns the current number of cached entries.
func (cp *CachedProber) CacheSize() int {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	return len(cp.cache)
}

// Clear clears the cache.
func (cp *CachedProber) Clear() {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	cp.cache = make(map[uint64]ProbeResult, cp.maxSize)
	cp.hits.Store(0)
	cp.misses.Store(0)
}
