package phonedb

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"sync/atomic"
)

const (
	// Valid query lengths: a bare 7-digit prefix up to a full
	// 11-digit phone number.
	minQueryLen = 7
	maxQueryLen = 11

	// The lookup key is always the leading 7 digits.
	prefixDigits = 7
)

// Engine answers phone-prefix attribution lookups against a database
// image loaded once at startup. All methods are safe for concurrent
// use: the decoded image is never mutated, the result cache carries
// its own lock, and the counters are atomic.
type Engine struct {
	db *database

	cache        *resultCache
	cacheEnabled bool

	// Advisory metrics, updated atomically outside the cache lock. A
	// hit rate computed from them can momentarily disagree with the
	// cache contents under concurrency.
	totalQueries atomic.Uint64
	cacheHits    atomic.Uint64
}

// Stats is a point-in-time snapshot of the engine counters.
type Stats struct {
	IndexCount   int     `json:"index_count"`
	TotalQueries uint64  `json:"total_queries"`
	CacheHits    uint64  `json:"cache_hits"`
	CacheHitRate float64 `json:"cache_hit_rate_percent"`
}

// CacheStats describes the result cache. Size and Capacity are zero
// when caching is disabled.
type CacheStats struct {
	Size         int    `json:"size"`
	Capacity     int    `json:"capacity"`
	Hits         uint64 `json:"hits"`
	TotalQueries uint64 `json:"total_queries"`
}

// Load reads and decodes the database file at path and returns an
// engine ready for lookups. Decoding is all-or-nothing: a file that
// cannot be fully decoded never produces a partially loaded engine.
func Load(path string, cacheEnabled bool, cacheCapacity int) (*Engine, error) {
	if cacheEnabled && cacheCapacity <= 0 {
		return nil, fmt.Errorf("cache capacity must be positive when caching is enabled, got %d", cacheCapacity)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	defer f.Close()

	db, err := decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("failed to decode database %s: %w", path, err)
	}

	eng := &Engine{db: db, cacheEnabled: cacheEnabled}
	if cacheEnabled {
		eng.cache = newResultCache(cacheCapacity)
	}
	return eng, nil
}

// Resolve looks up the attribution record for a dialed number. The
// leading 7 digits form the lookup key; any trailing digits only count
// toward the length check. Every call increments the query counter,
// successful or not.
func (e *Engine) Resolve(phone string) (*Record, error) {
	e.totalQueries.Add(1)

	if len(phone) < minQueryLen || len(phone) > maxQueryLen {
		return nil, fmt.Errorf("%w: got %d characters", ErrInvalidLength, len(phone))
	}

	if e.cacheEnabled {
		if rec, ok := e.cache.get(phone); ok {
			e.cacheHits.Add(1)
			return rec, nil
		}
	}

	prefix, err := parsePrefix(phone)
	if err != nil {
		return nil, err
	}

	entry, ok := e.locate(prefix)
	if !ok {
		return nil, ErrNotFound
	}

	rec, err := e.db.parseRecord(entry.recordsOffset)
	if err != nil {
		return nil, err
	}
	carrier, err := carrierDescription(entry.carrierCode)
	if err != nil {
		return nil, err
	}
	rec.Carrier = carrier

	if e.cacheEnabled {
		e.cache.put(phone, rec)
	}
	return rec, nil
}

// parsePrefix converts the leading 7 digits without allocating. A
// non-digit byte reports ErrInvalidDatabase, not a separate
// malformed-input kind.
func parsePrefix(phone string) (int32, error) {
	var n int32
	for i := 0; i < prefixDigits; i++ {
		c := phone[i]
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: non-digit %q in prefix", ErrInvalidDatabase, c)
		}
		n = n*10 + int32(c-'0')
	}
	return n, nil
}

// locate binary-searches the sorted index for an exact prefix match.
func (e *Engine) locate(prefix int32) (indexEntry, bool) {
	idx := e.db.index
	i := sort.Search(len(idx), func(i int) bool { return idx[i].prefix >= prefix })
	if i < len(idx) && idx[i].prefix == prefix {
		return idx[i], true
	}
	return indexEntry{}, false
}

// Version returns the 4-character database version tag.
func (e *Engine) Version() string { return e.db.version }

// IndexCount returns the number of prefix entries in the index.
func (e *Engine) IndexCount() int { return len(e.db.index) }

// TotalQueries returns the number of Resolve calls so far.
func (e *Engine) TotalQueries() uint64 { return e.totalQueries.Load() }

// CacheHits returns the number of queries served from the cache.
func (e *Engine) CacheHits() uint64 { return e.cacheHits.Load() }

// CacheHitRate returns the percentage of queries served from the
// cache, 0 when nothing has been queried yet.
func (e *Engine) CacheHitRate() float64 {
	total := e.totalQueries.Load()
	if total == 0 {
		return 0
	}
	return float64(e.cacheHits.Load()) / float64(total) * 100
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() Stats {
	return Stats{
		IndexCount:   e.IndexCount(),
		TotalQueries: e.TotalQueries(),
		CacheHits:    e.CacheHits(),
		CacheHitRate: e.CacheHitRate(),
	}
}

// CacheStats returns a snapshot of the result cache state together
// with the query counters.
func (e *Engine) CacheStats() CacheStats {
	cs := CacheStats{
		Hits:         e.CacheHits(),
		TotalQueries: e.TotalQueries(),
	}
	if e.cacheEnabled {
		cs.Size = e.cache.size()
		cs.Capacity = e.cache.capacity
	}
	return cs
}

// ClearCache empties the result cache. The query counters are not
// reset. It fails when the engine was constructed with caching
// disabled.
func (e *Engine) ClearCache() error {
	if !e.cacheEnabled {
		return ErrCacheDisabled
	}
	e.cache.clear()
	return nil
}

// SetCacheSize is accepted for compatibility but only clears the
// cache: capacity is fixed at construction time. Callers relying on
// an actual resize must rebuild the engine.
func (e *Engine) SetCacheSize(size int) error {
	if !e.cacheEnabled {
		return ErrCacheDisabled
	}
	e.cache.clear()
	return nil
}

// Walk calls fn for every index entry in ascending prefix order,
// handing it the fully parsed record. Iteration stops at the first
// error, either from parsing or from fn itself.
func (e *Engine) Walk(fn func(prefix int32, carrierCode uint8, rec *Record) error) error {
	for _, entry := range e.db.index {
		rec, err := e.db.parseRecord(entry.recordsOffset)
		if err != nil {
			return err
		}
		carrier, err := carrierDescription(entry.carrierCode)
		if err != nil {
			return err
		}
		rec.Carrier = carrier
		if err := fn(entry.prefix, entry.carrierCode, rec); err != nil {
			return err
		}
	}
	return nil
}
