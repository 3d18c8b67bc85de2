package phonedb

import "sync"

// resultCache maps a query string to its resolved record. It is the
// only mutable state shared between resolver calls. A single RWMutex
// guards the map: hits take the read lock so concurrent readers never
// block each other, while inserts, eviction sweeps and clears are
// mutually exclusive with everything. No lock is held longer than one
// map operation or one bounded sweep.
type resultCache struct {
	mu       sync.RWMutex
	entries  map[string]*Record
	capacity int
}

func newResultCache(capacity int) *resultCache {
	return &resultCache{
		entries:  make(map[string]*Record),
		capacity: capacity,
	}
}

// get returns a copy of the cached record for the query, if present.
func (c *resultCache) get(query string) (*Record, bool) {
	c.mu.RLock()
	rec, ok := c.entries[query]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	cp := *rec
	return &cp, true
}

// put inserts the result for a query. When the cache is full it first
// evicts roughly half of the existing entries in map iteration order:
// a size-bound sweep, not an LRU. The sweep always removes at least
// one entry so the size bound holds for any capacity.
func (c *resultCache) put(query string, rec *Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Another goroutine may have resolved and inserted the same query
	// while this one was searching the index.
	if _, ok := c.entries[query]; ok {
		return
	}

	if len(c.entries) >= c.capacity {
		drop := len(c.entries) / 2
		if drop == 0 {
			drop = 1
		}
		for key := range c.entries {
			if drop == 0 {
				break
			}
			delete(c.entries, key)
			drop--
		}
	}

	cp := *rec
	c.entries[query] = &cp
}

func (c *resultCache) clear() {
	c.mu.Lock()
	c.entries = make(map[string]*Record)
	c.mu.Unlock()
}

func (c *resultCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
