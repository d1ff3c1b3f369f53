// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package annotator

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// memo stores one value per key for the life of a run. Entries are never
// evicted or refreshed. Concurrent misses on the same key share one fetch.
type memo[V any] struct {
	mu      sync.RWMutex
	entries map[string]V
	group   singleflight.Group
}

func newMemo[V any]() *memo[V] {
	return &memo[V]{entries: make(map[string]V)}
}

func (m *memo[V]) get(key string) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	return v, ok
}

// do returns the cached value for key or runs fetch once. A fetch error
// leaves the key uncached. fetched reports whether this caller ran fetch.
func (m *memo[V]) do(key string, fetch func() (V, error)) (v V, fetched bool, err error) {
	if v, ok := m.get(key); ok {
		return v, false, nil
	}
	res, err, _ := m.group.Do(key, func() (any, error) {
		if v, ok := m.get(key); ok {
			return v, nil
		}
		fetched = true
		v, err := fetch()
		if err != nil {
			return v, err
		}
		m.mu.Lock()
		m.entries[key] = v
		m.mu.Unlock()
		return v, nil
	})
	v, _ = res.(V)
	return v, fetched, err
}

func (m *memo[V]) len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// CacheStats reports cache activity.
type CacheStats struct {
	Phrases int   // distinct phrases cached
	Labels  int   // distinct labels cached
	Hits    int64 // searches answered from the cache
	Misses  int64 // searches that reached the client
}

// Cache memoizes searches per normalized phrase and labels per
// (vocabulary, code). A phrase with no candidates is cached as an empty
// list. Safe for concurrent use.
type Cache struct {
	searches *memo[[]Candidate]
	labels   *memo[string]

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		searches: newMemo[[]Candidate](),
		labels:   newMemo[string](),
	}
}

// Candidates returns the cached candidates for a normalized phrase.
func (c *Cache) Candidates(phrase string) ([]Candidate, bool) {
	v, ok := c.searches.get(phrase)
	if !ok {
		return nil, false
	}
	return append([]Candidate(nil), v...), true
}

// Search returns the cached candidates for phrase, calling fetch on a miss.
// hit is false for the caller that ran fetch.
func (c *Cache) Search(phrase string, fetch func() ([]Candidate, error)) (cands []Candidate, hit bool, err error) {
	v, fetched, err := c.searches.do(phrase, func() ([]Candidate, error) {
		v, err := fetch()
		if v == nil && err == nil {
			v = []Candidate{}
		}
		return v, err
	})
	if fetched {
		c.misses.Add(1)
	} else if err == nil {
		c.hits.Add(1)
	}
	return append([]Candidate(nil), v...), !fetched, err
}

// Label returns the cached label for (vocabulary, code), calling fetch on a miss.
func (c *Cache) Label(vocabularyID, code string, fetch func() (string, error)) (string, error) {
	v, _, err := c.labels.do(vocabularyID+"\x00"+code, fetch)
	return v, err
}

// Stats returns current counters.
func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Phrases: c.searches.len(),
		Labels:  c.labels.len(),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}
