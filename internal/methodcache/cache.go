package methodcache

import "github.com/gnolang/tverify/internal/subroutine"

// Cache memoizes one subroutine (or nil) per key. Each key is built at most
// once; a key requested again while its build is still running yields nil,
// which breaks cycles in the embedding graph.
//
// Cache is not safe for concurrent use.
type Cache[K comparable] struct {
	build    func(K) *subroutine.Subroutine
	entries  map[K]*subroutine.Subroutine
	building map[K]bool
}

func NewCache[K comparable](build func(K) *subroutine.Subroutine) *Cache[K] {
	return &Cache[K]{
		build:    build,
		entries:  make(map[K]*subroutine.Subroutine),
		building: make(map[K]bool),
	}
}

// Get returns the cached entry for k, building it on first use.
func (c *Cache[K]) Get(k K) *subroutine.Subroutine {
	if s, ok := c.entries[k]; ok {
		return s
	}
	if c.building[k] {
		return nil
	}
	c.building[k] = true
	s := c.build(k)
	delete(c.building, k)
	if s != nil {
		s.Initialize()
	}
	c.entries[k] = s
	return s
}

// Lookup returns the cached entry without building it.
func (c *Cache[K]) Lookup(k K) (*subroutine.Subroutine, bool) {
	s, ok := c.entries[k]
	return s, ok
}

// Install stores s under k, replacing any previous entry.
func (c *Cache[K]) Install(k K, s *subroutine.Subroutine) {
	c.entries[k] = s
}

// Remove drops the entry for k. It reports whether an entry existed.
func (c *Cache[K]) Remove(k K) bool {
	if _, ok := c.entries[k]; !ok {
		return false
	}
	delete(c.entries, k)
	return true
}

// Len returns the number of cached entries, nil entries included.
func (c *Cache[K]) Len() int { return len(c.entries) }
