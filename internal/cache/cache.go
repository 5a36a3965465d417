// Package cache holds the concurrent-safe in-memory entity cache used as a
// read accelerator in front of a remote store. The cache is never the
// source of truth: mutating operations still perform their authoritative
// checks remotely, and absence from the cache means nothing.
package cache

import (
	"sync"

	"github.com/dojolist/dojolist-engine/internal/domain"
)

// Cache maps entity id to entity, with a secondary index on the natural
// key. Readers proceed concurrently; writers hold the lock only for the
// map mutation, never across a network call.
type Cache[T domain.Entity] struct {
	mu   sync.RWMutex
	byID map[string]T
	// byKey maps natural key to entity id. Entities whose natural key is
	// their own id (journal events) still index harmlessly.
	byKey map[string]string
}

func New[T domain.Entity]() *Cache[T] {
	return &Cache[T]{
		byID:  make(map[string]T),
		byKey: make(map[string]string),
	}
}

func (c *Cache[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.byID[id]
	return e, ok
}

// ByNaturalKey resolves the secondary index. Best effort: a miss here says
// nothing about the remote store.
func (c *Cache[T]) ByNaturalKey(key string) (T, bool) {
	c.mu.RLock()
	id, ok := c.byKey[key]
	if !ok {
		c.mu.RUnlock()
		var zero T
		return zero, false
	}
	e, ok := c.byID[id]
	c.mu.RUnlock()
	return e, ok
}

// Put upserts into both indexes. Idempotent; a changed natural key drops
// the stale index entry.
func (c *Cache[T]) Put(e T) {
	id := e.EntityID()
	key := e.NaturalKey()
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.byID[id]; ok {
		if pk := prev.NaturalKey(); pk != key && c.byKey[pk] == id {
			delete(c.byKey, pk)
		}
	}
	c.byID[id] = e
	if key != "" {
		c.byKey[key] = id
	}
}

func (c *Cache[T]) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev, ok := c.byID[id]
	if !ok {
		return
	}
	delete(c.byID, id)
	if pk := prev.NaturalKey(); c.byKey[pk] == id {
		delete(c.byKey, pk)
	}
}

// FindBy linearly scans cached entities. Used for cache-first existence
// checks only; callers must still confirm against the remote store.
func (c *Cache[T]) FindBy(pred func(T) bool) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []T
	for _, e := range c.byID {
		if pred(e) {
			out = append(out, e)
		}
	}
	return out
}

func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byID)
}
