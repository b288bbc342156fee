package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"dexflow/internal/domain"
)

const keyPrefix = "order:"

type entry struct {
	payload  []byte
	deadline time.Time
}

// Cache is a time-boxed in-memory snapshot store for in-flight orders.
// Entries hold JSON snapshots keyed by "order:{id}" and expire after the
// configured TTL. Terminal orders are removed explicitly by the pipeline;
// the janitor only mops up entries orphaned by a crash mid-flight.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
}

// New creates a cache with the given entry TTL.
func New(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
	}
}

// Set stores a snapshot of the order, resetting its TTL.
func (c *Cache) Set(id string, o *domain.Order) error {
	payload, err := json.Marshal(o)
	if err != nil {
		return &domain.PersistenceError{Op: "cache", Err: err}
	}

	c.mu.Lock()
	c.entries[keyPrefix+id] = entry{
		payload:  payload,
		deadline: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()
	return nil
}

// Get returns the cached snapshot, or false on a miss or expired entry.
func (c *Cache) Get(id string) (*domain.Order, bool) {
	c.mu.RLock()
	e, ok := c.entries[keyPrefix+id]
	c.mu.RUnlock()

	if !ok || time.Now().After(e.deadline) {
		return nil, false
	}

	var o domain.Order
	if err := json.Unmarshal(e.payload, &o); err != nil {
		return nil, false
	}
	return &o, true
}

// Remove evicts an order snapshot. Safe to call for absent ids.
func (c *Cache) Remove(id string) {
	c.mu.Lock()
	delete(c.entries, keyPrefix+id)
	c.mu.Unlock()
}

// Len returns the number of live entries, counting expired ones the
// janitor has not collected yet.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// StartJanitor launches a background sweep of expired entries.
func (c *Cache) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.sweep(time.Now())
			}
		}
	}()
}

func (c *Cache) sweep(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if now.After(e.deadline) {
			delete(c.entries, key)
		}
	}
}
