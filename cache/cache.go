// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cache

import (
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/bitmark-inc/agenthub/counter"
	"github.com/bitmark-inc/logger"
)

// DefaultTTL - used when a cache is created without an explicit TTL
const DefaultTTL = 600 * time.Second

// T - one cache instance
type T struct {
	sync.Mutex

	log        *logger.L
	name       string
	defaultTTL time.Duration
	store      *gocache.Cache
	now        func() time.Time

	hits   counter.Counter
	misses counter.Counter
	sets   counter.Counter
}

// Stats - snapshot of the cache counters
type Stats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Sets    uint64 `json:"sets"`
	Size    int    `json:"size"`
	HitRate string `json:"hitRate"`
}

// New - create a cache; a non-positive TTL selects DefaultTTL
//
// the store's own janitor is disabled, expired entries are removed by
// Get/Has and by the Cleaner background process
func New(name string, defaultTTL time.Duration) *T {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &T{
		log:        logger.New("cache-" + name),
		name:       name,
		defaultTTL: defaultTTL,
		store:      gocache.New(defaultTTL, 0),
		now:        time.Now,
	}
}

// Name - the instance name
func (c *T) Name() string {
	return c.name
}

// DefaultTTL - expiry applied by Set
func (c *T) DefaultTTL() time.Duration {
	return c.defaultTTL
}

// Set - store a value with the default TTL, replacing any previous entry
func (c *T) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, 0)
}

// SetWithTTL - store a value that expires after ttl
// a non-positive ttl selects the default
func (c *T) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.Lock()
	c.store.Set(key, value, ttl)
	c.Unlock()

	c.sets.Increment()
	c.log.Debugf("set: %q  ttl: %s", key, ttl)
}

// Add - store a value only if the key is absent or expired
// returns false if a live entry already exists
func (c *T) Add(key string, value interface{}, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.Lock()
	c.live(key)
	err := c.store.Add(key, value, ttl)
	c.Unlock()

	if nil != err {
		c.log.Debugf("add: %q  already present", key)
		return false
	}
	c.sets.Increment()
	c.log.Debugf("add: %q  ttl: %s", key, ttl)
	return true
}

// Get - fetch a live value, evicting the key if it has expired
func (c *T) Get(key string) (interface{}, bool) {
	c.Lock()
	value, found := c.live(key)
	c.Unlock()

	if !found {
		c.misses.Increment()
		return nil, false
	}

	c.hits.Increment()
	c.log.Debugf("hit: %q", key)
	return value, true
}

// Peek - same as Get without touching the counters
func (c *T) Peek(key string) (interface{}, bool) {
	c.Lock()
	defer c.Unlock()
	return c.live(key)
}

// Has - same expiry rule as Get without touching the counters
func (c *T) Has(key string) bool {
	_, found := c.Peek(key)
	return found
}

// an entry is expired once its expiry is at or before now
//
// the store only treats it as expired strictly after, so the boundary
// is checked here; the lock must be held
func (c *T) live(key string) (interface{}, bool) {
	value, expiry, found := c.store.GetWithExpiration(key)
	if found && !expiry.IsZero() && !c.now().Before(expiry) {
		found = false
	}
	if !found {
		// no-op when absent, evicts when expired
		c.store.Delete(key)
		return nil, false
	}
	return value, true
}

// Delete - remove one key
func (c *T) Delete(key string) {
	c.Lock()
	c.store.Delete(key)
	c.Unlock()
	c.log.Debugf("delete: %q", key)
}

// Clear - remove all keys
func (c *T) Clear() {
	c.Lock()
	c.store.Flush()
	c.Unlock()
	c.log.Info("cleared")
}

// CleanExpired - remove every expired entry and return how many were removed
func (c *T) CleanExpired() int {
	c.Lock()
	before := c.store.ItemCount()
	c.store.DeleteExpired()
	removed := before - c.store.ItemCount()
	c.Unlock()

	if removed > 0 {
		c.log.Infof("cleaned: %d expired entries", removed)
	}
	return removed
}

// Stats - current counters
func (c *T) Stats() Stats {
	hits := c.hits.Uint64()
	misses := c.misses.Uint64()

	c.Lock()
	size := c.store.ItemCount()
	c.Unlock()

	return Stats{
		Hits:    hits,
		Misses:  misses,
		Sets:    c.sets.Uint64(),
		Size:    size,
		HitRate: hitRate(hits, misses),
	}
}

// percentage with two decimals, plain "0%" before any access
func hitRate(hits uint64, misses uint64) string {
	total := hits + misses
	if 0 == total {
		return "0%"
	}
	return fmt.Sprintf("%.2f%%", float64(hits)/float64(total)*100)
}
