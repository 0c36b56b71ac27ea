// Package cache is a size-bounded LRU with optional per-entry expiry.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultCapacity = 256

// Cache is safe for concurrent use. A zero ttl disables expiry.
type Cache[K comparable, V any] struct {
	lru *expirable.LRU[K, V]
}

func New[K comparable, V any](capacity int, ttl time.Duration) *Cache[K, V] {
	return NewWithEvict[K, V](capacity, ttl, nil)
}

// NewWithEvict calls onEvict whenever an entry leaves the cache: capacity
// eviction, expiry, Remove and Purge.
func NewWithEvict[K comparable, V any](capacity int, ttl time.Duration, onEvict func(K, V)) *Cache[K, V] {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	var cb expirable.EvictCallback[K, V]
	if onEvict != nil {
		cb = func(k K, v V) { onEvict(k, v) }
	}
	return &Cache[K, V]{lru: expirable.NewLRU[K, V](capacity, cb, ttl)}
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	return c.lru.Get(key)
}

func (c *Cache[K, V]) Set(key K, value V) {
	c.lru.Add(key, value)
}

func (c *Cache[K, V]) Remove(key K) bool {
	return c.lru.Remove(key)
}

func (c *Cache[K, V]) Len() int {
	return c.lru.Len()
}

func (c *Cache[K, V]) Purge() {
	c.lru.Purge()
}
