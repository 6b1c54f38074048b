// Package infra provides the shared plumbing used by data providers:
// an in-memory TTL cache, a token-bucket rate limiter, and an HTTP GET
// helper with sane defaults.
package infra

import (
	"context"
	"sync"
	"time"
)

// --- In-memory cache ---

type cacheEntry struct {
	value     any
	expiresAt time.Time
}

// Cache is a thread-safe in-memory cache with per-entry TTL.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

// NewCache creates a cache with the given default TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

// Get returns the cached value, or false if absent or expired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.value, true
}

// Set stores a value with the default TTL.
func (c *Cache) Set(key string, value any) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores a value with a custom TTL.
func (c *Cache) SetWithTTL(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{value: value, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
}

// Flush drops all entries.
func (c *Cache) Flush() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// --- Rate limiter ---

// RateLimiter is a token bucket allowing maxTokens requests per window.
type RateLimiter struct {
	mu         sync.Mutex
	tokens     int
	maxTokens  int
	window     time.Duration
	lastRefill time.Time
}

// NewRateLimiter creates a limiter that allows maxTokens requests per
// window duration.
func NewRateLimiter(maxTokens int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		window:     window,
		lastRefill: time.Now(),
	}
}

// Wait blocks until a token is available or the context is cancelled.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		rl.mu.Lock()
		rl.refill()
		if rl.tokens > 0 {
			rl.tokens--
			rl.mu.Unlock()
			return nil
		}
		rl.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// refill adds tokens for elapsed full windows. Caller holds mu.
func (rl *RateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(rl.lastRefill)
	if elapsed >= rl.window {
		periods := int(elapsed / rl.window)
		rl.tokens += periods * rl.maxTokens
		if rl.tokens > rl.maxTokens {
			rl.tokens = rl.maxTokens
		}
		rl.lastRefill = rl.lastRefill.Add(time.Duration(periods) * rl.window)
	}
}
