// Package dedupe records which (recipient, event) notifications were already
// produced so redelivered trigger events do not notify anyone twice.
package dedupe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/anonto42/dank-memes/backend/internal/cache"
)

// Deduper claims idempotency keys.
type Deduper interface {
	// Claim returns true the first time key is seen, false afterwards.
	Claim(ctx context.Context, key string) (bool, error)
	// Release forgets key so a later attempt can claim it again.
	Release(ctx context.Context, key string) error
}

// RedisDeduper stores keys with SET NX and a TTL.
type RedisDeduper struct {
	redis  *cache.RedisClient
	ttl    time.Duration
	prefix string
}

// NewRedisDeduper creates a Redis-backed Deduper. Keys expire after ttl.
func NewRedisDeduper(rc *cache.RedisClient, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{redis: rc, ttl: ttl, prefix: "dedupe:"}
}

func (d *RedisDeduper) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := d.redis.SetNX(ctx, d.prefix+key, time.Now().UnixMilli(), d.ttl)
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return ok, nil
}

func (d *RedisDeduper) Release(ctx context.Context, key string) error {
	return d.redis.Del(ctx, d.prefix+key)
}

// MemoryDeduper keeps claimed keys in process memory. Entries expire after ttl
// (zero keeps them forever) and are evicted by a sweep that runs at most once
// per ttl, on Claim.
type MemoryDeduper struct {
	mu        sync.Mutex
	ttl       time.Duration
	keys      map[string]time.Time
	now       func() time.Time
	lastSweep time.Time
}

// NewMemoryDeduper creates an in-process Deduper.
func NewMemoryDeduper(ttl time.Duration) *MemoryDeduper {
	return &MemoryDeduper{ttl: ttl, keys: make(map[string]time.Time), now: time.Now}
}

func (d *MemoryDeduper) Claim(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.sweep(now)
	if at, ok := d.keys[key]; ok && (d.ttl == 0 || now.Sub(at) < d.ttl) {
		return false, nil
	}
	d.keys[key] = now
	return true, nil
}

// sweep drops expired keys. Callers hold d.mu.
func (d *MemoryDeduper) sweep(now time.Time) {
	if d.ttl == 0 {
		return
	}
	if d.lastSweep.IsZero() {
		d.lastSweep = now
		return
	}
	if now.Sub(d.lastSweep) < d.ttl {
		return
	}
	for key, at := range d.keys {
		if now.Sub(at) >= d.ttl {
			delete(d.keys, key)
		}
	}
	d.lastSweep = now
}

// Len returns the number of keys currently held.
func (d *MemoryDeduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.keys)
}

func (d *MemoryDeduper) Release(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.keys, key)
	return nil
}
