package media

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cooldown throttles repair attempts per message. TryAcquire returns true
// when the caller may attempt an upstream fetch; a second call for the same
// message within the window returns false. This is throttling state, not a
// correctness lock: deployments with multiple instances share it via redis.
type Cooldown interface {
	TryAcquire(ctx context.Context, messageID string) (bool, error)
}

// RedisCooldown backs the throttle with a shared redis SET NX + TTL.
type RedisCooldown struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCooldown(rdb *redis.Client, ttl time.Duration) *RedisCooldown {
	return &RedisCooldown{rdb: rdb, ttl: ttl}
}

func (c *RedisCooldown) TryAcquire(ctx context.Context, messageID string) (bool, error) {
	return c.rdb.SetNX(ctx, "media:repair:"+messageID, 1, c.ttl).Result()
}

// MemoryCooldown is a process-local fallback used when no redis address is
// configured, and in tests. The entry set is capped; acquiring past the cap
// sweeps expired entries first and refuses when the set is still full, so it
// cannot grow without bound.
type MemoryCooldown struct {
	ttl time.Duration
	max int

	mu      sync.Mutex
	entries map[string]time.Time
}

const defaultMemoryCooldownCap = 10000

func NewMemoryCooldown(ttl time.Duration) *MemoryCooldown {
	return &MemoryCooldown{
		ttl:     ttl,
		max:     defaultMemoryCooldownCap,
		entries: make(map[string]time.Time),
	}
}

func (c *MemoryCooldown) TryAcquire(_ context.Context, messageID string) (bool, error) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if expiry, ok := c.entries[messageID]; ok && now.Before(expiry) {
		return false, nil
	}

	if len(c.entries) >= c.max {
		for id, expiry := range c.entries {
			if now.After(expiry) {
				delete(c.entries, id)
			}
		}
		if len(c.entries) >= c.max {
			return false, nil
		}
	}

	c.entries[messageID] = now.Add(c.ttl)
	return true, nil
}
