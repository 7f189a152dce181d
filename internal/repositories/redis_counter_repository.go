package repositories

import (
	"context"
	"fmt"

	"github.com/anonto42/dank-memes/backend/internal/cache"
	"github.com/redis/go-redis/v9"
)

// thresholdScript increments KEYS[1] and resets it to zero once it reaches ARGV[1].
// It returns the stored value, so zero means the threshold fired.
var thresholdScript = redis.NewScript(`
local v = redis.call('INCR', KEYS[1])
if v >= tonumber(ARGV[1]) then
	redis.call('SET', KEYS[1], 0)
	return 0
end
return v
`)

// RedisCounterRepository implements CounterRepository with INCR
type RedisCounterRepository struct {
	redis  *cache.RedisClient
	prefix string
}

// NewRedisCounterRepository creates counters under prefix (default "metadata:")
func NewRedisCounterRepository(rc *cache.RedisClient, prefix string) *RedisCounterRepository {
	if prefix == "" {
		prefix = "metadata:"
	}
	return &RedisCounterRepository{redis: rc, prefix: prefix}
}

// Increment adds one to the counter
func (r *RedisCounterRepository) Increment(ctx context.Context, key string) (int64, error) {
	v, err := r.redis.Incr(ctx, r.prefix+key)
	if err != nil {
		return 0, fmt.Errorf("increment %s: %w", key, err)
	}
	return v, nil
}

// IncrementWithThreshold runs the increment-or-reset script atomically on the server
func (r *RedisCounterRepository) IncrementWithThreshold(ctx context.Context, key string, threshold int64) (int64, bool, error) {
	v, err := r.redis.RunScript(ctx, thresholdScript, []string{r.prefix + key}, threshold)
	if err != nil {
		return 0, false, fmt.Errorf("increment %s: %w", key, err)
	}
	return v, v == 0, nil
}
