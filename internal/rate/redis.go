package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ylr:"

// Redis is a [Limiter] backed by shared Redis counters, for deployments that
// run several authentication nodes behind one login surface. Windowing uses
// the INCR + first-hit EXPIRE idiom, so increments within a window are atomic
// even across nodes.
type Redis struct {
	redis  redis.UniversalClient
	window time.Duration
}

// NewRedis creates a [Redis] limiter on the given client and window.
func NewRedis(client redis.UniversalClient, window time.Duration) *Redis {
	return &Redis{
		redis:  client,
		window: window,
	}
}

// Check implements [Limiter].
func (r *Redis) Check(ctx context.Context, identifier string) (int, error) {
	count, err := r.redis.Get(ctx, redisKeyPrefix+identifier).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}

	return int(count), nil
}

// Increment implements [Limiter].
func (r *Redis) Increment(ctx context.Context, identifier string) (int, error) {
	key := redisKeyPrefix + identifier

	count, err := r.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := r.redis.Expire(ctx, key, r.window).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	return int(count), nil
}
