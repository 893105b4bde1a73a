package cache

import (
	"context"
	"strconv"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "pitchside:"
	yieldsKey = keyPrefix + "yields"
)

// releaseScript deletes a lock only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisCache keeps coordination state shared between service instances:
// cadence locks, rotation cursors and per-league yield history.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis cache connection
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &RedisCache{
		client: client,
	}, nil
}

// Close closes the Redis connection
func (rc *RedisCache) Close() error {
	return rc.client.Close()
}

// Client returns the underlying Redis client
func (rc *RedisCache) Client() *redis.Client {
	return rc.client
}

// HealthCheck pings Redis to verify connection
func (rc *RedisCache) HealthCheck(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

// TryLock takes the named lock for at most ttl. ok is false when another
// holder has it. release is safe to call once the lock expired.
func (rc *RedisCache) TryLock(ctx context.Context, name string, ttl time.Duration) (release func(), ok bool, err error) {
	key := keyPrefix + "lock:" + name
	token := uuid.NewString()

	ok, err = rc.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, crerr.Wrapf(err, "lock %s", name)
	}
	if !ok {
		return nil, false, nil
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		releaseScript.Run(ctx, rc.client, []string{key}, token)
	}, true, nil
}

// Advance adds by to the counter under key and returns the new value.
func (rc *RedisCache) Advance(ctx context.Context, key string, by int) (int64, error) {
	n, err := rc.client.IncrBy(ctx, keyPrefix+"cursor:"+key, int64(by)).Result()
	if err != nil {
		return 0, crerr.Wrapf(err, "advance cursor %s", key)
	}
	return n, nil
}

// LastYield returns the candidate count of the league's last fetched sync.
func (rc *RedisCache) LastYield(ctx context.Context, league string) (int, bool, error) {
	v, err := rc.client.HGet(ctx, yieldsKey, league).Result()
	if crerr.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, crerr.Wrapf(err, "yield of %s", league)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false, crerr.Wrapf(err, "yield of %s", league)
	}
	return n, true, nil
}

// RecordYield stores the candidate count of a fetched sync.
func (rc *RedisCache) RecordYield(ctx context.Context, league string, n int) error {
	return rc.client.HSet(ctx, yieldsKey, league, n).Err()
}

// Yields returns the whole yield history, for status reporting.
func (rc *RedisCache) Yields(ctx context.Context) (map[string]int, error) {
	raw, err := rc.client.HGetAll(ctx, yieldsKey).Result()
	if err != nil {
		return nil, crerr.Wrap(err, "yield history")
	}
	out := make(map[string]int, len(raw))
	for league, v := range raw {
		if n, err := strconv.Atoi(v); err == nil {
			out[league] = n
		}
	}
	return out, nil
}
