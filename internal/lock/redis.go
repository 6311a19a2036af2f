package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock key only when its value still equals
// the presented owner token.  GET and DEL run as one script, so a
// release that lost its lock to expiry cannot delete the key a newer
// holder has since written.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// RedisCoordinator implements Coordinator on a shared Redis instance,
// making locks visible to every process of the service.  Acquire maps
// to SET NX PX and Release to the compare-and-delete script above.
// Key expiry is handled natively by Redis, so this coordinator does
// not implement the Sweeper backstop.
type RedisCoordinator struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisCoordinator returns a coordinator using the given client.
// Keys are namespaced under the prefix ("lock" when empty).
func NewRedisCoordinator(rdb *redis.Client, prefix string) *RedisCoordinator {
	if prefix == "" {
		prefix = "lock"
	}
	return &RedisCoordinator{rdb: rdb, prefix: prefix}
}

func (c *RedisCoordinator) name(key string) string { return c.prefix + ":" + key }

// Acquire issues SET key owner NX PX ttl.  The owner token is a fresh
// UUID per attempt, never the requester's identity.
func (c *RedisCoordinator) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	owner := uuid.NewString()
	ok, err := c.rdb.SetNX(ctx, c.name(key), owner, ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrLockHeld
	}
	return owner, nil
}

// Release runs the compare-and-delete script.  A zero result means
// the key was absent or owned by someone else.
func (c *RedisCoordinator) Release(ctx context.Context, key, owner string) error {
	n, err := releaseScript.Run(ctx, c.rdb, []string{c.name(key)}, owner).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotLockOwner
	}
	return nil
}

// IsLocked checks key existence.  Redis drops expired keys itself, so
// existence implies liveness.
func (c *RedisCoordinator) IsLocked(ctx context.Context, key string) (bool, error) {
	n, err := c.rdb.Exists(ctx, c.name(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// TTLRemaining returns the remaining TTL, or nil when the key is
// absent or has no expiry set.
func (c *RedisCoordinator) TTLRemaining(ctx context.Context, key string) (*time.Duration, error) {
	d, err := c.rdb.PTTL(ctx, c.name(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	// PTTL returns -2 for a missing key and -1 for a key without expiry.
	if d < 0 {
		return nil, nil
	}
	return &d, nil
}
