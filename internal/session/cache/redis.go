// Package cache keeps authenticated session lookups in Redis so the auth
// interceptor does not hit Postgres on every call.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix       = "session:"
	tombstonePrefix = "session-revoked:"
	defaultTTL      = 5 * time.Minute
)

// setUnlessRevoked writes KEYS[1] only while no tombstone exists at KEYS[2].
// Returns 1 when written and 0 when the key hash was revoked.
var setUnlessRevoked = redis.NewScript(`
if redis.call("EXISTS", KEYS[2]) == 1 then
	return 0
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
return 1
`)

// Entry is the cached view of a session.
type Entry struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
}

type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCache returns a cache whose entries and revocation tombstones live for ttl.
func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached entry for keyHash. ok is false on a miss.
func (c *RedisCache) Get(ctx context.Context, keyHash string) (Entry, bool, error) {
	raw, err := c.rdb.Get(ctx, keyPrefix+keyHash).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

// Set caches e for keyHash. A key hash revoked within the last ttl is not
// cached again; Set then returns nil without writing.
func (c *RedisCache) Set(ctx context.Context, keyHash string, e Entry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	keys := []string{keyPrefix + keyHash, tombstonePrefix + keyHash}
	return setUnlessRevoked.Run(ctx, c.rdb, keys, b, c.ttl.Milliseconds()).Err()
}

// Delete evicts the given key hashes and leaves a tombstone for each so a
// lookup that read the session before the revoke cannot cache it again.
// Missing keys are ignored.
func (c *RedisCache) Delete(ctx context.Context, keyHashes ...string) error {
	if len(keyHashes) == 0 {
		return nil
	}
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		keys := make([]string, len(keyHashes))
		for i, h := range keyHashes {
			keys[i] = keyPrefix + h
			pipe.Set(ctx, tombstonePrefix+h, 1, c.ttl)
		}
		pipe.Del(ctx, keys...)
		return nil
	})
	return err
}

// Ping reports whether Redis is reachable. Used by the health check.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
