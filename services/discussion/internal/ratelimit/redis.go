package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// reserveScript prunes expired members, tests every bound and adds the new
// member only when all of them have room. ARGV: now, member, prune cutoff,
// ttl seconds, then (since, max) pairs.
var reserveScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', '(' .. ARGV[3])
for i = 5, #ARGV, 2 do
	local n = redis.call('ZCOUNT', KEYS[1], ARGV[i], '+inf')
	if n >= tonumber(ARGV[i + 1]) then
		return (i - 5) / 2
	end
end
redis.call('ZADD', KEYS[1], ARGV[1], ARGV[2])
redis.call('EXPIRE', KEYS[1], ARGV[4])
return -1
`)

// RedisCounter stores one sorted set per (action, user) scored by the
// action's unix millisecond timestamp. Reserve runs as a single script, so
// instances sharing one Redis never admit more than a cap between them.
type RedisCounter struct {
	client *redis.Client
	prefix string
}

func NewRedisCounter(client *redis.Client, prefix string) *RedisCounter {
	if prefix == "" {
		prefix = "discussion:ratelimit"
	}
	return &RedisCounter{client: client, prefix: prefix}
}

// NewRedisCounterFromURL parses a redis:// URL, falling back to treating it
// as a bare address.
func NewRedisCounterFromURL(url, prefix string) *RedisCounter {
	opts, err := redis.ParseURL(url)
	if err != nil {
		opts = &redis.Options{Addr: url}
	}
	return NewRedisCounter(redis.NewClient(opts), prefix)
}

func (c *RedisCounter) key(action Action, userID string) string {
	return c.prefix + ":" + string(action) + ":" + userID
}

func ms(t time.Time) string { return strconv.FormatInt(t.UnixMilli(), 10) }

func (c *RedisCounter) Reserve(ctx context.Context, action Action, userID string, at time.Time, bounds []Bound) (string, int, error) {
	member := uuid.NewString()
	args := make([]any, 0, 4+2*len(bounds))
	args = append(args, ms(at), member, ms(at.Add(-retention)), int(retention.Seconds()))
	for _, b := range bounds {
		args = append(args, ms(b.Since), b.Max)
	}
	hit, err := reserveScript.Run(ctx, c.client, []string{c.key(action, userID)}, args...).Int()
	if err != nil {
		return "", 0, err
	}
	if hit >= 0 {
		return "", hit, nil
	}
	return member, -1, nil
}

func (c *RedisCounter) Release(ctx context.Context, action Action, userID, token string) error {
	return c.client.ZRem(ctx, c.key(action, userID), token).Err()
}

func (c *RedisCounter) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCounter) Close() error {
	return c.client.Close()
}
