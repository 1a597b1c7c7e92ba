// Package repo implements the persistence layer of the feedback relay on
// top of a Redis-compatible key-value store. It follows the "thin
// repository" approach: no business logic, only key construction and
// single-key store operations.
//
// All functions are context-aware and accept a KV handle plus the
// per-deployment key prefix, making them safe to share between several bot
// instances on one Redis as long as each uses a distinct prefix.
//
// Error semantics:
//   - When a key is absent, functions return ErrNotFound.
//   - On store errors (connectivity, serialization), the underlying error
//     is propagated wrapped with the failing operation.
package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a requested record does not exist. It is
// checked with errors.Is across the service layer and the ops handlers.
var ErrNotFound = errors.New("record not found")

// KV is the capability contract the relay needs from its backing store.
// The production implementation is RedisKV; tests run it against miniredis.
type KV interface {
	// Get returns the string value at key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// SetEx stores value at key with the given expiry.
	SetEx(ctx context.Context, key, value string, ttl time.Duration) error
	// IncrEx atomically increments the counter at key and arms the expiry
	// only when the increment created the key. Two concurrent first
	// increments therefore cannot both re-arm the window.
	IncrEx(ctx context.Context, key string, ttl time.Duration) (int64, error)
	// RPushEx appends value to the list at key and refreshes its expiry.
	RPushEx(ctx context.Context, key, value string, ttl time.Duration) error
	// LRange returns the whole list at key, oldest first. A missing key
	// yields an empty slice, not an error.
	LRange(ctx context.Context, key string) ([]string, error)
	// SAdd adds member to the set at key.
	SAdd(ctx context.Context, key, member string) error
	// SMembers returns all members of the set at key. A missing key yields
	// an empty slice.
	SMembers(ctx context.Context, key string) ([]string, error)
}

// incrExScript increments a counter and arms its expiry atomically on the
// first increment of a fresh window.
var incrExScript = redis.NewScript(`
local v = redis.call('INCR', KEYS[1])
if v == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return v
`)

// RedisKV adapts a go-redis client to the KV contract.
type RedisKV struct {
	Client *redis.Client
}

// NewRedisKV wraps an existing client. The caller owns the client's
// lifecycle (cmd/bot closes it on shutdown).
func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{Client: client}
}

// Get implements KV.
func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	v, err := r.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return v, nil
}

// SetEx implements KV.
func (r *RedisKV) SetEx(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := r.Client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// IncrEx implements KV via a small Lua script so that INCR and the
// conditional PEXPIRE execute as one step on the server.
func (r *RedisKV) IncrEx(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	v, err := incrExScript.Run(ctx, r.Client, []string{key}, ttl.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", key, err)
	}
	return v, nil
}

// RPushEx implements KV. The push and the expiry refresh are pipelined;
// they are not atomic, which is acceptable because the expiry is a
// retention bound rather than a correctness invariant.
func (r *RedisKV) RPushEx(ctx context.Context, key, value string, ttl time.Duration) error {
	pipe := r.Client.Pipeline()
	pipe.RPush(ctx, key, value)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rpush %s: %w", key, err)
	}
	return nil
}

// LRange implements KV.
func (r *RedisKV) LRange(ctx context.Context, key string) ([]string, error) {
	vals, err := r.Client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", key, err)
	}
	return vals, nil
}

// SAdd implements KV.
func (r *RedisKV) SAdd(ctx context.Context, key, member string) error {
	if err := r.Client.SAdd(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("sadd %s: %w", key, err)
	}
	return nil
}

// SMembers implements KV.
func (r *RedisKV) SMembers(ctx context.Context, key string) ([]string, error) {
	vals, err := r.Client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("smembers %s: %w", key, err)
	}
	return vals, nil
}
