// Package repo – rate-limit counters
//
// Two expiring counters back the anti-spam policy: the windowed message
// counter (short TTL, armed on the first message of a window) and the
// violation counter (long TTL, armed on the first violation; its remaining
// lifetime is the soft-ban window).
package repo

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// IncrMessageCounter bumps the user's windowed message counter, arming the
// window TTL only when this increment opened a fresh window, and returns
// the post-increment count.
func IncrMessageCounter(ctx context.Context, kv KV, prefix string, userID int64, window time.Duration) (int64, error) {
	return kv.IncrEx(ctx, messageCounterKey(prefix, userID), window)
}

// IncrViolations bumps the user's violation counter, arming the soft-ban
// TTL only on the first violation, and returns the post-increment count.
func IncrViolations(ctx context.Context, kv KV, prefix string, userID int64, softBan time.Duration) (int64, error) {
	return kv.IncrEx(ctx, violationsKey(prefix, userID), softBan)
}

// Violations reads the user's current violation count; 0 when the counter
// does not exist (expired or never created).
func Violations(ctx context.Context, kv KV, prefix string, userID int64) (int64, error) {
	raw, err := kv.Get(ctx, violationsKey(prefix, userID))
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, nil
	}
	return n, nil
}
