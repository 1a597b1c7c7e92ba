// Package repo – message routing index
//
// Three records tie an admin-chat copy of a message back to where it came
// from:
//
//   - the reverse mapping relayed-message-id → origin chat id, read when an
//     admin replies to a forwarded message;
//   - the per-conversation "related messages" list (relays and tickets),
//     bulk-deleted when the user is banned;
//   - the per-conversation message log (relays and admin replies), replayed
//     on the /log command.
//
// All three share the retention TTL. Ordering is insertion order and no
// dedup is performed; ids are stored as decimal strings.
package repo

import (
	"context"
	"strconv"
	"time"
)

// RecordRelay writes all three routing records for a freshly relayed
// message. Callers that need only one of the writes (ticket posting, log
// replay) use the individual functions below.
func RecordRelay(ctx context.Context, kv KV, prefix string, originChat int64, relayedMsgID int, ttl time.Duration) error {
	if err := SaveOrigin(ctx, kv, prefix, relayedMsgID, originChat, ttl); err != nil {
		return err
	}
	if err := AppendRelated(ctx, kv, prefix, originChat, relayedMsgID, ttl); err != nil {
		return err
	}
	return AppendLog(ctx, kv, prefix, originChat, relayedMsgID, ttl)
}

// SaveOrigin stores the reverse mapping for one relayed message. The
// mapping is written once and never mutated.
func SaveOrigin(ctx context.Context, kv KV, prefix string, relayedMsgID int, originChat int64, ttl time.Duration) error {
	return kv.SetEx(ctx, originChatKey(prefix, relayedMsgID), strconv.FormatInt(originChat, 10), ttl)
}

// ResolveOrigin returns the origin chat id recorded for relayedMsgID, or
// ErrNotFound for an unrecorded (or expired) id.
func ResolveOrigin(ctx context.Context, kv KV, prefix string, relayedMsgID int) (int64, error) {
	raw, err := kv.Get(ctx, originChatKey(prefix, relayedMsgID))
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, ErrNotFound
	}
	return id, nil
}

// AppendRelated appends msgID to the conversation's related-messages list.
func AppendRelated(ctx context.Context, kv KV, prefix string, chatID int64, msgID int, ttl time.Duration) error {
	return kv.RPushEx(ctx, relatedKey(prefix, chatID), strconv.Itoa(msgID), ttl)
}

// AppendLog appends msgID to the conversation's message log.
func AppendLog(ctx context.Context, kv KV, prefix string, chatID int64, msgID int, ttl time.Duration) error {
	return kv.RPushEx(ctx, messageLogKey(prefix, chatID), strconv.Itoa(msgID), ttl)
}

// ListRelated returns every admin-chat message id tied to the
// conversation, in insertion order.
func ListRelated(ctx context.Context, kv KV, prefix string, chatID int64) ([]int, error) {
	return listInts(ctx, kv, relatedKey(prefix, chatID))
}

// ListLog returns the conversation's full message log, in insertion order.
func ListLog(ctx context.Context, kv KV, prefix string, chatID int64) ([]int, error) {
	return listInts(ctx, kv, messageLogKey(prefix, chatID))
}

func listInts(ctx context.Context, kv KV, key string) ([]int, error) {
	raw, err := kv.LRange(ctx, key)
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, len(raw))
	for _, v := range raw {
		id, err := strconv.Atoi(v)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}
