// Package repo – per-user preferences
//
// Category and language selections are single expiring (category) or
// persistent (language) string keys. Entities spring into existence on
// first write; reads of absent keys return ErrNotFound and the services
// layer applies its defaults.
package repo

import (
	"context"
	"strconv"
	"time"
)

// SaveCategory stores the user's selected category id with the category
// retention TTL.
func SaveCategory(ctx context.Context, kv KV, prefix string, userID int64, categoryID int, ttl time.Duration) error {
	return kv.SetEx(ctx, categoryKey(prefix, userID), strconv.Itoa(categoryID), ttl)
}

// CategoryID returns the user's selected category id, or ErrNotFound.
func CategoryID(ctx context.Context, kv KV, prefix string, userID int64) (int, error) {
	raw, err := kv.Get(ctx, categoryKey(prefix, userID))
	if err != nil {
		return 0, err
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, ErrNotFound
	}
	return id, nil
}

// SaveLanguage stores the user's selected language code. Language choices
// do not expire.
func SaveLanguage(ctx context.Context, kv KV, prefix string, userID int64, code string) error {
	return kv.SetEx(ctx, languageKey(prefix, userID), code, 0)
}

// LanguageCode returns the user's stored language code, or ErrNotFound.
func LanguageCode(ctx context.Context, kv KV, prefix string, userID int64) (string, error) {
	return kv.Get(ctx, languageKey(prefix, userID))
}
