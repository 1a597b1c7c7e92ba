// Package repo – BanStore
//
// This file implements the banned-conversations store. Membership checks
// sit on the relay hot path (every inbound user message), so they are
// answered from an in-memory set and never touch Redis. The durable source
// of truth is a store-native set: adds are idempotent and commutative, so
// concurrent writers from several processes converge without coordination,
// and the fail-safe full resync is always a correct recovery step.
package repo

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
)

// BanStore tracks banned conversation ids. The read path (IsBanned) is an
// O(1) in-memory lookup; the write path (Ban) persists first and mutates
// the cache only after the durable write succeeded.
type BanStore struct {
	kv     KV
	prefix string
	log    zerolog.Logger

	mu     sync.RWMutex
	banned map[int64]struct{}
}

// NewBanStore loads the durable ban set into memory and returns the store.
// A load failure is returned to the caller: with no durable snapshot there
// is nothing safe to serve membership checks from.
func NewBanStore(ctx context.Context, kv KV, prefix string, log zerolog.Logger) (*BanStore, error) {
	s := &BanStore{
		kv:     kv,
		prefix: prefix,
		log:    log.With().Str("component", "ban_store").Logger(),
	}
	if err := s.resync(ctx); err != nil {
		return nil, fmt.Errorf("ban store initial load: %w", err)
	}
	return s, nil
}

// Ban durably records chatID as banned, then updates the in-memory set.
// If the durable write fails, the local delta is discarded and the whole
// cache is rebuilt from the store instead; only a failed rebuild is
// reported, since then there is no consistent state to fall back to.
func (s *BanStore) Ban(ctx context.Context, chatID int64) error {
	if err := s.kv.SAdd(ctx, bannedKey(s.prefix), strconv.FormatInt(chatID, 10)); err != nil {
		s.log.Warn().Err(err).Int64("chat_id", chatID).Msg("durable ban write failed, resyncing cache")
		if rerr := s.resync(ctx); rerr != nil {
			return fmt.Errorf("ban resync after write failure: %w", rerr)
		}
		return nil
	}
	s.mu.Lock()
	s.banned[chatID] = struct{}{}
	s.mu.Unlock()
	return nil
}

// IsBanned reports whether chatID is banned. Pure in-memory lookup.
func (s *BanStore) IsBanned(chatID int64) bool {
	s.mu.RLock()
	_, ok := s.banned[chatID]
	s.mu.RUnlock()
	return ok
}

// Banned returns a snapshot of all banned conversation ids, in no
// particular order. Used by the ops API.
func (s *BanStore) Banned() []int64 {
	s.mu.RLock()
	out := make([]int64, 0, len(s.banned))
	for id := range s.banned {
		out = append(out, id)
	}
	s.mu.RUnlock()
	return out
}

// resync replaces the in-memory set with the durable one. Entries that
// fail to parse are skipped with a warning rather than poisoning the load.
func (s *BanStore) resync(ctx context.Context) error {
	members, err := s.kv.SMembers(ctx, bannedKey(s.prefix))
	if err != nil {
		return err
	}
	fresh := make(map[int64]struct{}, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			s.log.Warn().Str("member", m).Msg("skipping unparsable ban entry")
			continue
		}
		fresh[id] = struct{}{}
	}
	s.mu.Lock()
	s.banned = fresh
	s.mu.Unlock()
	return nil
}
