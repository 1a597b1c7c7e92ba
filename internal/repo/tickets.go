// Package repo – ticket record persistence
//
// A ticket record is reachable two ways: keyed by the relayed message id
// (long retention TTL, read when an admin reply needs to update the
// ticket) and as the "most recent ticket for this conversation" (short
// grouping-window TTL, read to decide whether a new user message reuses
// the existing ticket or opens a fresh one).
package repo

import (
	"context"
	"time"

	"github.com/tbourn/go-feedback-bot/internal/domain"
)

// SaveTicketForRelay persists the ticket record keyed by the relayed
// message id. Called both when a relay is first bound to its ticket and
// after every tag mutation, so repeated replies see current state.
func SaveTicketForRelay(ctx context.Context, kv KV, prefix string, relayedMsgID int, t *domain.Ticket, ttl time.Duration) error {
	raw, err := t.Encode()
	if err != nil {
		return err
	}
	return kv.SetEx(ctx, ticketForRelayKey(prefix, relayedMsgID), raw, ttl)
}

// TicketForRelay loads the ticket bound to relayedMsgID. Both a missing
// key and an undecodable record yield ErrNotFound: a corrupt ticket entry
// only ever causes the correlated ticket update to be skipped.
func TicketForRelay(ctx context.Context, kv KV, prefix string, relayedMsgID int) (*domain.Ticket, error) {
	raw, err := kv.Get(ctx, ticketForRelayKey(prefix, relayedMsgID))
	if err != nil {
		return nil, err
	}
	t, err := domain.DecodeTicket(raw)
	if err != nil {
		return nil, ErrNotFound
	}
	return t, nil
}

// SaveRecentTicket records t as the conversation's current ticket for the
// duration of the grouping window.
func SaveRecentTicket(ctx context.Context, kv KV, prefix string, userID int64, t *domain.Ticket, ttl time.Duration) error {
	raw, err := t.Encode()
	if err != nil {
		return err
	}
	return kv.SetEx(ctx, recentTicketKey(prefix, userID), raw, ttl)
}

// RecentTicket returns the conversation's current ticket, or ErrNotFound
// when none exists or the grouping window has lapsed.
func RecentTicket(ctx context.Context, kv KV, prefix string, userID int64) (*domain.Ticket, error) {
	raw, err := kv.Get(ctx, recentTicketKey(prefix, userID))
	if err != nil {
		return nil, err
	}
	t, err := domain.DecodeTicket(raw)
	if err != nil {
		return nil, ErrNotFound
	}
	return t, nil
}
