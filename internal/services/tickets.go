// Package services – TicketTracker
//
// Tickets are mutable hashtag messages posted in the admin chat to label a
// burst of forwarded messages from one conversation. A ticket starts with
// the unanswered tag (plus the user's category tag, when set) and loses
// the unanswered tag when an admin replies; a ticket left with no tags is
// deleted instead of being edited to an empty message.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-feedback-bot/internal/domain"
	"github.com/tbourn/go-feedback-bot/internal/repo"
)

// DefaultUnansweredTag marks tickets whose conversation has not been
// answered yet.
const DefaultUnansweredTag = "#unanswered"

// TicketTracker maintains the admin-chat ticket messages and their
// persisted records.
type TicketTracker struct {
	KV          repo.KV
	Prefix      string
	Transport   Transport
	AdminChatID int64

	// UnansweredTag defaults to DefaultUnansweredTag when empty.
	UnansweredTag string
	// GroupWindow bounds how long a ticket keeps absorbing new messages
	// from the same conversation.
	GroupWindow time.Duration
	// Retention is the TTL of ticket records bound to relayed messages.
	Retention time.Duration

	Log zerolog.Logger
}

func (t *TicketTracker) unanswered() string {
	if t.UnansweredTag == "" {
		return DefaultUnansweredTag
	}
	return t.UnansweredTag
}

// GetOrCreate returns the conversation's current ticket, creating and
// posting a new one when there is none or when the requested category tag
// is not on the existing ticket. The returned bool reports whether a new
// ticket message was posted.
//
// A newly posted ticket is appended to the conversation's related-messages
// list (so it is cleaned up on ban) and saved as the recent ticket for the
// grouping window.
func (t *TicketTracker) GetOrCreate(ctx context.Context, userID int64, categoryTag string) (*domain.Ticket, bool, error) {
	recent, err := repo.RecentTicket(ctx, t.KV, t.Prefix, userID)
	if err == nil && (categoryTag == "" || recent.HasTag(categoryTag)) {
		return recent, false, nil
	}
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		// Store trouble reads as "no recent ticket": worst case we post a
		// redundant ticket, which an admin can live with.
		t.Log.Warn().Err(err).Int64("user_id", userID).Msg("recent ticket lookup failed")
	}

	tags := []string{t.unanswered()}
	if categoryTag != "" {
		tags = append(tags, categoryTag)
	}
	ticket := &domain.Ticket{Hashtags: tags}

	msgID, err := t.Transport.SendText(ctx, t.AdminChatID, ticket.Text())
	if err != nil {
		return nil, false, err
	}
	ticket.MessageID = msgID

	if err := repo.AppendRelated(ctx, t.KV, t.Prefix, userID, msgID, t.Retention); err != nil {
		t.Log.Warn().Err(err).Int("ticket_msg_id", msgID).Msg("recording ticket in related list failed")
	}
	if err := repo.SaveRecentTicket(ctx, t.KV, t.Prefix, userID, ticket, t.GroupWindow); err != nil {
		t.Log.Warn().Err(err).Int("ticket_msg_id", msgID).Msg("saving recent ticket failed")
	}
	return ticket, true, nil
}

// BindToRelay persists the ticket record under the relayed message id so
// that admin replies to that relay can update the ticket later.
func (t *TicketTracker) BindToRelay(ctx context.Context, relayedMsgID int, ticket *domain.Ticket) error {
	return repo.SaveTicketForRelay(ctx, t.KV, t.Prefix, relayedMsgID, ticket, t.Retention)
}

// MarkAnswered removes the unanswered tag from the ticket bound to
// relayedMsgID. With tags remaining, the admin-chat message is edited to
// the new tag text; with none, it is deleted. Transport failures (for
// example "message is not modified" when replying twice) are logged and
// swallowed; the updated tag list is persisted either way, so a repeated
// MarkAnswered on the same relay is a no-op.
func (t *TicketTracker) MarkAnswered(ctx context.Context, relayedMsgID int) error {
	ticket, err := repo.TicketForRelay(ctx, t.KV, t.Prefix, relayedMsgID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !ticket.RemoveTag(t.unanswered()) {
		return nil
	}

	if len(ticket.Hashtags) > 0 {
		if err := t.Transport.EditText(ctx, t.AdminChatID, ticket.MessageID, ticket.Text()); err != nil {
			t.Log.Info().Err(err).Int("ticket_msg_id", ticket.MessageID).Msg("ticket edit failed")
		}
	} else {
		if err := t.Transport.Delete(ctx, t.AdminChatID, ticket.MessageID); err != nil {
			t.Log.Info().Err(err).Int("ticket_msg_id", ticket.MessageID).Msg("ticket delete failed")
		}
	}
	return repo.SaveTicketForRelay(ctx, t.KV, t.Prefix, relayedMsgID, ticket, t.Retention)
}
