// Package services – Relay
//
// The relay orchestrator owns both directions of the anonymized
// conversation. Inbound user messages run the admission pipeline (ban
// check, rate limiting, category requirement, ticket bookkeeping) before
// being forwarded into the admin chat; inbound admin replies are resolved
// back to their origin conversation and either dispatched as commands
// (/ban, /log) or copied to the user.
//
// Failure containment: nothing that happens while handling one update may
// take down the update loop. Transport errors are logged and swallowed
// (except a failed initial forward, which aborts that message's
// bookkeeping), store errors degrade to "not found" or a silent drop, and
// the admin-reply path additionally traps panics and reports them to the
// operator.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-feedback-bot/internal/domain"
	"github.com/tbourn/go-feedback-bot/internal/repo"
)

// Admin-chat commands recognized in replies to relayed messages.
const (
	BanCommand = "/ban"
	LogCommand = "/log"
)

// Relay is the use-case layer tying stores, policy, and transport
// together. Construct it with a struct literal and injected dependencies;
// Tickets, Categories, and Languages are optional (nil disables the
// corresponding behavior).
type Relay struct {
	KV        repo.KV
	Prefix    string
	Transport Transport

	Bans       *repo.BanStore
	Spam       *AntiSpam
	Tickets    *TicketTracker
	Categories *Categories
	Languages  *Languages

	// AdminChatID is the shared chat user messages are forwarded into.
	AdminChatID int64
	// ForceCategorySelection rejects user messages until a category is
	// chosen. Only meaningful with both Tickets and Categories set.
	ForceCategorySelection bool
	// LogToAdminChat replays /log output into the admin chat (replayed
	// copies stay replyable); false sends it to the operator's own chat.
	LogToAdminChat bool
	// Retention is the shared TTL of routing and log records.
	Retention time.Duration

	// Msgs holds the default notification texts; MsgsByLang overrides
	// them per resolved user language.
	Msgs       Messages
	MsgsByLang map[string]Messages

	Log zerolog.Logger
}

func (r *Relay) tracer() trace.Tracer {
	return otel.Tracer("github.com/tbourn/go-feedback-bot/internal/services")
}

// messagesFor picks the notification set for the sending user.
func (r *Relay) messagesFor(ctx context.Context, userID int64, reportedCode string) Messages {
	if r.Languages == nil || r.MsgsByLang == nil {
		return r.Msgs
	}
	if m, ok := r.MsgsByLang[r.Languages.Resolve(ctx, userID, reportedCode)]; ok {
		return m
	}
	return r.Msgs
}

// HandleUserMessage runs the admission pipeline for one inbound private
// message. It never returns an error to the update loop; every failure
// mode resolves to a logged drop.
func (r *Relay) HandleUserMessage(ctx context.Context, msg domain.Incoming) {
	ctx, span := r.tracer().Start(ctx, "relay.user_message",
		trace.WithAttributes(attribute.Int64("chat_id", msg.ChatID)))
	defer span.End()

	if r.Bans.IsBanned(msg.UserID) {
		userMessages.WithLabelValues(outcomeBanned).Inc()
		return
	}

	verdict, err := r.Spam.Admit(ctx, msg.UserID)
	if err != nil {
		r.Log.Warn().Err(err).Int64("user_id", msg.UserID).Msg("rate limiter store error, dropping message")
		userMessages.WithLabelValues(outcomeStoreError).Inc()
		return
	}
	switch verdict {
	case domain.RejectSilently:
		userMessages.WithLabelValues(outcomeSoftBanned).Inc()
		return
	case domain.AdmitWithWarning:
		msgs := r.messagesFor(ctx, msg.UserID, msg.LanguageCode)
		if _, err := r.Transport.Reply(ctx, msg.ChatID, msg.ID, msgs.Throttling(r.Spam.Policy.ThrottleAfter, r.Spam.Policy.ThrottleWindow)); err != nil {
			r.Log.Warn().Err(err).Int64("chat_id", msg.ChatID).Msg("throttling notice failed")
		}
		userMessages.WithLabelValues(outcomeThrottled).Inc()
		return
	}

	msgs := r.messagesFor(ctx, msg.UserID, msg.LanguageCode)

	var ticket *domain.Ticket
	if r.Tickets != nil {
		categoryTag := ""
		if r.Categories != nil {
			cat, _ := r.Categories.Selected(ctx, msg.UserID)
			if cat == nil {
				if r.ForceCategorySelection {
					opts := r.Categories.Options(ctx, msg.UserID)
					if _, err := r.Transport.SendKeyboard(ctx, msg.ChatID, msg.ID, msgs.SelectCategory, opts); err != nil {
						r.Log.Warn().Err(err).Int64("chat_id", msg.ChatID).Msg("category prompt failed")
					}
					userMessages.WithLabelValues(outcomeNeedsCategory).Inc()
					return
				}
			} else {
				categoryTag = cat.Tag()
			}
		}
		t, _, err := r.Tickets.GetOrCreate(ctx, msg.UserID, categoryTag)
		if err != nil {
			r.Log.Warn().Err(err).Int64("user_id", msg.UserID).Msg("ticket creation failed, relaying without one")
		} else {
			ticket = t
		}
	}

	fwdID, err := r.Transport.Forward(ctx, r.AdminChatID, msg.ChatID, msg.ID)
	if err != nil {
		// No mapping, no ack: the user can resend.
		r.Log.Error().Err(err).Int64("chat_id", msg.ChatID).Int("msg_id", msg.ID).Msg("forward to admin chat failed")
		userMessages.WithLabelValues(outcomeForwardFailed).Inc()
		return
	}

	if err := repo.RecordRelay(ctx, r.KV, r.Prefix, msg.ChatID, fwdID, r.Retention); err != nil {
		r.Log.Warn().Err(err).Int("fwd_id", fwdID).Msg("recording relay mapping failed")
	}
	if ticket != nil {
		if err := r.Tickets.BindToRelay(ctx, fwdID, ticket); err != nil {
			r.Log.Warn().Err(err).Int("fwd_id", fwdID).Msg("binding ticket to relay failed")
		}
	}
	if msgs.ForwardedOK != "" {
		if _, err := r.Transport.Reply(ctx, msg.ChatID, msg.ID, msgs.ForwardedOK); err != nil {
			r.Log.Warn().Err(err).Int64("chat_id", msg.ChatID).Msg("forward ack failed")
		}
	}
	userMessages.WithLabelValues(outcomeRelayed).Inc()
}

// HandleAdminReply processes one admin-chat message that replies to a
// previously relayed message. All failures, including panics, are trapped,
// reported back to the operator, and logged; the update loop always
// survives.
func (r *Relay) HandleAdminReply(ctx context.Context, msg domain.Incoming) {
	ctx, span := r.tracer().Start(ctx, "relay.admin_reply",
		trace.WithAttributes(attribute.Int("reply_to", msg.ReplyToID)))
	defer span.End()

	err := func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("panic: %v", p)
			}
		}()
		return r.handleAdminReply(ctx, msg)
	}()
	if err != nil {
		adminReplies.WithLabelValues(resultError).Inc()
		r.Log.Warn().Err(err).Int("msg_id", msg.ID).Msg("unexpected error while handling admin reply")
		if _, rerr := r.Transport.Reply(ctx, r.AdminChatID, msg.ID, r.Msgs.SomethingWrong(err)); rerr != nil {
			r.Log.Warn().Err(rerr).Msg("failure notice to operator failed")
		}
	}
}

func (r *Relay) handleAdminReply(ctx context.Context, msg domain.Incoming) error {
	origin, err := repo.ResolveOrigin(ctx, r.KV, r.Prefix, msg.ReplyToID)
	if err != nil {
		// Unrecorded reply target, or the store is unwell: either way the
		// reply cannot be routed, so it is ignored.
		adminReplies.WithLabelValues(resultIgnored).Inc()
		return nil
	}

	if !msg.Type.IsRelayable() {
		adminReplies.WithLabelValues(resultUnsupported).Inc()
		if _, err := r.Transport.Reply(ctx, r.AdminChatID, msg.ID, r.Msgs.UnsupportedType(domain.RelayableContentTypes)); err != nil {
			r.Log.Warn().Err(err).Msg("unsupported-type notice failed")
		}
		return nil
	}

	switch msg.Text {
	case BanCommand:
		return r.banOrigin(ctx, origin, msg)
	case LogCommand:
		return r.replayLog(ctx, origin, msg)
	default:
		return r.copyReplyToUser(ctx, origin, msg)
	}
}

// banOrigin bans the origin conversation and best-effort deletes every
// admin-chat message related to it, plus the command message itself.
func (r *Relay) banOrigin(ctx context.Context, origin int64, msg domain.Incoming) error {
	if err := r.Bans.Ban(ctx, origin); err != nil {
		return err
	}
	related, err := repo.ListRelated(ctx, r.KV, r.Prefix, origin)
	if err != nil {
		r.Log.Warn().Err(err).Int64("origin", origin).Msg("related list unavailable, deleting command message only")
		related = nil
	}
	for _, id := range append(related, msg.ID) {
		if err := r.Transport.Delete(ctx, r.AdminChatID, id); err != nil {
			r.Log.Debug().Err(err).Int("msg_id", id).Msg("delete on ban failed")
		}
	}
	adminReplies.WithLabelValues(resultBan).Inc()
	return nil
}

// replayLog forwards the conversation's full message log to the admin
// chat (default) or to the operator's own chat. Copies replayed into the
// admin chat get a fresh origin mapping so that replying to them works.
func (r *Relay) replayLog(ctx context.Context, origin int64, msg domain.Incoming) error {
	ids, err := repo.ListLog(ctx, r.KV, r.Prefix, origin)
	if err != nil || len(ids) == 0 {
		if _, rerr := r.Transport.Reply(ctx, r.AdminChatID, msg.ID, r.Msgs.LogUnavailable); rerr != nil {
			r.Log.Warn().Err(rerr).Msg("log-unavailable notice failed")
		}
		return nil
	}

	dest := r.AdminChatID
	if !r.LogToAdminChat {
		dest = msg.UserID
	}
	for _, id := range ids {
		copyID, err := r.Transport.Forward(ctx, dest, r.AdminChatID, id)
		if err != nil {
			r.Log.Debug().Err(err).Int("msg_id", id).Msg("log entry replay failed")
			continue
		}
		if dest == r.AdminChatID {
			if err := repo.SaveOrigin(ctx, r.KV, r.Prefix, copyID, origin, r.Retention); err != nil {
				r.Log.Warn().Err(err).Int("copy_id", copyID).Msg("recording replayed copy failed")
			}
		}
	}
	adminReplies.WithLabelValues(resultLog).Inc()
	return nil
}

// copyReplyToUser delivers the admin's reply content into the origin
// conversation, appends it to the message log, acks the operator, and
// marks the ticket answered.
func (r *Relay) copyReplyToUser(ctx context.Context, origin int64, msg domain.Incoming) error {
	if err := r.copyContent(ctx, origin, msg); err != nil {
		return err
	}
	if err := repo.AppendLog(ctx, r.KV, r.Prefix, origin, msg.ID, r.Retention); err != nil {
		r.Log.Warn().Err(err).Int("msg_id", msg.ID).Msg("appending admin reply to log failed")
	}
	if _, err := r.Transport.Reply(ctx, r.AdminChatID, msg.ID, r.Msgs.CopiedOK); err != nil {
		r.Log.Warn().Err(err).Msg("copy ack failed")
	}
	if r.Tickets != nil {
		if err := r.Tickets.MarkAnswered(ctx, msg.ReplyToID); err != nil {
			r.Log.Warn().Err(err).Int("reply_to", msg.ReplyToID).Msg("marking ticket answered failed")
		}
	}
	adminReplies.WithLabelValues(resultReplied).Inc()
	return nil
}

// copyContent sends the reply's payload to chatID according to its
// content type. The caller guarantees the type is in the allowlist.
func (r *Relay) copyContent(ctx context.Context, chatID int64, msg domain.Incoming) error {
	var err error
	switch msg.Type {
	case domain.ContentText:
		_, err = r.Transport.SendText(ctx, chatID, msg.Text)
	case domain.ContentSticker:
		_, err = r.Transport.SendSticker(ctx, chatID, msg.FileID)
	case domain.ContentDocument:
		_, err = r.Transport.SendDocument(ctx, chatID, msg.FileID, msg.Caption)
	case domain.ContentPhoto:
		_, err = r.Transport.SendPhoto(ctx, chatID, msg.FileID, msg.Caption)
	default:
		err = fmt.Errorf("content type %q cannot be copied", msg.Type)
	}
	return err
}
