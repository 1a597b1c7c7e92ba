// Package telegram adapts the Telegram Bot API to the relay's transport
// interface and runs the long-polling update loop.
//
// The dispatch rules are deliberately small: private-chat messages enter
// the user pipeline, admin-chat messages that reply to something enter
// the admin pipeline, and everything else is dropped. Inline-keyboard
// callbacks carry their own routing prefix ("category:" or "lang:").
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-feedback-bot/internal/services"
	"github.com/tbourn/go-feedback-bot/internal/sysutil"
)

// Bot owns the Bot API client and pumps updates into the relay. It also
// implements services.Transport, so the relay's outbound traffic goes
// through the same client.
type Bot struct {
	api         *tgbotapi.BotAPI
	relay       *services.Relay
	adminChatID int64

	// Greeting is sent in response to /start in a private chat. Empty
	// falls back to a terse built-in line.
	Greeting string

	log zerolog.Logger
}

// New authorizes against the Bot API and returns a ready Bot.
func New(token string, relay *services.Relay, adminChatID int64, log zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram authorization: %w", err)
	}
	log.Info().Str("username", api.Self.UserName).Msg("telegram bot authorized")
	return &Bot{api: api, relay: relay, adminChatID: adminChatID, log: log}, nil
}

// Run blocks on the long-polling update loop until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	b.log.Info().Msg("update loop started")
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.log.Info().Msg("update loop stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.dispatch(ctx, update)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.Chat.ID == b.adminChatID:
		if update.Message.ReplyToMessage != nil {
			b.relay.HandleAdminReply(ctx, incomingFromMessage(update.Message))
		}
	case update.Message != nil && update.Message.Chat.IsPrivate():
		b.handlePrivate(ctx, update.Message)
	}
}

func (b *Bot) handlePrivate(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Text {
	case "/start", "/help":
		b.sendGreeting(ctx, msg)
	default:
		b.relay.HandleUserMessage(ctx, incomingFromMessage(msg))
	}
}

func (b *Bot) sendGreeting(ctx context.Context, msg *tgbotapi.Message) {
	greeting := sysutil.FirstNonEmpty(b.Greeting,
		"Send me a message and it will reach the team. Replies come back here.")
	if _, err := b.SendText(ctx, msg.Chat.ID, greeting); err != nil {
		b.log.Warn().Err(err).Int64("chat_id", msg.Chat.ID).Msg("greeting failed")
		return
	}
	userID := msg.Chat.ID
	if msg.From != nil {
		userID = msg.From.ID
	}
	if b.relay.Categories != nil && b.relay.ForceCategorySelection {
		opts := b.relay.Categories.Options(ctx, userID)
		if _, err := b.SendKeyboard(ctx, msg.Chat.ID, 0, b.relay.Msgs.SelectCategory, opts); err != nil {
			b.log.Warn().Err(err).Int64("chat_id", msg.Chat.ID).Msg("category prompt failed")
		}
	}
}

// handleCallback routes inline-keyboard presses. The callback data is
// "<prefix><value>"; unknown prefixes are answered and dropped.
func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	defer func() {
		if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
			b.log.Debug().Err(err).Msg("callback ack failed")
		}
	}()
	if cb.Message == nil || cb.From == nil {
		return
	}
	userID := cb.From.ID

	switch {
	case strings.HasPrefix(cb.Data, services.CategoryCallbackPrefix) && b.relay.Categories != nil:
		raw := strings.TrimPrefix(cb.Data, services.CategoryCallbackPrefix)
		id, err := strconv.Atoi(raw)
		if err != nil {
			b.log.Debug().Str("data", cb.Data).Msg("malformed category callback")
			return
		}
		if err := b.relay.Categories.Select(ctx, userID, id); err != nil {
			b.log.Warn().Err(err).Int64("user_id", userID).Msg("category selection failed")
			return
		}
		b.refreshKeyboard(cb, b.relay.Categories.Options(ctx, userID))

	case strings.HasPrefix(cb.Data, services.LanguageCallbackPrefix) && b.relay.Languages != nil:
		code := strings.TrimPrefix(cb.Data, services.LanguageCallbackPrefix)
		if err := b.relay.Languages.Select(ctx, userID, code); err != nil {
			b.log.Warn().Err(err).Int64("user_id", userID).Msg("language selection failed")
			return
		}
		b.refreshKeyboard(cb, b.relay.Languages.Options(ctx, userID, cb.From.LanguageCode))
	}
}

// refreshKeyboard redraws the inline keyboard under the prompt so the
// pressed option shows its selected marker.
func (b *Bot) refreshKeyboard(cb *tgbotapi.CallbackQuery, options []services.KeyboardOption) {
	edit := tgbotapi.NewEditMessageReplyMarkup(cb.Message.Chat.ID, cb.Message.MessageID, keyboardMarkup(options))
	if _, err := b.api.Request(edit); err != nil {
		b.log.Debug().Err(err).Msg("keyboard refresh failed")
	}
}

func keyboardMarkup(options []services.KeyboardOption) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(options))
	for _, opt := range options {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(opt.Label, opt.Data)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// services.Transport implementation.

func (b *Bot) SendText(_ context.Context, chatID int64, text string) (int, error) {
	sent, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (b *Bot) Reply(_ context.Context, chatID int64, replyToID int, text string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = replyToID
	sent, err := b.api.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (b *Bot) SendSticker(_ context.Context, chatID int64, fileID string) (int, error) {
	sent, err := b.api.Send(tgbotapi.NewSticker(chatID, tgbotapi.FileID(fileID)))
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (b *Bot) SendDocument(_ context.Context, chatID int64, fileID, caption string) (int, error) {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileID(fileID))
	doc.Caption = caption
	sent, err := b.api.Send(doc)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (b *Bot) SendPhoto(_ context.Context, chatID int64, fileID, caption string) (int, error) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(fileID))
	photo.Caption = caption
	sent, err := b.api.Send(photo)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (b *Bot) Forward(_ context.Context, toChat, fromChat int64, msgID int) (int, error) {
	sent, err := b.api.Send(tgbotapi.NewForward(toChat, fromChat, msgID))
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (b *Bot) EditText(_ context.Context, chatID int64, msgID int, text string) error {
	_, err := b.api.Request(tgbotapi.NewEditMessageText(chatID, msgID, text))
	return err
}

func (b *Bot) Delete(_ context.Context, chatID int64, msgID int) error {
	_, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, msgID))
	return err
}

func (b *Bot) SendKeyboard(_ context.Context, chatID int64, replyToID int, text string, options []services.KeyboardOption) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	if replyToID != 0 {
		msg.ReplyToMessageID = replyToID
	}
	msg.ReplyMarkup = keyboardMarkup(options)
	sent, err := b.api.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}
