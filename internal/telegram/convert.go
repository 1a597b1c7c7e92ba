package telegram

import (
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tbourn/go-feedback-bot/internal/domain"
)

// incomingFromMessage maps a Bot API message onto the transport-neutral
// shape the relay works with. Photos arrive as a size ladder; the last
// entry is the largest rendition and the one worth re-sending.
func incomingFromMessage(msg *tgbotapi.Message) domain.Incoming {
	in := domain.Incoming{
		ID:         msg.MessageID,
		ChatID:     msg.Chat.ID,
		Type:       domain.ContentOther,
		ReceivedAt: time.Unix(int64(msg.Date), 0),
	}
	if msg.From != nil {
		in.UserID = msg.From.ID
		in.LanguageCode = msg.From.LanguageCode
	}
	if msg.ReplyToMessage != nil {
		in.ReplyToID = msg.ReplyToMessage.MessageID
	}

	switch {
	case msg.Text != "":
		in.Type = domain.ContentText
		in.Text = msg.Text
	case msg.Sticker != nil:
		in.Type = domain.ContentSticker
		in.FileID = msg.Sticker.FileID
	case msg.Document != nil:
		in.Type = domain.ContentDocument
		in.FileID = msg.Document.FileID
		in.Caption = msg.Caption
	case len(msg.Photo) > 0:
		in.Type = domain.ContentPhoto
		in.FileID = msg.Photo[len(msg.Photo)-1].FileID
		in.Caption = msg.Caption
	}
	return in
}
