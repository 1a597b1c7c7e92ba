// Package services – transport contract
//
// The relay depends only on these messaging capabilities, not on a
// concrete protocol. The production implementation lives in
// internal/telegram; orchestrator tests substitute an in-memory fake.
package services

import "context"

// KeyboardOption is one inline button: a visible label and an opaque
// callback payload delivered back through the transport when pressed.
type KeyboardOption struct {
	Label string
	Data  string
}

// Transport is the outbound messaging capability contract. All send-style
// methods return the id of the message they created.
type Transport interface {
	// SendText posts an HTML-formatted text message.
	SendText(ctx context.Context, chatID int64, text string) (int, error)
	// Reply posts a text message as a reply to an existing message.
	Reply(ctx context.Context, chatID int64, replyToID int, text string) (int, error)
	// SendSticker, SendDocument and SendPhoto post media by transport
	// file reference; captions are HTML-formatted and may be empty.
	SendSticker(ctx context.Context, chatID int64, fileID string) (int, error)
	SendDocument(ctx context.Context, chatID int64, fileID, caption string) (int, error)
	SendPhoto(ctx context.Context, chatID int64, fileID, caption string) (int, error)
	// Forward copies a message between chats, preserving attribution.
	Forward(ctx context.Context, toChat, fromChat int64, msgID int) (int, error)
	// EditText replaces the text of an existing message.
	EditText(ctx context.Context, chatID int64, msgID int, text string) error
	// Delete removes a message.
	Delete(ctx context.Context, chatID int64, msgID int) error
	// SendKeyboard posts a text message with an inline keyboard. A zero
	// replyToID sends a plain (non-reply) message.
	SendKeyboard(ctx context.Context, chatID int64, replyToID int, text string, options []KeyboardOption) (int, error)
}
