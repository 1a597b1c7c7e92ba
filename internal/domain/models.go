// Package domain defines the core record types of the feedback relay:
// the incoming transport message, the hashtag ticket record persisted in
// the key-value store, and the enumerations used by the relay pipeline.
// These types carry no behavior beyond serialization; business rules live
// in the services layer.
package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// ContentType classifies an incoming message payload. Only a small
// allowlist of types can be copied back to a user; everything else is
// reported to the operator as unsupported.
type ContentType string

const (
	ContentText     ContentType = "text"
	ContentSticker  ContentType = "sticker"
	ContentDocument ContentType = "document"
	ContentPhoto    ContentType = "photo"
	ContentOther    ContentType = "other"
)

// RelayableContentTypes is the set of content types an admin reply may
// carry for it to be copied back to the origin conversation.
var RelayableContentTypes = []ContentType{ContentText, ContentSticker, ContentDocument, ContentPhoto}

// IsRelayable reports whether t is in the copy-back allowlist.
func (t ContentType) IsRelayable() bool {
	for _, ct := range RelayableContentTypes {
		if t == ct {
			return true
		}
	}
	return false
}

// Incoming is the transport-agnostic view of a received message. The
// Telegram adapter converts Bot API updates into this shape before the
// orchestrator sees them.
//
// Fields:
//   - ID: message identity within its chat.
//   - ChatID / UserID: chat and sender identities (opaque int64 ids).
//   - Type: classified content type.
//   - Text: HTML-formatted text for text messages, empty otherwise.
//   - FileID: transport file reference for sticker/document/photo.
//   - Caption: HTML-formatted caption for document/photo, may be empty.
//   - ReplyToID: id of the message this one replies to; 0 when not a reply.
//   - LanguageCode: sender's self-reported IETF language tag, may be empty.
type Incoming struct {
	ID           int
	ChatID       int64
	UserID       int64
	Type         ContentType
	Text         string
	FileID       string
	Caption      string
	ReplyToID    int
	LanguageCode string
	ReceivedAt   time.Time
}

// IsReply reports whether the message replies to another message.
func (m Incoming) IsReply() bool { return m.ReplyToID != 0 }

// Ticket is the mutable hashtag message posted in the admin chat to label
// a burst of forwarded messages from one conversation. Its displayed text
// is the space-joined tag sequence; a ticket whose tag sequence becomes
// empty is deleted rather than left blank.
//
// The record is persisted as JSON with the stable field names message_id
// and hashtags.
type Ticket struct {
	MessageID int      `json:"message_id"`
	Hashtags  []string `json:"hashtags"`
}

// HasTag reports whether the ticket currently carries tag.
func (t *Ticket) HasTag(tag string) bool {
	for _, h := range t.Hashtags {
		if h == tag {
			return true
		}
	}
	return false
}

// RemoveTag deletes the first occurrence of tag, preserving the order of
// the remaining tags. It reports whether anything was removed.
func (t *Ticket) RemoveTag(tag string) bool {
	for i, h := range t.Hashtags {
		if h == tag {
			t.Hashtags = append(t.Hashtags[:i], t.Hashtags[i+1:]...)
			return true
		}
	}
	return false
}

// Text renders the ticket's display text: all tags joined by single spaces.
func (t *Ticket) Text() string { return strings.Join(t.Hashtags, " ") }

// Encode serializes the ticket record for storage.
func (t *Ticket) Encode() (string, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeTicket parses a stored ticket record.
func DecodeTicket(raw string) (*Ticket, error) {
	var t Ticket
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Category is one selectable message topic. The Tag() of the selected
// category is appended to tickets so admins can filter the shared chat.
type Category struct {
	ID      int
	Name    string
	Caption string // button caption shown to users
	Hidden  bool   // selectable only via deep link, not listed
}

// Tag returns the hashtag form of the category name.
func (c Category) Tag() string { return "#" + c.Name }

// Verdict is the rate limiter's decision for one inbound user message.
type Verdict int

const (
	// AdmitNow lets the message through with no side effects.
	AdmitNow Verdict = iota
	// AdmitWithWarning lets the caller notify the user that throttling
	// has started; the message itself is dropped.
	AdmitWithWarning
	// RejectSilently drops the message without any reaction (soft ban).
	RejectSilently
)

// String returns a stable name for logging and metrics labels.
func (v Verdict) String() string {
	switch v {
	case AdmitNow:
		return "admit"
	case AdmitWithWarning:
		return "warn"
	case RejectSilently:
		return "reject"
	default:
		return "unknown"
	}
}
