// Package services – service message texts
//
// Every user-visible or operator-visible notice the relay emits lives
// here, so a hosting process can replace any of them (including with
// per-language variants) without touching relay logic.
package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/tbourn/go-feedback-bot/internal/domain"
)

// Messages holds the notification texts used by the relay. The zero value
// is not useful; start from DefaultMessages and override fields as needed.
type Messages struct {
	// To the user:

	// ForwardedOK acknowledges a relayed message. Empty disables the ack.
	ForwardedOK string
	// SelectCategory prompts for a category before the message is accepted.
	SelectCategory string
	// ThrottlingTemplate takes the message cap and the window in minutes.
	ThrottlingTemplate string

	// In the admin chat:

	// CopiedOK acknowledges a reply delivered back to the user.
	CopiedOK string
	// LogUnavailable is sent when /log finds no history.
	LogUnavailable string
	// SomethingWrongTemplate takes an error description.
	SomethingWrongTemplate string
	// UnsupportedTypePrefix precedes the joined allowlist of content types.
	UnsupportedTypePrefix string
}

// DefaultMessages returns the built-in English texts.
func DefaultMessages() Messages {
	return Messages{
		ForwardedOK:            "Forwarded!",
		SelectCategory:         "Please select/update the topic of your message first, then send it again",
		ThrottlingTemplate:     "⚠️ Please don't send more than %d messages within %d min!",
		CopiedOK:               "Copied!",
		LogUnavailable:         "Message history is unavailable",
		SomethingWrongTemplate: "Something went wrong: %v",
		UnsupportedTypePrefix:  "The bot only supports the following attachment types in replies: ",
	}
}

// Throttling renders the throttling notice for the given policy window.
func (m Messages) Throttling(cap int, window time.Duration) string {
	return fmt.Sprintf(m.ThrottlingTemplate, cap, int(window.Minutes()))
}

// SomethingWrong renders the generic failure notice for the operator.
func (m Messages) SomethingWrong(err error) string {
	return fmt.Sprintf(m.SomethingWrongTemplate, err)
}

// UnsupportedType renders the unsupported-content notice listing the
// allowed types.
func (m Messages) UnsupportedType(types []domain.ContentType) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return m.UnsupportedTypePrefix + strings.Join(names, ", ")
}
