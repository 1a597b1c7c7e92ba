// Package services – language selector
//
// Per-user interface language. Resolution order: the stored selection,
// then a best match of the transport-reported language code against the
// supported set, then the configured default. Matching uses
// golang.org/x/text's language matcher so that e.g. "en-US" resolves to a
// supported "en".
package services

import (
	"context"

	"golang.org/x/text/language"

	"github.com/tbourn/go-feedback-bot/internal/repo"
)

// LanguageCallbackPrefix prefixes the callback payload of language
// selection buttons: "lang:<code>".
const LanguageCallbackPrefix = "lang:"

// Languages resolves and records per-user language selections.
type Languages struct {
	kv        repo.KV
	prefix    string
	supported []language.Tag
	def       language.Tag
	matcher   language.Matcher
}

// NewLanguages builds a selector over the supported language codes. The
// default must be one of the supported codes; config validation
// guarantees that, and an unparsable code is reported here as
// ErrUnknownLanguage.
func NewLanguages(kv repo.KV, prefix string, supported []string, def string) (*Languages, error) {
	tags := make([]language.Tag, 0, len(supported))
	for _, code := range supported {
		tag, err := language.Parse(code)
		if err != nil {
			return nil, ErrUnknownLanguage
		}
		tags = append(tags, tag)
	}
	defTag, err := language.Parse(def)
	if err != nil {
		return nil, ErrUnknownLanguage
	}
	return &Languages{
		kv:        kv,
		prefix:    prefix,
		supported: tags,
		def:       defTag,
		matcher:   language.NewMatcher(tags),
	}, nil
}

// Supported returns the supported language codes in configuration order.
func (l *Languages) Supported() []string {
	out := make([]string, len(l.supported))
	for i, t := range l.supported {
		out[i] = t.String()
	}
	return out
}

// Resolve returns the language code to use for userID. reportedCode is
// the transport's view of the user's language and may be empty.
func (l *Languages) Resolve(ctx context.Context, userID int64, reportedCode string) string {
	// Store trouble falls through to guessing; language is cosmetic.
	stored, err := repo.LanguageCode(ctx, l.kv, l.prefix, userID)
	if err == nil {
		for _, t := range l.supported {
			if t.String() == stored {
				return stored
			}
		}
	}

	if reportedCode != "" {
		if guessed, err := language.Parse(reportedCode); err == nil {
			if _, idx, conf := l.matcher.Match(guessed); conf >= language.High {
				return l.supported[idx].String()
			}
		}
	}
	return l.def.String()
}

// Select stores code as the user's language. Codes outside the supported
// set are rejected with ErrUnknownLanguage.
func (l *Languages) Select(ctx context.Context, userID int64, code string) error {
	for _, t := range l.supported {
		if t.String() == code {
			return repo.SaveLanguage(ctx, l.kv, l.prefix, userID, code)
		}
	}
	return ErrUnknownLanguage
}

// Options builds the language keyboard, bracketing the user's current
// language.
func (l *Languages) Options(ctx context.Context, userID int64, reportedCode string) []KeyboardOption {
	current := l.Resolve(ctx, userID, reportedCode)
	opts := make([]KeyboardOption, 0, len(l.supported))
	for _, t := range l.supported {
		code := t.String()
		label := code
		if code == current {
			label = "[ " + code + " ]"
		}
		opts = append(opts, KeyboardOption{Label: label, Data: LanguageCallbackPrefix + code})
	}
	return opts
}
