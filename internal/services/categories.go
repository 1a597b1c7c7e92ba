// Package services – category selector
//
// Users pick a topic for their messages from a fixed, configured list.
// The selection is a single expiring key per user; the selected category's
// hashtag is attached to tickets in the admin chat.
package services

import (
	"context"
	"strconv"
	"time"

	"github.com/tbourn/go-feedback-bot/internal/domain"
	"github.com/tbourn/go-feedback-bot/internal/repo"
)

// CategoryCallbackPrefix prefixes the callback payload of category
// selection buttons: "category:<id>".
const CategoryCallbackPrefix = "category:"

// Categories resolves and records per-user topic selections.
type Categories struct {
	KV     repo.KV
	Prefix string
	// List is the configured category set, in display order.
	List []domain.Category
	// TTL bounds how long a selection stays valid.
	TTL time.Duration
}

// byID returns the configured category with the given id, or nil.
func (c *Categories) byID(id int) *domain.Category {
	for i := range c.List {
		if c.List[i].ID == id {
			return &c.List[i]
		}
	}
	return nil
}

// Selected returns the user's current category, or (nil, nil) when none is
// stored, the stored id no longer exists in the configuration, or the
// store misbehaves. Selection state is advisory and always re-derivable
// by the user, so lookups never fail the calling pipeline.
func (c *Categories) Selected(ctx context.Context, userID int64) (*domain.Category, error) {
	id, err := repo.CategoryID(ctx, c.KV, c.Prefix, userID)
	if err != nil {
		return nil, nil
	}
	return c.byID(id), nil
}

// Select stores categoryID as the user's choice. Unknown ids are rejected
// with ErrUnknownCategory.
func (c *Categories) Select(ctx context.Context, userID int64, categoryID int) error {
	if c.byID(categoryID) == nil {
		return ErrUnknownCategory
	}
	return repo.SaveCategory(ctx, c.KV, c.Prefix, userID, categoryID, c.TTL)
}

// Options builds the keyboard for the user: one button per visible
// category, the currently selected one marked with a check prefix.
func (c *Categories) Options(ctx context.Context, userID int64) []KeyboardOption {
	current, _ := c.Selected(ctx, userID)
	opts := make([]KeyboardOption, 0, len(c.List))
	for _, cat := range c.List {
		if cat.Hidden {
			continue
		}
		label := cat.Caption
		if current != nil && current.ID == cat.ID {
			label = "✅ " + label
		}
		opts = append(opts, KeyboardOption{
			Label: label,
			Data:  CategoryCallbackPrefix + strconv.Itoa(cat.ID),
		})
	}
	return opts
}
