package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-feedback-bot/internal/repo"
)

func newTracker(t *testing.T) (*TicketTracker, *fakeTransport, *miniredis.Miniredis) {
	t.Helper()
	srv, kv, prefix := newTestKV(t)
	tr := newFakeTransport()
	return &TicketTracker{
		KV:          kv,
		Prefix:      prefix,
		Transport:   tr,
		AdminChatID: -100500,
		GroupWindow: 10 * time.Minute,
		Retention:   time.Hour,
		Log:         zerolog.Nop(),
	}, tr, srv
}

func TestTicketTracker_CreatePostsTagText(t *testing.T) {
	tracker, tr, _ := newTracker(t)
	ctx := context.Background()

	ticket, created, err := tracker.GetOrCreate(ctx, 42, "#billing")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if !created {
		t.Fatal("expected a new ticket")
	}
	if got := ticket.Text(); got != "#unanswered #billing" {
		t.Fatalf("unexpected ticket text %q", got)
	}

	last := tr.lastSent()
	if last == nil || last.Kind != "text" || last.ChatID != -100500 || last.Text != "#unanswered #billing" {
		t.Fatalf("unexpected posted message: %+v", last)
	}

	// The ticket message is tied to the user for ban cleanup.
	related, err := repo.ListRelated(ctx, tracker.KV, tracker.Prefix, 42)
	if err != nil {
		t.Fatalf("list related: %v", err)
	}
	if len(related) != 1 || related[0] != ticket.MessageID {
		t.Fatalf("expected ticket id in related list, got %v", related)
	}
}

func TestTicketTracker_ReusesRecentTicket(t *testing.T) {
	tracker, tr, _ := newTracker(t)
	ctx := context.Background()

	first, _, err := tracker.GetOrCreate(ctx, 42, "")
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, created, err := tracker.GetOrCreate(ctx, 42, "")
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if created {
		t.Fatal("expected reuse inside the grouping window")
	}
	if second.MessageID != first.MessageID {
		t.Fatalf("expected same ticket, got %d and %d", first.MessageID, second.MessageID)
	}
	if got := len(tr.sentOfKind("text")); got != 1 {
		t.Fatalf("expected one posted ticket, got %d", got)
	}
}

func TestTicketTracker_NewTicketWhenCategoryDiffers(t *testing.T) {
	tracker, _, _ := newTracker(t)
	ctx := context.Background()

	first, _, err := tracker.GetOrCreate(ctx, 42, "#one")
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, created, err := tracker.GetOrCreate(ctx, 42, "#two")
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if !created {
		t.Fatal("a different category tag must open a new ticket")
	}
	if second.MessageID == first.MessageID {
		t.Fatal("expected a fresh ticket message")
	}
}

func TestTicketTracker_NewTicketAfterGroupWindow(t *testing.T) {
	tracker, _, srv := newTracker(t)
	ctx := context.Background()

	if _, _, err := tracker.GetOrCreate(ctx, 42, ""); err != nil {
		t.Fatalf("first: %v", err)
	}
	srv.FastForward(11 * time.Minute)
	_, created, err := tracker.GetOrCreate(ctx, 42, "")
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if !created {
		t.Fatal("expected a new ticket after the grouping window")
	}
}

func TestTicketTracker_MarkAnsweredEditsAndPersists(t *testing.T) {
	tracker, tr, _ := newTracker(t)
	ctx := context.Background()

	ticket, _, err := tracker.GetOrCreate(ctx, 42, "#cat")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := tracker.BindToRelay(ctx, 555, ticket); err != nil {
		t.Fatalf("bind: %v", err)
	}

	if err := tracker.MarkAnswered(ctx, 555); err != nil {
		t.Fatalf("mark answered: %v", err)
	}
	if len(tr.edits) != 1 || tr.edits[0].Text != "#cat" {
		t.Fatalf("expected edit to #cat, got %+v", tr.edits)
	}

	stored, err := repo.TicketForRelay(ctx, tracker.KV, tracker.Prefix, 555)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(stored.Hashtags) != 1 || stored.Hashtags[0] != "#cat" {
		t.Fatalf("expected persisted tags [#cat], got %v", stored.Hashtags)
	}

	// Second mark is a no-op: tag already gone, no further edits.
	if err := tracker.MarkAnswered(ctx, 555); err != nil {
		t.Fatalf("second mark: %v", err)
	}
	if len(tr.edits) != 1 {
		t.Fatalf("expected no second edit, got %+v", tr.edits)
	}
}

func TestTicketTracker_MarkAnsweredDeletesEmptyTicket(t *testing.T) {
	tracker, tr, _ := newTracker(t)
	ctx := context.Background()

	ticket, _, err := tracker.GetOrCreate(ctx, 42, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := tracker.BindToRelay(ctx, 556, ticket); err != nil {
		t.Fatalf("bind: %v", err)
	}

	if err := tracker.MarkAnswered(ctx, 556); err != nil {
		t.Fatalf("mark answered: %v", err)
	}
	if len(tr.edits) != 0 {
		t.Fatalf("expected no edit for an empty ticket, got %+v", tr.edits)
	}
	if len(tr.deletes) != 1 || tr.deletes[0].MsgID != ticket.MessageID {
		t.Fatalf("expected the ticket message deleted, got %+v", tr.deletes)
	}

	stored, err := repo.TicketForRelay(ctx, tracker.KV, tracker.Prefix, 556)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(stored.Hashtags) != 0 {
		t.Fatalf("expected empty persisted tags, got %v", stored.Hashtags)
	}
}

func TestTicketTracker_EditFailureStillPersists(t *testing.T) {
	tracker, tr, _ := newTracker(t)
	ctx := context.Background()

	ticket, _, err := tracker.GetOrCreate(ctx, 42, "#cat")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := tracker.BindToRelay(ctx, 557, ticket); err != nil {
		t.Fatalf("bind: %v", err)
	}

	tr.editErr = errors.New("message is not modified")
	if err := tracker.MarkAnswered(ctx, 557); err != nil {
		t.Fatalf("mark answered must swallow transport errors, got %v", err)
	}
	stored, err := repo.TicketForRelay(ctx, tracker.KV, tracker.Prefix, 557)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if stored.HasTag(DefaultUnansweredTag) {
		t.Fatal("tag state must be persisted despite the failed edit")
	}
}

func TestTicketTracker_MarkAnsweredUnknownRelayIsNoop(t *testing.T) {
	tracker, tr, _ := newTracker(t)

	if err := tracker.MarkAnswered(context.Background(), 999); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
	if len(tr.edits)+len(tr.deletes) != 0 {
		t.Fatal("no transport calls expected for an unbound relay id")
	}
}
