package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-feedback-bot/internal/repo"
)

func newTestHandler(t *testing.T) (*Handler, repo.KV, string) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	kv := repo.NewRedisKV(client)
	prefix := "test-" + uuid.NewString()

	bans, err := repo.NewBanStore(context.Background(), kv, prefix, zerolog.Nop())
	if err != nil {
		t.Fatalf("ban store: %v", err)
	}
	return New(kv, prefix, bans), kv, prefix
}

func newTestRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/v1/bans", h.ListBans)
	r.GET("/api/v1/conversations/:id/log", h.ConversationLog)
	r.GET("/api/v1/conversations/:id/related", h.ConversationRelated)
	return r
}

func TestListBans(t *testing.T) {
	h, _, _ := newTestHandler(t)
	r := newTestRouter(h)

	if err := h.Bans.Ban(context.Background(), 42); err != nil {
		t.Fatalf("ban: %v", err)
	}
	if err := h.Bans.Ban(context.Background(), 99); err != nil {
		t.Fatalf("ban: %v", err)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/bans", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var resp BansResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Count != 2 || len(resp.UserIDs) != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	seen := map[int64]bool{}
	for _, id := range resp.UserIDs {
		seen[id] = true
	}
	if !seen[42] || !seen[99] {
		t.Fatalf("missing ids: %+v", resp.UserIDs)
	}
}

func TestConversationLog(t *testing.T) {
	h, kv, prefix := newTestHandler(t)
	r := newTestRouter(h)
	ctx := context.Background()

	for _, id := range []int{10, 20, 30} {
		if err := repo.AppendLog(ctx, kv, prefix, 7, id, time.Hour); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/conversations/7/log", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var resp ConversationResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.ChatID != 7 || resp.Count != 3 || fmt.Sprint(resp.MessageIDs) != "[10 20 30]" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	// limit keeps the newest entries
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/conversations/7/log?limit=2", nil))
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if fmt.Sprint(resp.MessageIDs) != "[20 30]" {
		t.Fatalf("unexpected limited response: %+v", resp)
	}
}

func TestConversationRelated(t *testing.T) {
	h, kv, prefix := newTestHandler(t)
	r := newTestRouter(h)

	if err := repo.AppendRelated(context.Background(), kv, prefix, 7, 555, time.Hour); err != nil {
		t.Fatalf("append: %v", err)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/conversations/7/related", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var resp ConversationResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Count != 1 || resp.MessageIDs[0] != 555 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestConversationEndpoints_Errors(t *testing.T) {
	h, _, _ := newTestHandler(t)
	r := newTestRouter(h)

	// non-numeric id
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/conversations/abc/log", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("json: %v", err)
	}
	if er.Code != ErrCodeBadRequest {
		t.Fatalf("unexpected code: %+v", er)
	}

	// unknown conversation
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/conversations/12345/log", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
}
