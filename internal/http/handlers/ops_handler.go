// Package handlers – ops endpoints
//
// The ops API is a read-only window into the relay's durable state for the
// people running the bot: which conversations are banned, and which message
// ids belong to a conversation's routing/log records. It exposes ids only;
// message content never leaves Telegram.
package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-feedback-bot/internal/repo"
	"github.com/tbourn/go-feedback-bot/internal/utils"
)

// maxListLimit caps the number of ids returned by the list endpoints.
const maxListLimit = 1000

// Handler bundles the dependencies of the ops endpoints.
type Handler struct {
	KV     repo.KV
	Prefix string
	Bans   *repo.BanStore
}

// New constructs a Handler.
func New(kv repo.KV, prefix string, bans *repo.BanStore) *Handler {
	return &Handler{KV: kv, Prefix: prefix, Bans: bans}
}

// BansResponse lists the banned conversation ids.
type BansResponse struct {
	UserIDs []int64 `json:"user_ids"`
	Count   int     `json:"count"`
}

// ListBans handles GET /api/v1/bans. The ban set is served from the
// in-memory cache, so this endpoint never touches Redis.
func (h *Handler) ListBans(c *gin.Context) {
	ids := h.Bans.Banned()
	ok(c, http.StatusOK, BansResponse{UserIDs: ids, Count: len(ids)})
}

// ConversationResponse lists message ids recorded for one conversation.
type ConversationResponse struct {
	ChatID     int64 `json:"chat_id"`
	MessageIDs []int `json:"message_ids"`
	Count      int   `json:"count"`
}

// ConversationLog handles GET /api/v1/conversations/:id/log.
//
// Query parameters:
//   - limit: maximum number of ids, newest kept (default and cap 1000)
func (h *Handler) ConversationLog(c *gin.Context) {
	h.listConversation(c, repo.ListLog)
}

// ConversationRelated handles GET /api/v1/conversations/:id/related.
func (h *Handler) ConversationRelated(c *gin.Context) {
	h.listConversation(c, repo.ListRelated)
}

func (h *Handler) listConversation(c *gin.Context, list func(context.Context, repo.KV, string, int64) ([]int, error)) {
	chatID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "conversation id must be an integer")
		return
	}

	limit := utils.AtoiDefault(c.Query("limit"), maxListLimit)
	if limit < 1 || limit > maxListLimit {
		limit = maxListLimit
	}

	ids, err := list(c.Request.Context(), h.KV, h.Prefix, chatID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "store lookup failed")
		return
	}
	if len(ids) == 0 {
		// Expired or never recorded: the distinction is gone with the TTL.
		fail(c, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
		return
	}
	if len(ids) > limit {
		ids = ids[len(ids)-limit:]
	}
	ok(c, http.StatusOK, ConversationResponse{ChatID: chatID, MessageIDs: ids, Count: len(ids)})
}
