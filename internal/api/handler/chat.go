package handler

import (
	"net/http"
	"strconv"
	"time"

	"pairchat/backend/internal/config"
	"pairchat/backend/internal/models"

	"github.com/gin-gonic/gin"
)

type userView struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Online bool   `json:"online"`
}

// ListUsers повертає всіх користувачів, відсортованих за кодом.
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.Storage.ListUsers(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("list users failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]userView, 0, len(users))
	for _, u := range users {
		out = append(out, userView{Code: u.Code, Name: u.Name, Online: u.Online})
	}
	c.JSON(http.StatusOK, out)
}

// pairFromQuery reads ?me= and ?peer=, answering 400 when either is missing.
func pairFromQuery(c *gin.Context) (string, string, bool) {
	me := models.NormalizeCode(c.Query("me"))
	peer := models.NormalizeCode(c.Query("peer"))
	if me == "" || peer == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "me and peer are required"})
		return "", "", false
	}
	return me, peer, true
}

// GetConversation повертає розмову пари, створюючи її за потреби.
func (h *Handler) GetConversation(c *gin.Context) {
	me, peer, ok := pairFromQuery(c)
	if !ok {
		return
	}

	convo, err := h.Storage.GetOrCreateConversation(c.Request.Context(), me, peer)
	if err != nil {
		h.log.Error().Err(err).Str("me", me).Str("peer", peer).Msg("get conversation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, convo)
}

// ListMessages повертає історію пари за зростанням часу.
// A pair without a conversation has an empty history; none is created.
func (h *Handler) ListMessages(c *gin.Context) {
	me, peer, ok := pairFromQuery(c)
	if !ok {
		return
	}

	limit := config.DefaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, config.MaxHistoryLimit)
	}

	var before *time.Time
	if raw := c.Query("before"); raw != "" {
		t, err := models.ParseClientTime(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "before must be epoch milliseconds or RFC 3339"})
			return
		}
		before = &t
	}

	ctx := c.Request.Context()
	convo, err := h.Storage.FindConversation(ctx, me, peer)
	if err != nil {
		h.log.Error().Err(err).Str("me", me).Str("peer", peer).Msg("find conversation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if convo == nil {
		c.JSON(http.StatusOK, gin.H{"messages": []models.MessagePayload{}})
		return
	}

	msgs, err := h.Storage.ListMessages(ctx, convo.ID, before, limit)
	if err != nil {
		h.log.Error().Err(err).Str("conversation", convo.ID).Msg("list messages failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]models.MessagePayload, 0, len(msgs))
	for i := range msgs {
		out = append(out, msgs[i].HistoryPayload())
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}
