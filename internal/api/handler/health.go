package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Health reports liveness plus a store ping.
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	now := time.Now()
	body := gin.H{
		"ok":     true,
		"uptime": now.Sub(h.startedAt).Seconds(),
		"now":    now.UnixMilli(),
	}

	if err := h.Storage.Ping(ctx); err != nil {
		h.log.Warn().Err(err).Msg("health check: store unreachable")
		body["ok"] = false
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}
