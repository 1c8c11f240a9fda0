package handler

import (
	"net/http"

	"pairchat/backend/internal/chathub"
	"pairchat/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// ServeWebSocket оновлює HTTP-з'єднання до WebSocket і веде сесію до її закриття.
// The user code comes from ?code= or from a signed ?token=. Without one the
// connection is upgraded only to carry the protocol error, then closed.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	code := models.NormalizeCode(c.Query("code"))
	if tokenString := c.Query("token"); tokenString != "" {
		tokenCode, err := h.validateAndGetCode(tokenString)
		if err != nil {
			h.log.Warn().Err(err).Msg("websocket token rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
			return
		}
		code = tokenCode
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	if code == "" {
		h.log.Warn().Str("remote_addr", c.ClientIP()).Err(chathub.ErrMissingCode).Msg("connection rejected")
		chathub.RejectConnection(conn, chathub.MissingCodeMessage)
		return
	}

	client := chathub.NewWebSocketClient(conn, code, c.Query("peer"), h.Hub, h.Coordinator,
		chathub.WithPongWait(h.Config.PongWait),
		chathub.WithMaxMessageSize(h.Config.MaxMessageBytes),
		chathub.WithLogger(h.log),
	)
	client.Run()
}
