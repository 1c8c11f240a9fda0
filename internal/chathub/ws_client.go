package chathub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"pairchat/backend/internal/models"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

const (
	writeWait          = 10 * time.Second
	defaultPongWait    = 60 * time.Second
	defaultMaxMessage  = 64 * 1024
	sendBufferSize     = 256
	dispatchOpDeadline = 15 * time.Second
)

// WebSocketClient реалізує інтерфейс chathub.Client поверх gorilla/websocket.
type WebSocketClient struct {
	Code        string
	SessionID   string
	Conn        *websocket.Conn
	Hub         *ManagerService
	Coordinator *Coordinator
	Send        chan models.OutboundEvent

	mu     sync.Mutex
	peer   string
	closed bool

	pongWait       time.Duration
	maxMessageSize int64
	log            zerolog.Logger
}

// ClientOption tweaks a WebSocketClient.
type ClientOption func(*WebSocketClient)

// WithPongWait sets the read deadline; pings go out at 9/10 of it.
func WithPongWait(d time.Duration) ClientOption {
	return func(c *WebSocketClient) {
		if d > 0 {
			c.pongWait = d
		}
	}
}

// WithMaxMessageSize caps inbound frames.
func WithMaxMessageSize(n int64) ClientOption {
	return func(c *WebSocketClient) {
		if n > 0 {
			c.maxMessageSize = n
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(l zerolog.Logger) ClientOption {
	return func(c *WebSocketClient) { c.log = l }
}

// NewWebSocketClient builds a session for an already upgraded connection.
func NewWebSocketClient(conn *websocket.Conn, code, peer string, hub *ManagerService, coordinator *Coordinator, opts ...ClientOption) *WebSocketClient {
	c := &WebSocketClient{
		Code:           models.NormalizeCode(code),
		SessionID:      ulid.Make().String(),
		Conn:           conn,
		Hub:            hub,
		Coordinator:    coordinator,
		Send:           make(chan models.OutboundEvent, sendBufferSize),
		peer:           models.NormalizeCode(peer),
		pongWait:       defaultPongWait,
		maxMessageSize: defaultMaxMessage,
		log:            zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With().Str("code", c.Code).Str("session", c.SessionID).Logger()
	return c
}

// --- Реалізація методів інтерфейсу ---

func (c *WebSocketClient) GetCode() string      { return c.Code }
func (c *WebSocketClient) GetSessionID() string { return c.SessionID }

func (c *WebSocketClient) GetPeer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peer
}

func (c *WebSocketClient) SetPeer(peer string) {
	c.mu.Lock()
	c.peer = models.NormalizeCode(peer)
	c.mu.Unlock()
}

func (c *WebSocketClient) Deliver(ev models.OutboundEvent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- ev:
		return true
	default:
		return false
	}
}

// Run запускає write pump у фоні і блокує на read pump до кінця сесії.
func (c *WebSocketClient) Run() {
	go c.writePump()
	c.readPump()
}

// Close закриває Send канал, що зупиняє writePump і сам сокет.
func (c *WebSocketClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

func (c *WebSocketClient) pingPeriod() time.Duration {
	return (c.pongWait * 9) / 10
}

// readPump owns the session lifecycle: it announces the session, dispatches
// inbound frames and runs the disconnect path when the socket dies.
func (c *WebSocketClient) readPump() {
	c.Hub.Register(c)
	c.Coordinator.Connect(context.Background(), c.Code, c.SessionID, c.GetPeer())
	if peer := c.GetPeer(); peer != "" {
		c.Deliver(models.OutboundEvent{Event: models.EventPresenceUpdate, Data: c.Coordinator.Query(peer)})
	}

	defer func() {
		c.Hub.Unregister(c)
		c.Coordinator.Disconnect(context.Background(), c.Code, c.SessionID, c.GetPeer())
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.log.Warn().Err(err).Msg("read failed")
			}
			return
		}

		var env models.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.log.Warn().Err(err).Msg("malformed frame skipped")
			continue
		}
		c.dispatch(env)
	}
}

func (c *WebSocketClient) dispatch(env models.Envelope) {
	ctx, cancel := context.WithTimeout(context.Background(), dispatchOpDeadline)
	defer cancel()

	switch env.Event {
	case models.EventPresenceJoin:
		var req models.PresenceJoin
		if !c.decode(env, &req) {
			return
		}
		c.SetPeer(req.Peer)
		snapshot, ok := c.Coordinator.Join(c.Code, req.Peer)
		if !ok {
			return
		}
		c.reply(env, models.EventPresenceUpdate, snapshot)

	case models.EventPresenceQuery:
		var req models.PresenceQuery
		if !c.decode(env, &req) {
			return
		}
		c.reply(env, models.EventPresenceUpdate, c.Coordinator.Query(req.Who))

	case models.EventMessageSend:
		var req models.SendRequest
		if !c.decode(env, &req) {
			return
		}
		c.Coordinator.SendAs(ctx, c.Code, req, func(ack models.SendAck) {
			if env.Ack != "" {
				c.Deliver(models.OutboundEvent{Event: models.EventAck, Data: ack, Ack: env.Ack})
			}
			if ack.OK && req.ID != "" {
				c.Deliver(models.OutboundEvent{
					Event: models.EventMessageSent,
					Data:  models.MessageSent{TempID: req.ID, RealID: ack.ID},
				})
			}
		})

	case models.EventMessageDelivered:
		var req models.StatusPayload
		if c.decode(env, &req) {
			c.Coordinator.MarkDelivered(ctx, req.ID)
		}

	case models.EventMessageRead:
		var req models.StatusPayload
		if c.decode(env, &req) {
			c.Coordinator.MarkRead(ctx, req.ID)
		}

	default:
		c.log.Debug().Str("event", env.Event).Msg("unknown event ignored")
	}
}

// reply answers through the ack handle when the client asked for one,
// otherwise it pushes a plain event.
func (c *WebSocketClient) reply(env models.Envelope, event string, data any) {
	if env.Ack != "" {
		c.Deliver(models.OutboundEvent{Event: models.EventAck, Data: data, Ack: env.Ack})
		return
	}
	c.Deliver(models.OutboundEvent{Event: event, Data: data})
}

func (c *WebSocketClient) decode(env models.Envelope, v any) bool {
	if len(env.Data) == 0 {
		c.log.Warn().Str("event", env.Event).Msg("frame without data skipped")
		return false
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		c.log.Warn().Err(err).Str("event", env.Event).Msg("malformed payload skipped")
		return false
	}
	return true
}

// writePump читає події з каналу Send і записує їх у WebSocket, один кадр на подію.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(c.pingPeriod())

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Канал закрито хабом, закриваємо з'єднання WS
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(ev); err != nil {
				c.log.Warn().Err(err).Str("event", ev.Event).Msg("write failed")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// RejectConnection writes a protocol error to a connection that never became
// a session and closes it.
func RejectConnection(conn *websocket.Conn, reason string) {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteJSON(models.OutboundEvent{Event: models.EventError, Data: reason})
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason))
	conn.Close()
}
