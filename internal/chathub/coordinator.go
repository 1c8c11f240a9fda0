package chathub

import (
	"context"
	"errors"
	"strings"
	"time"

	"pairchat/backend/internal/metrics"
	"pairchat/backend/internal/models"
	"pairchat/backend/internal/presence"
	"pairchat/backend/internal/storage"

	"github.com/rs/zerolog"
)

// AckFunc answers a message:send request.
type AckFunc func(models.SendAck)

// Coordinator is the presence and delivery state machine.
//
// Message status only moves forward (sent -> delivered -> read). Every status
// change goes through a conditional store update, so concurrent paths (a
// redelivery sweep, a live send, a client ack) can race without regressing a
// message or delivering it twice.
type Coordinator struct {
	storage  storage.Storage
	presence *presence.Registry
	emitter  Emitter
	log      zerolog.Logger
	now      func() time.Time
}

// NewCoordinator wires the coordinator to its collaborators.
func NewCoordinator(s storage.Storage, registry *presence.Registry, emitter Emitter, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		storage:  s,
		presence: registry,
		emitter:  emitter,
		log:      logger.With().Str("component", "coordinator").Logger(),
		now:      time.Now,
	}
}

// Connect registers a new session. On the code's first session the user is
// marked online and the peer is told. Then every message still "sent" to the
// code is redelivered, oldest first.
func (c *Coordinator) Connect(ctx context.Context, code, sessionID, peer string) {
	code = models.NormalizeCode(code)
	peer = models.NormalizeCode(peer)

	if c.presence.AddSession(code, sessionID) {
		metrics.UsersOnline.Inc()
		if err := c.storage.SetUserOnline(ctx, code, true); err != nil {
			c.storeFailed("set_online", err).Str("code", code).Msg("failed to mark user online")
		}
		c.announce(code, peer)
	}
	c.log.Info().Str("code", code).Str("session", sessionID).Msg("connected")

	c.redeliver(ctx, code)
}

// Disconnect removes a session. The user goes offline only if, at this
// moment, no other session of the code remains; a fast reconnect keeps it online.
func (c *Coordinator) Disconnect(ctx context.Context, code, sessionID, peer string) {
	code = models.NormalizeCode(code)
	peer = models.NormalizeCode(peer)

	if !c.presence.RemoveSession(code, sessionID) {
		c.log.Debug().Str("code", code).Str("session", sessionID).Msg("session closed, user still online")
		return
	}
	metrics.UsersOnline.Dec()

	if err := c.storage.SetUserOnline(ctx, code, false); err != nil {
		c.storeFailed("set_offline", err).Str("code", code).Msg("failed to mark user offline")
	}
	c.announce(code, peer)
	c.log.Info().Str("code", code).Str("session", sessionID).Msg("went offline")
}

// Join handles presence:join: the peer learns the caller's presence and the
// caller gets the peer's presence back.
func (c *Coordinator) Join(code, peer string) (models.Presence, bool) {
	code = models.NormalizeCode(code)
	peer = models.NormalizeCode(peer)
	if peer == "" {
		return models.Presence{}, false
	}
	c.announce(code, peer)
	return c.presence.Snapshot(peer), true
}

// Query returns the presence snapshot for who.
func (c *Coordinator) Query(who string) models.Presence {
	return c.presence.Snapshot(who)
}

func reject(err error, ack AckFunc) error {
	var verr *ValidationError
	if errors.As(err, &verr) {
		metrics.SendRejected.WithLabelValues(verr.Reason).Inc()
		if ack != nil {
			ack(models.SendAck{OK: false, Error: verr.Reason})
		}
	}
	return err
}

// IsOnline reports whether code has a live session in this process.
func (c *Coordinator) IsOnline(code string) bool {
	return c.presence.IsOnline(code)
}

// SendAs is Send on behalf of the session authenticated as code. An empty
// from is filled in; a different sender is rejected.
func (c *Coordinator) SendAs(ctx context.Context, code string, req models.SendRequest, ack AckFunc) (*models.Message, error) {
	if strings.TrimSpace(req.From) == "" {
		req.From = code
	}
	if models.NormalizeCode(req.From) != models.NormalizeCode(code) {
		c.log.Warn().Str("code", code).Str("from", req.From).Msg("message:send from another code")
		return nil, reject(ErrWrongSender, ack)
	}
	return c.Send(ctx, req, ack)
}

// Send persists a message and acknowledges the sender only once the write is
// durable. If the recipient is online the message is delivered right away;
// otherwise it stays "sent" until the recipient's next Connect.
func (c *Coordinator) Send(ctx context.Context, req models.SendRequest, ack AckFunc) (*models.Message, error) {
	if ack == nil {
		ack = func(models.SendAck) {}
	}

	msg, err := c.buildMessage(req)
	if err != nil {
		return nil, reject(err, ack)
	}

	convo, err := c.storage.GetOrCreateConversation(ctx, msg.From, msg.To)
	if err != nil {
		c.storeFailed("conversation", err).Str("from", msg.From).Str("to", msg.To).Msg("message:send failed")
		ack(models.SendAck{OK: false, Error: serverErrorReason})
		return nil, err
	}
	msg.ConversationID = convo.ID

	if err := c.storage.CreateMessage(ctx, msg); err != nil {
		c.storeFailed("create_message", err).Str("from", msg.From).Str("to", msg.To).Msg("message:send failed")
		ack(models.SendAck{OK: false, Error: serverErrorReason})
		return nil, err
	}
	metrics.MessagesSent.WithLabelValues(string(msg.Type)).Inc()
	ack(models.SendAck{OK: true, ID: msg.ID})

	if c.presence.IsOnline(msg.To) {
		c.deliver(ctx, msg, "live")
	}
	return msg, nil
}

// MarkDelivered handles a recipient's delivery ack. Unknown ids are ignored
// and a message already read is left alone.
func (c *Coordinator) MarkDelivered(ctx context.Context, id string) {
	msg := c.lookup(ctx, id)
	if msg == nil {
		return
	}

	ok, err := c.storage.UpdateMessageStatus(ctx, id, models.StatusDelivered, models.StatusSent, models.StatusDelivered)
	if err != nil {
		c.storeFailed("mark_delivered", err).Str("id", id).Msg("delivery ack dropped")
		return
	}
	if !ok {
		return
	}
	if msg.Status == models.StatusSent {
		metrics.MessagesDelivered.WithLabelValues("ack").Inc()
	}
	c.emitter.Emit(msg.From, models.EventMessageDelivered, models.StatusPayload{ID: msg.ID})
}

// MarkRead moves a message to its terminal state and tells the sender.
func (c *Coordinator) MarkRead(ctx context.Context, id string) {
	msg := c.lookup(ctx, id)
	if msg == nil {
		return
	}

	ok, err := c.storage.UpdateMessageStatus(ctx, id, models.StatusRead)
	if err != nil {
		c.storeFailed("mark_read", err).Str("id", id).Msg("read ack dropped")
		return
	}
	if !ok {
		return
	}
	metrics.MessagesRead.Inc()
	c.emitter.Emit(msg.From, models.EventMessageRead, models.StatusPayload{ID: msg.ID})
}

// redeliver runs the sweep for code, one message at a time.
func (c *Coordinator) redeliver(ctx context.Context, code string) {
	pending, err := c.storage.FindUndelivered(ctx, code)
	if err != nil {
		c.storeFailed("find_undelivered", err).Str("code", code).Msg("redelivery sweep skipped")
		return
	}
	if len(pending) == 0 {
		return
	}

	delivered := 0
	for i := range pending {
		if c.deliver(ctx, &pending[i], "sweep") {
			delivered++
		}
	}
	c.log.Info().Str("code", code).Int("pending", len(pending)).Int("delivered", delivered).Msg("redelivery sweep done")
}

// deliver claims msg (sent -> delivered) and, only if this call won the
// claim, pushes it to the recipient and notifies the sender.
func (c *Coordinator) deliver(ctx context.Context, msg *models.Message, path string) bool {
	claimed, err := c.storage.UpdateMessageStatus(ctx, msg.ID, models.StatusDelivered, models.StatusSent)
	if err != nil {
		c.storeFailed("claim", err).Str("id", msg.ID).Msg("delivery skipped")
		return false
	}
	if !claimed {
		return false
	}
	msg.Status = models.StatusDelivered

	c.emitter.Emit(msg.To, models.EventMessage, msg.Payload())
	c.emitter.Emit(msg.From, models.EventMessageDelivered, models.StatusPayload{ID: msg.ID})
	metrics.MessagesDelivered.WithLabelValues(path).Inc()
	return true
}

func (c *Coordinator) lookup(ctx context.Context, id string) *models.Message {
	if id == "" {
		return nil
	}
	msg, err := c.storage.FindMessage(ctx, id)
	if err != nil {
		c.storeFailed("find_message", err).Str("id", id).Msg("status update dropped")
		return nil
	}
	return msg
}

// announce pushes code's presence to peer, if there is one.
func (c *Coordinator) announce(code, peer string) {
	if peer == "" {
		return
	}
	c.emitter.Emit(peer, models.EventPresenceUpdate, c.presence.Snapshot(code))
}

func (c *Coordinator) buildMessage(req models.SendRequest) (*models.Message, error) {
	from := models.NormalizeCode(req.From)
	to := models.NormalizeCode(req.To)
	if from == "" || to == "" {
		return nil, ErrMissingFields
	}

	hasText := req.Text != nil && strings.TrimSpace(*req.Text) != ""
	hasMedia := req.Media != nil && req.Media.URL != ""
	if !hasText && !hasMedia {
		return nil, ErrEmptyMessage
	}

	msgType := req.Type
	if msgType == "" {
		msgType = models.TypeText
		if hasMedia {
			msgType = models.TypeImage
		}
	}
	if !msgType.Valid() {
		return nil, ErrInvalidType
	}

	msg := &models.Message{
		From:      from,
		To:        to,
		Type:      msgType,
		Status:    models.StatusSent,
		Timestamp: c.now().UTC(),
	}
	if req.Timestamp != nil && !req.Timestamp.IsZero() {
		msg.Timestamp = req.Timestamp.UTC()
	}

	switch msgType {
	case models.TypeText:
		if !hasText {
			return nil, ErrEmptyMessage
		}
		msg.Text = *req.Text
	case models.TypeImage:
		if !hasMedia {
			return nil, ErrEmptyMessage
		}
		msg.SetMedia(req.Media)
	}
	return msg, nil
}

func (c *Coordinator) storeFailed(op string, err error) *zerolog.Event {
	metrics.StoreErrors.WithLabelValues(op).Inc()
	return c.log.Error().Err(err).Str("op", op)
}
