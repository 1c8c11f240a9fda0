package chathub

import (
	"context"
	"encoding/json"
	"strings"

	"pairchat/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const channelPrefix = "pairchat:user:"

// busMessage is what travels over Redis between instances.
type busMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// RedisEmitter fans events out through Redis Pub/Sub so that a session held by
// another instance still receives them. Every instance runs Listen and hands
// what it hears to its local hub.
//
// Only events travel over Redis. Presence stays per process, so Send on one
// instance treats a recipient connected elsewhere as offline: the message is
// stored as "sent" and reaches them through redelivery on their next Connect.
type RedisEmitter struct {
	client *redis.Client
	local  Emitter
	log    zerolog.Logger
}

// NewRedisEmitter wraps the local emitter with a Redis fan-out.
func NewRedisEmitter(client *redis.Client, local Emitter, logger zerolog.Logger) *RedisEmitter {
	return &RedisEmitter{
		client: client,
		local:  local,
		log:    logger.With().Str("component", "pubsub").Logger(),
	}
}

func userChannel(code string) string {
	return channelPrefix + models.NormalizeCode(code)
}

// Emit publishes the event on the recipient's channel. If Redis is not
// reachable the event is delivered to local sessions only.
func (r *RedisEmitter) Emit(code, event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		r.log.Error().Err(err).Str("event", event).Msg("failed to encode event")
		return
	}
	body, err := json.Marshal(busMessage{Event: event, Data: payload})
	if err != nil {
		r.log.Error().Err(err).Str("event", event).Msg("failed to encode event")
		return
	}

	if err := r.client.Publish(context.Background(), userChannel(code), body).Err(); err != nil {
		r.log.Warn().Err(err).Str("code", code).Str("event", event).Msg("publish failed, delivering locally")
		r.local.Emit(code, event, data)
	}
}

// Listen слухає Redis Pub/Sub і передає події локальному хабу, доки ctx живий.
// It returns once the subscription is confirmed.
func (r *RedisEmitter) Listen(ctx context.Context) error {
	pubsub := r.client.PSubscribe(ctx, channelPrefix+"*")
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return err
	}

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				r.dispatch(msg)
			}
		}
	}()
	return nil
}

func (r *RedisEmitter) dispatch(msg *redis.Message) {
	code := strings.TrimPrefix(msg.Channel, channelPrefix)

	var bm busMessage
	if err := json.Unmarshal([]byte(msg.Payload), &bm); err != nil {
		r.log.Warn().Err(err).Str("channel", msg.Channel).Msg("error unmarshalling redis message")
		return
	}
	r.local.Emit(code, bm.Event, bm.Data)
}
