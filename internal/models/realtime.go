package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Event names exchanged over the realtime connection.
const (
	EventError            = "error"
	EventAck              = "ack"
	EventPresenceJoin     = "presence:join"
	EventPresenceQuery    = "presence:query"
	EventPresenceUpdate   = "presence:update"
	EventMessageSend      = "message:send"
	EventMessage          = "message"
	EventMessageSent      = "message:sent"
	EventMessageDelivered = "message:delivered"
	EventMessageRead      = "message:read"
)

// Envelope is one inbound frame. Ack is a caller-supplied handle; when it is
// set the server answers with an "ack" event carrying the same handle.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	Ack   string          `json:"ack,omitempty"`
}

// OutboundEvent is one frame pushed to a client.
type OutboundEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
	Ack   string `json:"ack,omitempty"`
}

// Presence is the projection used for presence broadcasts and queries.
// LastSeen is epoch milliseconds, nil while the user has never gone offline.
type Presence struct {
	Code     string `json:"code"`
	Online   bool   `json:"online"`
	LastSeen *int64 `json:"lastSeen"`
}

type PresenceJoin struct {
	Code string `json:"code"`
	Peer string `json:"peer"`
}

type PresenceQuery struct {
	Who string `json:"who"`
}

// SendRequest is the payload of "message:send". ID is the client's temporary id.
type SendRequest struct {
	ID        string      `json:"id"`
	Text      *string     `json:"text"`
	From      string      `json:"from"`
	To        string      `json:"to"`
	Timestamp *ClientTime `json:"timestamp"`
	Type      MessageType `json:"type"`
	Media     *Media      `json:"media"`
}

// SendAck answers "message:send".
type SendAck struct {
	OK    bool   `json:"ok"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}

// MessagePayload is the wire form of a message.
type MessagePayload struct {
	ID           string        `json:"id"`
	Conversation string        `json:"conversation,omitempty"`
	Text         *string       `json:"text"`
	From         string        `json:"from"`
	To           string        `json:"to"`
	Type         MessageType   `json:"type"`
	Media        *Media        `json:"media"`
	Timestamp    int64         `json:"timestamp"`
	Status       MessageStatus `json:"status,omitempty"`
}

// MessageSent reconciles the client's temporary id with the persisted one.
type MessageSent struct {
	TempID string `json:"tempId"`
	RealID string `json:"realId"`
}

// StatusPayload carries a message id for delivered/read events.
type StatusPayload struct {
	ID string `json:"id"`
}

// ClientTime accepts either epoch milliseconds or an RFC 3339 string.
type ClientTime struct {
	time.Time
}

func (t *ClientTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := ParseClientTime(s)
		if err != nil {
			return err
		}
		t.Time = parsed
		return nil
	}
	var ms float64
	if err := json.Unmarshal(data, &ms); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	t.Time = time.UnixMilli(int64(ms)).UTC()
	return nil
}

func (t ClientTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UnixMilli())
}

// ParseClientTime parses epoch milliseconds or an RFC 3339 timestamp.
func ParseClientTime(s string) (time.Time, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q: %w", s, err)
	}
	return parsed.UTC(), nil
}
