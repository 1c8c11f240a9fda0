package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageType is fixed when the message is created.
type MessageType string

const (
	TypeText  MessageType = "text"
	TypeImage MessageType = "image"
)

// Valid reports whether t is a known message type.
func (t MessageType) Valid() bool {
	return t == TypeText || t == TypeImage
}

// MessageStatus only ever moves forward: sent -> delivered -> read.
type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

// Rank orders statuses along the delivery lifecycle. Unknown statuses rank 0.
func (s MessageStatus) Rank() int {
	switch s {
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	}
	return 0
}

// Media describes an image attachment. All fields are informational.
type Media struct {
	URL    string `json:"url"`
	Mime   string `json:"mime,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Size   int64  `json:"size,omitempty"`
}

// Message is a persisted chat message.
// The composite indexes serve history reads (conversation, timestamp) and the
// redelivery sweep (to, status, timestamp).
type Message struct {
	ID             string        `gorm:"primaryKey;size:36"`
	ConversationID string        `gorm:"size:36;not null;index:idx_messages_conversation_ts,priority:1"`
	From           string        `gorm:"column:from_code;size:64;not null"`
	To             string        `gorm:"column:to_code;size:64;not null;index:idx_messages_to_status_ts,priority:1"`
	Type           MessageType   `gorm:"size:16;not null;default:text"`
	Text           string        `gorm:"type:text"`
	MediaURL       string        `gorm:"size:1024"`
	MediaMime      string        `gorm:"size:128"`
	MediaWidth     int
	MediaHeight    int
	MediaSize      int64
	Timestamp      time.Time     `gorm:"column:sent_at;not null;index:idx_messages_conversation_ts,priority:2;index:idx_messages_to_status_ts,priority:3"`
	Status         MessageStatus `gorm:"size:16;not null;default:sent;index:idx_messages_to_status_ts,priority:2"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// BeforeCreate generates the message ID.
func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Status == "" {
		m.Status = StatusSent
	}
	return
}

// Media returns the attachment, or nil for text messages.
func (m *Message) Media() *Media {
	if m.Type != TypeImage || m.MediaURL == "" {
		return nil
	}
	return &Media{
		URL:    m.MediaURL,
		Mime:   m.MediaMime,
		Width:  m.MediaWidth,
		Height: m.MediaHeight,
		Size:   m.MediaSize,
	}
}

// SetMedia copies an attachment onto the flat media columns.
func (m *Message) SetMedia(media *Media) {
	if media == nil {
		m.MediaURL, m.MediaMime = "", ""
		m.MediaWidth, m.MediaHeight, m.MediaSize = 0, 0, 0
		return
	}
	m.MediaURL = media.URL
	m.MediaMime = media.Mime
	m.MediaWidth = media.Width
	m.MediaHeight = media.Height
	m.MediaSize = media.Size
}

// Payload is the projection pushed to the recipient as a "message" event.
func (m *Message) Payload() MessagePayload {
	p := MessagePayload{
		ID:        m.ID,
		From:      m.From,
		To:        m.To,
		Type:      m.Type,
		Media:     m.Media(),
		Timestamp: m.Timestamp.UnixMilli(),
	}
	if m.Type == TypeText {
		text := m.Text
		p.Text = &text
	}
	return p
}

// HistoryPayload extends Payload with the fields the history API exposes.
func (m *Message) HistoryPayload() MessagePayload {
	p := m.Payload()
	p.Conversation = m.ConversationID
	p.Status = m.Status
	return p
}
