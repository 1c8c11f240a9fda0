package chathub

import "pairchat/backend/internal/models"

// Client is one live session of a user code.
// It abstracts the underlying connection so the hub can route events to
// WebSocket sessions and test doubles alike.
type Client interface {
	// GetCode returns the canonical user code the session belongs to.
	GetCode() string
	// GetSessionID returns the connection identifier, unique per session.
	GetSessionID() string
	// GetPeer returns the peer hint whose presence this session follows.
	GetPeer() string
	// SetPeer records the peer hint, typically from presence:join.
	SetPeer(string)

	// Deliver queues an event for the session without blocking. It returns
	// false when the session is closed or its buffer is full.
	Deliver(models.OutboundEvent) bool

	// Run starts the client's read and write pumps.
	Run()
	// Close shuts the session down. It is safe to call more than once.
	Close()
}

// Emitter pushes an event to every live session of a user code.
type Emitter interface {
	Emit(code, event string, data any)
}
