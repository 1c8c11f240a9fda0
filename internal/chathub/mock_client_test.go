package chathub_test

import (
	"sync"

	"pairchat/backend/internal/models"
)

// MockClient is an in-memory chathub.Client. Delivered events land in
// RecvChannel; a full channel makes Deliver report failure like a slow socket.
type MockClient struct {
	code        string
	sessionID   string
	RecvChannel chan models.OutboundEvent

	mu     sync.Mutex
	peer   string
	closed bool
	closes int
}

func newMockClient(code, sessionID string) *MockClient {
	return &MockClient{
		code:        code,
		sessionID:   sessionID,
		RecvChannel: make(chan models.OutboundEvent, 10),
	}
}

func (c *MockClient) GetCode() string      { return c.code }
func (c *MockClient) GetSessionID() string { return c.sessionID }

func (c *MockClient) GetPeer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peer
}

func (c *MockClient) SetPeer(peer string) {
	c.mu.Lock()
	c.peer = peer
	c.mu.Unlock()
}

func (c *MockClient) Deliver(ev models.OutboundEvent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.RecvChannel <- ev:
		return true
	default:
		return false
	}
}

func (c *MockClient) Run() {
	// Not needed for testing
}

func (c *MockClient) Close() {
	c.mu.Lock()
	c.closed = true
	c.closes++
	c.mu.Unlock()
}

func (c *MockClient) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// drain returns every event queued so far.
func (c *MockClient) drain() []models.OutboundEvent {
	var out []models.OutboundEvent
	for {
		select {
		case ev := <-c.RecvChannel:
			out = append(out, ev)
		default:
			return out
		}
	}
}

// recordedEmit is one call seen by recordingEmitter.
type recordedEmit struct {
	Code  string
	Event string
	Data  any
}

// recordingEmitter captures every Emit in order.
type recordingEmitter struct {
	mu     sync.Mutex
	events []recordedEmit
}

func (e *recordingEmitter) Emit(code, event string, data any) {
	e.mu.Lock()
	e.events = append(e.events, recordedEmit{Code: code, Event: event, Data: data})
	e.mu.Unlock()
}

func (e *recordingEmitter) all() []recordedEmit {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]recordedEmit(nil), e.events...)
}

// filter returns the emits for code with the given event name.
func (e *recordingEmitter) filter(code, event string) []recordedEmit {
	var out []recordedEmit
	for _, ev := range e.all() {
		if ev.Code == code && ev.Event == event {
			out = append(out, ev)
		}
	}
	return out
}
