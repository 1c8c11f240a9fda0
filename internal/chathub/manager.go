package chathub

import (
	"sync"

	"pairchat/backend/internal/metrics"
	"pairchat/backend/internal/models"

	"github.com/rs/zerolog"
)

// ManagerService тримає таблицю маршрутизації: код користувача -> його живі сесії.
// It is the local Emitter: events for a code are queued on every session of
// that code held by this process.
type ManagerService struct {
	mu      sync.RWMutex
	clients map[string]map[string]Client

	log zerolog.Logger
}

// NewManagerService creates an empty hub.
func NewManagerService(logger zerolog.Logger) *ManagerService {
	return &ManagerService{
		clients: make(map[string]map[string]Client),
		log:     logger.With().Str("component", "hub").Logger(),
	}
}

// Register adds a session to the routing table. It must run before the
// session is announced to the coordinator so the redelivery sweep can reach it.
func (m *ManagerService) Register(client Client) {
	code := client.GetCode()

	m.mu.Lock()
	sessions, ok := m.clients[code]
	if !ok {
		sessions = make(map[string]Client)
		m.clients[code] = sessions
	}
	sessions[client.GetSessionID()] = client
	m.mu.Unlock()

	metrics.WSConnections.Inc()
	m.log.Debug().Str("code", code).Str("session", client.GetSessionID()).Msg("session registered")
}

// Unregister removes a session from the routing table and closes it.
// Unknown sessions are ignored, so calling it twice is harmless.
func (m *ManagerService) Unregister(client Client) {
	code := client.GetCode()
	sessionID := client.GetSessionID()

	m.mu.Lock()
	sessions, ok := m.clients[code]
	_, known := sessions[sessionID]
	if ok && known {
		delete(sessions, sessionID)
		if len(sessions) == 0 {
			delete(m.clients, code)
		}
	}
	m.mu.Unlock()

	client.Close()
	if known {
		metrics.WSConnections.Dec()
		m.log.Debug().Str("code", code).Str("session", sessionID).Msg("session unregistered")
	}
}

// Emit queues an event on every local session of code. A session whose
// buffer is full is closed; its read pump then runs the normal disconnect path.
func (m *ManagerService) Emit(code, event string, data any) {
	code = models.NormalizeCode(code)
	ev := models.OutboundEvent{Event: event, Data: data}

	m.mu.RLock()
	targets := make([]Client, 0, len(m.clients[code]))
	for _, client := range m.clients[code] {
		targets = append(targets, client)
	}
	m.mu.RUnlock()

	for _, client := range targets {
		if !client.Deliver(ev) {
			m.log.Warn().
				Str("code", code).
				Str("session", client.GetSessionID()).
				Str("event", event).
				Msg("session send buffer full or closed, dropping session")
			client.Close()
		}
	}
}

// SessionCount returns the number of sessions this hub holds for code.
func (m *ManagerService) SessionCount(code string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients[models.NormalizeCode(code)])
}

// CloseAll closes every session, used on shutdown.
func (m *ManagerService) CloseAll() {
	m.mu.RLock()
	var all []Client
	for _, sessions := range m.clients {
		for _, client := range sessions {
			all = append(all, client)
		}
	}
	m.mu.RUnlock()

	for _, client := range all {
		client.Close()
	}
}
