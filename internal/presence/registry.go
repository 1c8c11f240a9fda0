// Package presence tracks which user codes have live sessions.
//
// The Registry is the single authoritative, process-wide presence table. It is
// not persisted and starts empty on every restart. A code is online while it
// has at least one session; last-seen is recorded when its last session leaves.
package presence

import (
	"sort"
	"sync"
	"time"

	"pairchat/backend/internal/models"
)

// Registry maps user codes to their set of session ids.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]map[string]struct{}
	lastSeen map[string]time.Time
	now      func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock replaces time.Now, used by tests to pin last-seen values.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		sessions: make(map[string]map[string]struct{}),
		lastSeen: make(map[string]time.Time),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddSession registers sessionID for code. It reports whether this was the
// code's first live session, i.e. whether the code just came online.
func (r *Registry) AddSession(code, sessionID string) (first bool) {
	code = models.NormalizeCode(code)

	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sessions[code]
	if !ok {
		set = make(map[string]struct{})
		r.sessions[code] = set
	}
	set[sessionID] = struct{}{}
	return len(set) == 1
}

// RemoveSession drops sessionID from code. When the last session leaves the
// entry is deleted and last-seen is stamped. It reports whether the code went
// fully offline with this call; removing an unknown session is a no-op.
func (r *Registry) RemoveSession(code, sessionID string) (offline bool) {
	code = models.NormalizeCode(code)

	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sessions[code]
	if !ok {
		return false
	}
	if _, ok := set[sessionID]; !ok {
		return false
	}
	delete(set, sessionID)
	if len(set) > 0 {
		return false
	}
	delete(r.sessions, code)
	r.lastSeen[code] = r.now()
	return true
}

// IsOnline reports whether code has at least one session.
func (r *Registry) IsOnline(code string) bool {
	return r.SessionCount(code) > 0
}

// SessionCount returns the number of live sessions for code.
func (r *Registry) SessionCount(code string) int {
	code = models.NormalizeCode(code)

	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions[code])
}

// Snapshot returns the read-only presence projection for code.
func (r *Registry) Snapshot(code string) models.Presence {
	code = models.NormalizeCode(code)

	r.mu.Lock()
	defer r.mu.Unlock()

	p := models.Presence{
		Code:   code,
		Online: len(r.sessions[code]) > 0,
	}
	if ts, ok := r.lastSeen[code]; ok {
		ms := ts.UnixMilli()
		p.LastSeen = &ms
	}
	return p
}

// OnlineCodes lists every code with a live session, sorted.
func (r *Registry) OnlineCodes() []string {
	r.mu.Lock()
	codes := make([]string, 0, len(r.sessions))
	for code := range r.sessions {
		codes = append(codes, code)
	}
	r.mu.Unlock()

	sort.Strings(codes)
	return codes
}
