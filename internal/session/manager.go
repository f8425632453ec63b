package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joeblew999/nycmap/internal/metrics"
)

// Factory builds a session for a new id.
type Factory func(id string) *Session

type entry struct {
	session  *Session
	lastSeen time.Time
}

// Manager maps session ids to live sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	factory  Factory
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewManager creates an empty manager.
func NewManager(factory Factory, m *metrics.Metrics) *Manager {
	return &Manager{
		sessions: make(map[string]*entry),
		factory:  factory,
		metrics:  m,
		now:      time.Now,
	}
}

// Create starts a session under a fresh id.
func (m *Manager) Create() *Session {
	s := m.factory(uuid.NewString())

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = &entry{session: s, lastSeen: m.now()}
	m.metrics.SetSessions(len(m.sessions))
	return s
}

// Get returns the session with the given id and marks it as seen.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSession, id)
	}
	e.lastSeen = m.now()
	return e.session, nil
}

// Delete forgets a session.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	m.metrics.SetSessions(len(m.sessions))
}

// Prune forgets sessions not seen for longer than idle and returns how
// many were dropped.
func (m *Manager) Prune(idle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-idle)
	n := 0
	for id, e := range m.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	m.metrics.SetSessions(len(m.sessions))
	return n
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
