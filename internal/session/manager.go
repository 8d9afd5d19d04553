package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"ReportMapper/internal/editor"
)

var ErrNotFound = errors.New("session not found or expired")

// Session is one user's open editor.
type Session struct {
	ID        string
	UserID    string
	Editor    *editor.Editor
	CreatedAt time.Time
	ExpiresAt time.Time
	cancel    []func()
}

// OnClose registers fn to run when the session is deleted or expires,
// typically to drop editor subscriptions.
func (s *Session) OnClose(fn func()) {
	s.cancel = append(s.cancel, fn)
}

func (s *Session) close() {
	for _, fn := range s.cancel {
		fn()
	}
	s.cancel = nil
}

type Manager struct {
	sessions map[string]*Session
	mu       sync.Mutex
	now      func() time.Time
	ttl      time.Duration
}

func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		now:      time.Now,
		ttl:      ttl,
	}
}

func (m *Manager) CreateSession(userID string, ed *editor.Editor) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	session := &Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		Editor:    ed,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	m.sessions[session.ID] = session
	return session
}

// GetSession returns a live session. Expired sessions are treated as gone
// even before the sweeper removes them.
func (m *Manager) GetSession(sessionID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[sessionID]
	if !exists || m.now().After(session.ExpiresAt) {
		return nil, false
	}
	return session, true
}

// Touch slides a session's expiry forward.
func (m *Manager) Touch(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[sessionID]
	if !exists || m.now().After(session.ExpiresAt) {
		return nil, ErrNotFound
	}
	session.ExpiresAt = m.now().Add(m.ttl)
	return session, nil
}

func (m *Manager) DeleteSession(sessionID string) {
	m.mu.Lock()
	session, exists := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	if exists {
		session.close()
	}
}

// CleanupExpiredSessions removes expired sessions and reports how many went.
func (m *Manager) CleanupExpiredSessions() int {
	m.mu.Lock()
	var expired []*Session
	now := m.now()
	for id, session := range m.sessions {
		if now.After(session.ExpiresAt) {
			expired = append(expired, session)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.close()
	}
	return len(expired)
}

// Count is the number of sessions held, expired or not.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
