package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
	ErrSessionClosed        = errors.New("session closed")
)

// Manager keeps the live sessions of this process
type Manager struct {
	sessions    map[string]*Session
	persistence Persistence
	logger      *slog.Logger
	mu          sync.RWMutex
}

// NewManager creates a new session manager
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		logger:   slog.Default(),
	}
}

// NewManagerWithPersistence creates a session manager that archives
// sessions to persistence when they end
func NewManagerWithPersistence(persistence Persistence, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		sessions:    make(map[string]*Session),
		persistence: persistence,
		logger:      logger,
	}
}

// NewID returns a fresh session ID
func NewID() string {
	return uuid.NewString()
}

// Create builds a session around an open transport and registers it
func (m *Manager) Create(room, player string, t Transport, opts ...Option) (*Session, error) {
	sess := New(NewID(), room, player, t, opts...)
	if err := m.Add(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Add registers an existing session
func (m *Manager) Add(sess *Session) error {
	if sess.ID == "" {
		return ErrInvalidSessionID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[sess.ID]; exists {
		return ErrSessionAlreadyExists
	}
	m.sessions[sess.ID] = sess
	return nil
}

// Get retrieves a live session by ID
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, exists := m.sessions[id]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// List returns all live sessions
func (m *Manager) List() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		result = append(result, sess)
	}
	return result
}

// Archive closes a session, stores its record and drops it from memory
func (m *Manager) Archive(id string) error {
	m.mu.Lock()
	sess, exists := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !exists {
		return ErrSessionNotFound
	}

	if err := sess.Close(); err != nil {
		m.logger.Warn("closing session transport", "session", id, "error", err)
	}

	if m.persistence == nil {
		return nil
	}
	if err := m.persistence.Save(sess.Record()); err != nil {
		return fmt.Errorf("failed to persist session %s: %w", id, err)
	}
	return nil
}

// Delete removes a session from memory and from persistence
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	sess, inMemory := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if inMemory {
		_ = sess.Close()
	}

	if m.persistence != nil && m.persistence.Exists(id) {
		if err := m.persistence.Delete(id); err != nil {
			return fmt.Errorf("failed to delete persisted session: %w", err)
		}
		return nil
	}

	if !inMemory {
		return ErrSessionNotFound
	}
	return nil
}

// Record returns the record of a live or archived session
func (m *Manager) Record(id string) (*Record, error) {
	if sess, err := m.Get(id); err == nil {
		return sess.Record(), nil
	}
	if m.persistence != nil && m.persistence.Exists(id) {
		return m.persistence.Load(id)
	}
	return nil, ErrSessionNotFound
}

// CleanupClosedSessions archives sessions whose connection has ended
func (m *Manager) CleanupClosedSessions() int {
	m.mu.RLock()
	var closed []string
	for id, sess := range m.sessions {
		if sess.Closed() {
			closed = append(closed, id)
		}
	}
	m.mu.RUnlock()

	removed := 0
	for _, id := range closed {
		if err := m.Archive(id); err != nil && !errors.Is(err, ErrSessionNotFound) {
			m.logger.Warn("archiving closed session", "session", id, "error", err)
		}
		removed++
	}
	return removed
}

// CloseAll archives every live session. Used on shutdown.
func (m *Manager) CloseAll() error {
	var errs []error
	for _, sess := range m.List() {
		if err := m.Archive(sess.ID); err != nil && !errors.Is(err, ErrSessionNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Count returns the number of live sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
