package session

import (
	"sync"

	"github.com/google/uuid"

	"pdf-qa-be/internal/pkg/logger"
)

// Manager owns the registry of live sessions. The registry mutex only guards
// membership; per-session state is guarded by each session's own mutex.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	logger   logger.ILogger
}

func NewManager(log logger.ILogger) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		logger:   log,
	}
}

// Create allocates a session holding the given queued document records and
// registers it. It never blocks on ingestion. The id is minted by the caller
// so stored file paths can be scoped by it before registration.
func (m *Manager) Create(id string, records []*DocumentRecord) *Session {
	s := newSession(id, records)

	m.mu.Lock()
	m.sessions[s.Id] = s
	m.mu.Unlock()

	m.logger.Info("SessionManager", "Session created", map[string]interface{}{
		"session_id": s.Id,
		"documents":  len(records),
	})
	return s
}

func (m *Manager) Get(sessionId string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionId]
	return s, ok
}

// Remove drops the session from the registry. Removing an unknown id is a
// no-op so repeated cleanup stays idempotent.
func (m *Manager) Remove(sessionId string) {
	m.mu.Lock()
	delete(m.sessions, sessionId)
	m.mu.Unlock()
}

// List snapshots the registered sessions, for the orphan sweep.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// MarkProcessing flags a document as being ingested.
func (m *Manager) MarkProcessing(sessionId string, docId uuid.UUID) error {
	s, ok := m.Get(sessionId)
	if !ok {
		return ErrNotFound
	}
	return s.markProcessing(docId)
}

// MarkReady records a successful ingestion and signals readiness if this was
// the first ready document.
func (m *Manager) MarkReady(sessionId string, docId uuid.UUID) error {
	s, ok := m.Get(sessionId)
	if !ok {
		return ErrNotFound
	}
	if err := s.markReady(docId); err != nil {
		return err
	}
	m.logger.Info("SessionManager", "Document ready", map[string]interface{}{
		"session_id":  sessionId,
		"document_id": docId,
	})
	return nil
}

// MarkFailed records a failed ingestion with a human-readable reason.
func (m *Manager) MarkFailed(sessionId string, docId uuid.UUID, reason string) error {
	s, ok := m.Get(sessionId)
	if !ok {
		return ErrNotFound
	}
	if err := s.markFailed(docId, reason); err != nil {
		return err
	}
	m.logger.Warn("SessionManager", "Document failed", map[string]interface{}{
		"session_id":  sessionId,
		"document_id": docId,
		"reason":      reason,
	})
	return nil
}

// Touch refreshes the last-activity timestamp, exempting the session from the
// orphan sweep.
func (m *Manager) Touch(sessionId string) {
	if s, ok := m.Get(sessionId); ok {
		s.Touch()
	}
}
