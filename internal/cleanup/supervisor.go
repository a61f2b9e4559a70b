package cleanup

import (
	"context"
	"sync"
	"time"

	"pdf-qa-be/internal/pkg/logger"
	"pdf-qa-be/internal/session"
	"pdf-qa-be/internal/storage"
	"pdf-qa-be/pkg/events"
	natsPkg "pdf-qa-be/pkg/nats"
	"pdf-qa-be/pkg/vectorstore"
)

// ingestGrace bounds how long cleanup waits for in-flight ingestion before
// deleting anyway. Ingestion is allowed to finish rather than cancelled so a
// worker never reads a file out from under itself.
const ingestGrace = 2 * time.Minute

// Supervisor reclaims all session resources: stored files, vector entries
// and the in-memory session itself, in that order. It also sweeps sessions
// that uploaded documents but never connected.
type Supervisor struct {
	sessions *session.Manager
	store    *storage.DocumentStore
	vector   vectorstore.Client
	eventPub *natsPkg.Publisher // optional
	logger   logger.ILogger

	orphanTTL     time.Duration
	sweepInterval time.Duration

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewSupervisor(
	sessions *session.Manager,
	store *storage.DocumentStore,
	vector vectorstore.Client,
	eventPub *natsPkg.Publisher,
	log logger.ILogger,
	orphanTTL, sweepInterval time.Duration,
) *Supervisor {
	return &Supervisor{
		sessions:      sessions,
		store:         store,
		vector:        vector,
		eventPub:      eventPub,
		logger:        log,
		orphanTTL:     orphanTTL,
		sweepInterval: sweepInterval,
		inflight:      make(map[string]struct{}),
	}
}

// Cleanup runs the full reclamation sequence for one session. Calling it for
// an unknown or already-cleaned session is a no-op. Errors are logged, never
// returned to a client: cleanup runs after the client has left.
func (s *Supervisor) Cleanup(ctx context.Context, sessionId string) {
	s.mu.Lock()
	if _, busy := s.inflight[sessionId]; busy {
		s.mu.Unlock()
		return
	}
	s.inflight[sessionId] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.inflight, sessionId)
		s.mu.Unlock()
	}()

	sess, ok := s.sessions.Get(sessionId)
	if !ok {
		return
	}

	// Never delete files an ingestion worker may still be reading.
	waitCtx, cancel := context.WithTimeout(ctx, ingestGrace)
	err := sess.WaitIngestion(waitCtx)
	cancel()
	if err != nil {
		s.logger.Warn("CleanupSupervisor", "Ingestion still running past grace period, deleting anyway", map[string]interface{}{
			"session_id": sessionId,
		})
	}

	if err := s.store.RemoveSession(sessionId); err != nil {
		s.logger.Error("CleanupSupervisor", "Failed to delete stored files", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
	}

	if err := s.vector.DeleteSession(ctx, sessionId); err != nil {
		s.logger.Error("CleanupSupervisor", "Failed to delete vector entries", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
	}

	s.sessions.Remove(sessionId)

	s.logger.Info("CleanupSupervisor", "Session cleaned", map[string]interface{}{
		"session_id": sessionId,
	})

	if s.eventPub != nil {
		if err := s.eventPub.Publish(ctx, events.NewSessionCleaned(sessionId)); err != nil {
			s.logger.Warn("CleanupSupervisor", "Failed to publish cleaned event", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}

// Start runs the periodic orphan sweep until the context is cancelled.
func (s *Supervisor) Start(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	go func() {
		defer ticker.Stop()
		s.logger.Info("CleanupSupervisor", "Orphan sweep started", map[string]interface{}{
			"interval": s.sweepInterval.String(),
			"ttl":      s.orphanTTL.String(),
		})

		for {
			select {
			case <-ticker.C:
				s.sweep(ctx)
			case <-ctx.Done():
				s.logger.Info("CleanupSupervisor", "Orphan sweep shutting down", nil)
				return
			}
		}
	}()
}

// sweep reclaims sessions that never connected (or whose close-time cleanup
// failed) once their last activity exceeds the TTL.
func (s *Supervisor) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.orphanTTL)
	for _, sess := range s.sessions.List() {
		state := sess.ConnState()
		if state == session.ConnConnected {
			continue
		}
		if sess.LastActivity().After(cutoff) {
			continue
		}
		s.logger.Info("CleanupSupervisor", "Sweeping stale session", map[string]interface{}{
			"session_id": sess.Id,
			"state":      string(state),
		})
		// One session blocked on the ingest grace must not hold up the rest
		// of the sweep; the inflight set already de-duplicates.
		go s.Cleanup(ctx, sess.Id)
	}
}
