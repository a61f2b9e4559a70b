package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

type DocumentStatus string

const (
	StatusQueued     DocumentStatus = "queued"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

// Terminal reports whether a status can no longer change.
func (s DocumentStatus) Terminal() bool {
	return s == StatusReady || s == StatusFailed
}

type ConnState string

const (
	ConnUnconnected ConnState = "unconnected"
	ConnConnected   ConnState = "connected"
	ConnClosed      ConnState = "closed"
)

var (
	ErrNotFound         = errors.New("session not found")
	ErrUnknownDocument  = errors.New("document not part of session")
	ErrBadTransition    = errors.New("invalid document status transition")
	ErrAlreadyConnected = errors.New("session already has an active connection")
	ErrSessionEnded     = errors.New("session has ended")
)

// DocumentRecord tracks one uploaded file through ingestion.
type DocumentRecord struct {
	Id            uuid.UUID
	OriginalName  string
	StoredName    string
	StoredPath    string
	Size          int64
	Status        DocumentStatus
	FailureReason string
}

// Session groups one client's uploaded documents and their processing state.
// All mutable fields are guarded by the per-session mutex so unrelated
// sessions never contend.
type Session struct {
	Id        string
	CreatedAt time.Time

	mu           sync.Mutex
	lastActivity time.Time
	documents    []*DocumentRecord
	connState    ConnState
	pending      int // documents not yet in a terminal status

	readyCh     chan struct{} // closed: at least one doc ready, or all terminal
	readySealed bool
	ingestDone  chan struct{} // closed: every doc terminal
}

func newSession(id string, records []*DocumentRecord) *Session {
	now := time.Now()
	s := &Session{
		Id:           id,
		CreatedAt:    now,
		lastActivity: now,
		documents:    records,
		connState:    ConnUnconnected,
		pending:      len(records),
		readyCh:      make(chan struct{}),
		ingestDone:   make(chan struct{}),
	}
	if s.pending == 0 {
		close(s.ingestDone)
	}
	return s
}

func (s *Session) findDocument(docId uuid.UUID) *DocumentRecord {
	for _, doc := range s.documents {
		if doc.Id == docId {
			return doc
		}
	}
	return nil
}

func (s *Session) markProcessing(docId uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.findDocument(docId)
	if doc == nil {
		return ErrUnknownDocument
	}
	if doc.Status != StatusQueued {
		return ErrBadTransition
	}
	doc.Status = StatusProcessing
	return nil
}

func (s *Session) markReady(docId uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.findDocument(docId)
	if doc == nil {
		return ErrUnknownDocument
	}
	if doc.Status != StatusProcessing {
		return ErrBadTransition
	}
	doc.Status = StatusReady
	s.settle()
	return nil
}

func (s *Session) markFailed(docId uuid.UUID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.findDocument(docId)
	if doc == nil {
		return ErrUnknownDocument
	}
	// Cancellation may fail a document straight from queued; ready/failed
	// are terminal and never move again.
	if doc.Status.Terminal() {
		return ErrBadTransition
	}
	doc.Status = StatusFailed
	doc.FailureReason = reason
	s.settle()
	return nil
}

// settle updates the readiness and completion signals after a terminal
// transition. Caller holds s.mu.
func (s *Session) settle() {
	s.pending--
	ready := 0
	for _, doc := range s.documents {
		if doc.Status == StatusReady {
			ready++
		}
	}
	if !s.readySealed && (ready > 0 || s.pending == 0) {
		close(s.readyCh)
		s.readySealed = true
	}
	if s.pending == 0 {
		close(s.ingestDone)
	}
}

// Ready returns a channel closed once at least one document is ready or all
// documents have reached a terminal status.
func (s *Session) Ready() <-chan struct{} {
	return s.readyCh
}

// WaitIngestion blocks until every document has reached a terminal status.
func (s *Session) WaitIngestion(ctx context.Context) error {
	select {
	case <-s.ingestDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Attach registers the single realtime connection for this session. A closed
// session is terminal: its resources are already being reclaimed, so a
// reconnect must not revive it.
func (s *Session) Attach() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.connState {
	case ConnConnected:
		return ErrAlreadyConnected
	case ConnClosed:
		return ErrSessionEnded
	}
	s.connState = ConnConnected
	s.lastActivity = time.Now()
	return nil
}

// Detach transitions the session to closed after its connection goes away.
func (s *Session) Detach() {
	s.mu.Lock()
	s.connState = ConnClosed
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

func (s *Session) ConnState() ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connState
}

// Documents returns a point-in-time copy of the document records.
func (s *Session) Documents() []DocumentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]DocumentRecord, len(s.documents))
	for i, doc := range s.documents {
		out[i] = *doc
	}
	return out
}

// Progress summarises document statuses for readiness decisions.
type Progress struct {
	Total   int
	Ready   int
	Failed  int
	Pending int
}

func (p Progress) AllFailed() bool {
	return p.Total > 0 && p.Failed == p.Total
}

func (p Progress) AllTerminal() bool {
	return p.Pending == 0
}

func (s *Session) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := Progress{Total: len(s.documents), Pending: s.pending}
	for _, doc := range s.documents {
		switch doc.Status {
		case StatusReady:
			p.Ready++
		case StatusFailed:
			p.Failed++
		}
	}
	return p
}
