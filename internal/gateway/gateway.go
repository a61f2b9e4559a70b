package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/websocket/v2"

	"pdf-qa-be/internal/cleanup"
	"pdf-qa-be/internal/pkg/logger"
	"pdf-qa-be/internal/ratelimit"
	"pdf-qa-be/internal/session"
	"pdf-qa-be/pkg/rag"
	"pdf-qa-be/pkg/vectorstore"
)

// Connection state machine. A connection starts PENDING, becomes AUTHORIZED
// once the session id resolves, ACTIVE while accepting questions, and CLOSED
// terminally.
type connState string

const (
	statePending    connState = "PENDING"
	stateAuthorized connState = "AUTHORIZED"
	stateActive     connState = "ACTIVE"
	stateClosed     connState = "CLOSED"
)

const (
	// Close codes: 1008 (policy violation) for unknown/duplicate sessions,
	// matching the upload-first contract; 1000 for graceful completion.
	closeUnknownSession   = websocket.ClosePolicyViolation
	closeDuplicateSession = websocket.ClosePolicyViolation
	closeNormal           = websocket.CloseNormalClosure

	topKContext = 3
)

const (
	msgStillProcessing = "Your documents are still being processed. Please try again in a moment."
	msgAnswerFailure   = "Sorry, something went wrong while answering that. Please try again."
)

// Conn is the slice of *websocket.Conn the gateway needs; tests substitute a
// fake.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Gateway bridges one websocket connection per session to the vector index
// and the reasoning backend.
type Gateway struct {
	sessions   *session.Manager
	limiter    ratelimit.Limiter
	vector     vectorstore.Client
	answerer   rag.Answerer
	supervisor *cleanup.Supervisor
	logger     logger.ILogger
	readyWait  time.Duration
}

func New(
	sessions *session.Manager,
	limiter ratelimit.Limiter,
	vector vectorstore.Client,
	answerer rag.Answerer,
	supervisor *cleanup.Supervisor,
	log logger.ILogger,
	readyWait time.Duration,
) *Gateway {
	return &Gateway{
		sessions:   sessions,
		limiter:    limiter,
		vector:     vector,
		answerer:   answerer,
		supervisor: supervisor,
		logger:     log,
		readyWait:  readyWait,
	}
}

// Handle owns the connection lifecycle. It blocks until the client leaves,
// then hands the session to the cleanup supervisor.
func (g *Gateway) Handle(conn Conn, sessionId, identity string) {
	state := statePending

	sess, ok := g.sessions.Get(sessionId)
	if !ok {
		g.logger.Warn("RealtimeGateway", "Rejecting unknown session", map[string]interface{}{
			"session_id": sessionId,
		})
		g.closeWith(conn, closeUnknownSession, "unknown session, upload documents first")
		return
	}
	state = stateAuthorized

	if err := sess.Attach(); err != nil {
		reason := "session already has an active connection"
		if errors.Is(err, session.ErrSessionEnded) {
			// The previous connection ended and cleanup owns the session now.
			reason = "session has ended"
		}
		g.logger.Warn("RealtimeGateway", "Rejecting connection", map[string]interface{}{
			"session_id": sessionId,
			"reason":     reason,
		})
		g.closeWith(conn, closeDuplicateSession, reason)
		return
	}
	state = stateActive

	g.logger.Info("RealtimeGateway", "Connection established", map[string]interface{}{
		"session_id": sessionId,
	})

	ctx := context.Background()
	for state == stateActive {
		_, data, err := conn.ReadMessage()
		if err != nil {
			// Graceful or abrupt, the client is gone either way.
			state = stateClosed
			break
		}
		sess.Touch()

		question := strings.TrimSpace(string(data))
		if question == "" {
			continue
		}

		allowed, retryAfter, err := g.limiter.Allow(ctx, identity, 1)
		if err != nil {
			// Admission store unreachable: fail open but say so in the logs.
			g.logger.Error("RealtimeGateway", "Rate limiter unavailable", map[string]interface{}{
				"error": err.Error(),
			})
			allowed = true
		}
		if !allowed {
			notice := fmt.Sprintf("Rate limit exceeded. Try again in %d seconds.", int(retryAfter.Seconds())+1)
			if writeErr := conn.WriteMessage(websocket.TextMessage, []byte(notice)); writeErr != nil {
				state = stateClosed
			}
			continue
		}

		answer := g.answer(ctx, sess, question)
		if err := conn.WriteMessage(websocket.TextMessage, []byte(answer)); err != nil {
			state = stateClosed
		}
	}

	sess.Detach()
	g.closeWith(conn, closeNormal, "")

	g.logger.Info("RealtimeGateway", "Connection closed", map[string]interface{}{
		"session_id": sessionId,
	})

	// Cleanup is detached from the connection: it may wait for in-flight
	// ingestion long after the socket is gone.
	go g.supervisor.Cleanup(context.Background(), sessionId)
}

// answer resolves one question to completion. Questions are strictly
// sequential per connection; the caller loops.
func (g *Gateway) answer(ctx context.Context, sess *session.Session, question string) string {
	progress := sess.Progress()

	if progress.Ready == 0 {
		if !progress.AllTerminal() {
			// Ingestion still running: wait for the readiness signal up to
			// the configured bound, then answer with whatever arrived.
			select {
			case <-sess.Ready():
			case <-time.After(g.readyWait):
			case <-ctx.Done():
			}
			progress = sess.Progress()
		}

		if progress.Ready == 0 {
			if progress.AllFailed() {
				return g.failureSummary(sess)
			}
			return msgStillProcessing
		}
	}

	snippets, err := g.vector.Query(ctx, sess.Id, question, topKContext)
	if err != nil {
		g.logger.Error("RealtimeGateway", "Vector query failed", map[string]interface{}{
			"session_id": sess.Id,
			"error":      err.Error(),
		})
		return msgAnswerFailure
	}

	answer, err := g.answerer.Answer(ctx, question, snippets)
	if err != nil {
		g.logger.Error("RealtimeGateway", "Reasoning backend failed", map[string]interface{}{
			"session_id": sess.Id,
			"error":      err.Error(),
		})
		return msgAnswerFailure
	}
	return answer
}

// failureSummary explains why no document is answerable. The connection
// stays open; the client may retry or disconnect.
func (g *Gateway) failureSummary(sess *session.Session) string {
	var sb strings.Builder
	sb.WriteString("None of your documents could be processed:")
	for _, doc := range sess.Documents() {
		if doc.Status == session.StatusFailed {
			sb.WriteString(fmt.Sprintf("\n- %s: %s", doc.OriginalName, doc.FailureReason))
		}
	}
	return sb.String()
}

func (g *Gateway) closeWith(conn Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteMessage(websocket.CloseMessage, msg)
	_ = conn.Close()
}
