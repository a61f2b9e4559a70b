package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"pdf-qa-be/internal/dto"
	"pdf-qa-be/internal/pkg/logger"
	"pdf-qa-be/internal/session"
	natsPkg "pdf-qa-be/pkg/nats"

	"pdf-qa-be/pkg/events"
	"pdf-qa-be/pkg/extract"
	"pdf-qa-be/pkg/vectorstore"
)

// BlobReader reads stored document bytes for extraction.
type BlobReader interface {
	Read(storedPath string) ([]byte, error)
}

// IWorker consumes queued ingestion messages.
type IWorker interface {
	Consume(ctx context.Context) error
}

type worker struct {
	pubSub    *gochannel.GoChannel
	topicName string
	sessions  *session.Manager
	blobs     BlobReader
	extractor extract.Extractor
	vector    vectorstore.Client
	eventPub  *natsPkg.Publisher // optional, best-effort
	logger    logger.ILogger
}

func NewWorker(
	pubSub *gochannel.GoChannel,
	topicName string,
	sessions *session.Manager,
	blobs BlobReader,
	extractor extract.Extractor,
	vector vectorstore.Client,
	eventPub *natsPkg.Publisher,
	log logger.ILogger,
) IWorker {
	return &worker{
		pubSub:    pubSub,
		topicName: topicName,
		sessions:  sessions,
		blobs:     blobs,
		extractor: extractor,
		vector:    vector,
		eventPub:  eventPub,
		logger:    log,
	}
}

func (w *worker) Consume(ctx context.Context) error {
	messages, err := w.pubSub.Subscribe(ctx, w.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			// Ack immediately: the queue is in-memory, and session state is
			// the source of truth for what finished. Processing in its own
			// goroutine lets documents of one session ingest concurrently.
			msg.Ack()
			go w.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (w *worker) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.IngestDocumentMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		w.logger.Error("IngestionWorker", "Failed to unmarshal message", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	defer func() {
		// A panic in extraction must not take down the worker pool; record
		// it as a failed document instead.
		if r := recover(); r != nil {
			w.fail(ctx, payload, fmt.Sprintf("ingestion panic: %v", r))
		}
	}()

	if err := w.sessions.MarkProcessing(payload.SessionId, payload.DocumentId); err != nil {
		// Session already cleaned up, or a stale message. Nothing to do.
		w.logger.Warn("IngestionWorker", "Skipping document", map[string]interface{}{
			"session_id":  payload.SessionId,
			"document_id": payload.DocumentId,
			"reason":      err.Error(),
		})
		return
	}

	sess, ok := w.sessions.Get(payload.SessionId)
	if !ok {
		return
	}
	var record *session.DocumentRecord
	for _, doc := range sess.Documents() {
		if doc.Id == payload.DocumentId {
			d := doc
			record = &d
			break
		}
	}
	if record == nil {
		w.fail(ctx, payload, "document record disappeared")
		return
	}

	contents, err := w.blobs.Read(record.StoredPath)
	if err != nil {
		w.fail(ctx, payload, fmt.Sprintf("could not read stored file: %v", err))
		return
	}

	text, err := w.extractor.Text(contents)
	if err != nil {
		w.fail(ctx, payload, fmt.Sprintf("text extraction failed: %v", err))
		return
	}

	if err := w.vector.Ingest(ctx, payload.SessionId, payload.DocumentId, record.OriginalName, text); err != nil {
		w.fail(ctx, payload, fmt.Sprintf("vector indexing failed: %v", err))
		return
	}

	if err := w.sessions.MarkReady(payload.SessionId, payload.DocumentId); err != nil {
		w.logger.Error("IngestionWorker", "Failed to mark document ready", map[string]interface{}{
			"session_id":  payload.SessionId,
			"document_id": payload.DocumentId,
			"error":       err.Error(),
		})
		return
	}

	if w.eventPub != nil {
		if err := w.eventPub.Publish(ctx, events.NewDocumentReady(payload.SessionId, payload.DocumentId.String())); err != nil {
			w.logger.Warn("IngestionWorker", "Failed to publish ready event", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}

// fail records a terminal failure for one document. Sibling documents and
// the session itself keep going.
func (w *worker) fail(ctx context.Context, payload dto.IngestDocumentMessage, reason string) {
	if err := w.sessions.MarkFailed(payload.SessionId, payload.DocumentId, reason); err != nil {
		w.logger.Error("IngestionWorker", "Failed to record document failure", map[string]interface{}{
			"session_id":  payload.SessionId,
			"document_id": payload.DocumentId,
			"error":       err.Error(),
		})
		return
	}

	if w.eventPub != nil {
		if err := w.eventPub.Publish(ctx, events.NewDocumentFailed(payload.SessionId, payload.DocumentId.String(), reason)); err != nil {
			w.logger.Warn("IngestionWorker", "Failed to publish failed event", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}
