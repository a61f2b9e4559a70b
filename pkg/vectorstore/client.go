package vectorstore

import (
	"context"

	"github.com/google/uuid"
)

// Snippet is one retrieved chunk of context for answering a question.
type Snippet struct {
	Document   string
	Filename   string
	Similarity float64
}

// Client is the boundary to the external vector index. Entries are scoped by
// session id so a whole session can be dropped in one call.
type Client interface {
	// Ingest chunks the text, embeds each chunk and stores the vectors.
	Ingest(ctx context.Context, sessionId string, docId uuid.UUID, filename, text string) error

	// Query returns the chunks most similar to the question.
	Query(ctx context.Context, sessionId string, question string, topK int) ([]Snippet, error)

	// DeleteSession removes every entry stored for the session.
	DeleteSession(ctx context.Context, sessionId string) error
}
