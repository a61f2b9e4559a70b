package dto

import "github.com/google/uuid"

// IngestDocumentMessage is the queue payload scheduling one document for
// background ingestion.
type IngestDocumentMessage struct {
	SessionId  string    `json:"session_id"`
	DocumentId uuid.UUID `json:"document_id"`
}
