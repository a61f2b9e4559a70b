package dto

import "github.com/google/uuid"

type UploadedFile struct {
	DocumentId   uuid.UUID `json:"document_id"`
	OriginalName string    `json:"original_name"`
	SavedName    string    `json:"saved_name"`
	Status       string    `json:"status"`
}

type FileUploadError struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

type UploadResponse struct {
	SessionId string            `json:"session_id"`
	Files     []UploadedFile    `json:"files"`
	Errors    []FileUploadError `json:"errors,omitempty"`
}

type DocumentStatus struct {
	DocumentId    uuid.UUID `json:"document_id"`
	OriginalName  string    `json:"original_name"`
	Status        string    `json:"status"`
	FailureReason string    `json:"failure_reason,omitempty"`
}

type SessionStatusResponse struct {
	SessionId string           `json:"session_id"`
	Documents []DocumentStatus `json:"documents"`
}
