package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/google/uuid"

	"pdf-qa-be/internal/dto"
	"pdf-qa-be/internal/ingest"
	"pdf-qa-be/internal/pkg/logger"
	"pdf-qa-be/internal/pkg/serverutils"
	"pdf-qa-be/internal/session"
	"pdf-qa-be/internal/storage"
	"pdf-qa-be/pkg/events"
	natsPkg "pdf-qa-be/pkg/nats"
)

var pdfMagic = []byte("%PDF-")

type IUploadService interface {
	// CreateSession validates and stores the uploaded files, registers a new
	// session with queued document records and schedules ingestion for each
	// stored file. It returns immediately; ingestion runs in the background.
	CreateSession(ctx context.Context, files []*multipart.FileHeader) (*dto.UploadResponse, error)

	// GetStatus reports per-document ingestion progress for a session.
	GetStatus(ctx context.Context, sessionId string) (*dto.SessionStatusResponse, error)
}

type uploadService struct {
	sessions    *session.Manager
	store       *storage.DocumentStore
	publisher   ingest.IPublisher
	eventPub    *natsPkg.Publisher // optional
	logger      logger.ILogger
	maxFileSize int64
}

func NewUploadService(
	sessions *session.Manager,
	store *storage.DocumentStore,
	publisher ingest.IPublisher,
	eventPub *natsPkg.Publisher,
	log logger.ILogger,
	maxFileSize int64,
) IUploadService {
	return &uploadService{
		sessions:    sessions,
		store:       store,
		publisher:   publisher,
		eventPub:    eventPub,
		logger:      log,
		maxFileSize: maxFileSize,
	}
}

func (s *uploadService) CreateSession(ctx context.Context, files []*multipart.FileHeader) (*dto.UploadResponse, error) {
	if len(files) == 0 {
		return nil, serverutils.NewValidationError("No files were provided", nil)
	}

	sessionId := uuid.NewString()

	var (
		records  []*session.DocumentRecord
		accepted []dto.UploadedFile
		failures []serverutils.FileError
	)

	for _, header := range files {
		record, reason := s.storeFile(sessionId, header)
		if reason != "" {
			failures = append(failures, serverutils.FileError{
				Filename: header.Filename,
				Error:    reason,
			})
			continue
		}
		records = append(records, record)
		accepted = append(accepted, dto.UploadedFile{
			DocumentId:   record.Id,
			OriginalName: record.OriginalName,
			SavedName:    record.StoredName,
			Status:       string(record.Status),
		})
	}

	if len(records) == 0 {
		// Nothing valid: no session. Drop any directory the store created.
		if err := s.store.RemoveSession(sessionId); err != nil {
			s.logger.Warn("UploadService", "Failed to remove rejected session dir", map[string]interface{}{
				"session_id": sessionId,
				"error":      err.Error(),
			})
		}
		return nil, serverutils.NewValidationError("No files were successfully uploaded", failures)
	}

	s.sessions.Create(sessionId, records)

	for _, record := range records {
		if err := s.publisher.PublishDocument(ctx, sessionId, record.Id); err != nil {
			// The record would be stuck queued forever; fail it now.
			s.logger.Error("UploadService", "Failed to schedule ingestion", map[string]interface{}{
				"session_id":  sessionId,
				"document_id": record.Id,
				"error":       err.Error(),
			})
			_ = s.sessions.MarkFailed(sessionId, record.Id, "could not schedule ingestion")
		}
	}

	if s.eventPub != nil {
		if err := s.eventPub.Publish(ctx, events.NewSessionCreated(sessionId, len(records))); err != nil {
			s.logger.Warn("UploadService", "Failed to publish session event", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	response := &dto.UploadResponse{
		SessionId: sessionId,
		Files:     accepted,
	}
	for _, f := range failures {
		response.Errors = append(response.Errors, dto.FileUploadError{
			Filename: f.Filename,
			Error:    f.Error,
		})
	}
	return response, nil
}

// storeFile validates one upload and writes it to the document store.
// A non-empty reason means the file was refused.
func (s *uploadService) storeFile(sessionId string, header *multipart.FileHeader) (*session.DocumentRecord, string) {
	if header.Filename == "" {
		return nil, "Filename is missing"
	}
	if header.Size > s.maxFileSize {
		return nil, fmt.Sprintf(
			"File size %.2fMB exceeds the limit of %dMB",
			float64(header.Size)/(1024*1024),
			s.maxFileSize/(1024*1024),
		)
	}

	contentType := header.Header.Get("Content-Type")
	if !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") || contentType != "application/pdf" {
		return nil, fmt.Sprintf("Invalid file type. Only PDF files are allowed (got %s)", contentType)
	}

	file, err := header.Open()
	if err != nil {
		return nil, fmt.Sprintf("Failed to read file: %v", err)
	}
	defer file.Close()

	contents, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Sprintf("Failed to read file: %v", err)
	}

	if !bytes.HasPrefix(contents, pdfMagic) {
		return nil, "File does not parse as a PDF document"
	}

	storedName, storedPath, err := s.store.Save(sessionId, header.Filename, contents)
	if err != nil {
		return nil, fmt.Sprintf("Failed to save file: %v", err)
	}

	return &session.DocumentRecord{
		Id:           uuid.New(),
		OriginalName: header.Filename,
		StoredName:   storedName,
		StoredPath:   storedPath,
		Size:         header.Size,
		Status:       session.StatusQueued,
	}, ""
}

func (s *uploadService) GetStatus(ctx context.Context, sessionId string) (*dto.SessionStatusResponse, error) {
	sess, ok := s.sessions.Get(sessionId)
	if !ok {
		return nil, serverutils.NewNotFoundError("session", sessionId)
	}
	sess.Touch()

	response := &dto.SessionStatusResponse{SessionId: sessionId}
	for _, doc := range sess.Documents() {
		response.Documents = append(response.Documents, dto.DocumentStatus{
			DocumentId:    doc.Id,
			OriginalName:  doc.OriginalName,
			Status:        string(doc.Status),
			FailureReason: doc.FailureReason,
		})
	}
	return response, nil
}
