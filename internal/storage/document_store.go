package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DocumentStore persists uploaded file bytes on disk, scoped by session id so
// an entire session can be reclaimed with one directory removal.
type DocumentStore struct {
	baseDir string
}

func NewDocumentStore(baseDir string) (*DocumentStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DocumentStore{baseDir: baseDir}, nil
}

// Save writes the file under uploads/<sessionId>/ with a unique name derived
// from the original filename. Returns the stored name and absolute path.
func (s *DocumentStore) Save(sessionId, originalName string, contents []byte) (storedName, storedPath string, err error) {
	dir := filepath.Join(s.baseDir, sessionId)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create session dir: %w", err)
	}

	ext := filepath.Ext(originalName)
	stem := strings.TrimSuffix(filepath.Base(originalName), ext)
	storedName = fmt.Sprintf("%s_%s%s", stem, uuid.NewString(), ext)
	storedPath = filepath.Join(dir, storedName)

	if err := os.WriteFile(storedPath, contents, 0o644); err != nil {
		return "", "", fmt.Errorf("save file: %w", err)
	}
	return storedName, storedPath, nil
}

// Read returns the stored bytes for extraction.
func (s *DocumentStore) Read(storedPath string) ([]byte, error) {
	return os.ReadFile(storedPath)
}

// RemoveSession deletes every file stored for the session. Removing a session
// that was already cleaned is a no-op.
func (s *DocumentStore) RemoveSession(sessionId string) error {
	if sessionId == "" {
		return fmt.Errorf("empty session id")
	}
	err := os.RemoveAll(filepath.Join(s.baseDir, sessionId))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
