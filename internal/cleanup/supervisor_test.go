package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-qa-be/internal/pkg/logger"
	"pdf-qa-be/internal/session"
	"pdf-qa-be/internal/storage"
	"pdf-qa-be/pkg/vectorstore"
)

type fakeVectorClient struct {
	mu      sync.Mutex
	deleted []string
}

func (f *fakeVectorClient) Ingest(ctx context.Context, sessionId string, docId uuid.UUID, filename, text string) error {
	return nil
}

func (f *fakeVectorClient) Query(ctx context.Context, sessionId, question string, topK int) ([]vectorstore.Snippet, error) {
	return nil, nil
}

func (f *fakeVectorClient) DeleteSession(ctx context.Context, sessionId string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, sessionId)
	return nil
}

func (f *fakeVectorClient) deletions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

type fixture struct {
	sessions *session.Manager
	store    *storage.DocumentStore
	vector   *fakeVectorClient
	baseDir  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	baseDir := t.TempDir()
	store, err := storage.NewDocumentStore(baseDir)
	require.NoError(t, err)
	return &fixture{
		sessions: session.NewManager(logger.NewNopLogger()),
		store:    store,
		vector:   &fakeVectorClient{},
		baseDir:  baseDir,
	}
}

func (f *fixture) newSupervisor(orphanTTL, sweepInterval time.Duration) *Supervisor {
	return NewSupervisor(f.sessions, f.store, f.vector, nil, logger.NewNopLogger(), orphanTTL, sweepInterval)
}

// seedSession stores one file on disk and registers a session whose single
// document is already terminal, so Cleanup does not wait.
func (f *fixture) seedSession(t *testing.T, sessionId string) string {
	t.Helper()
	_, storedPath, err := f.store.Save(sessionId, "report.pdf", []byte("%PDF-1.4 body"))
	require.NoError(t, err)

	docId := uuid.New()
	f.sessions.Create(sessionId, []*session.DocumentRecord{{
		Id:           docId,
		OriginalName: "report.pdf",
		StoredPath:   storedPath,
		Status:       session.StatusQueued,
	}})
	require.NoError(t, f.sessions.MarkProcessing(sessionId, docId))
	require.NoError(t, f.sessions.MarkReady(sessionId, docId))
	return storedPath
}

func TestCleanupReclaimsEverything(t *testing.T) {
	f := newFixture(t)
	sup := f.newSupervisor(time.Hour, time.Hour)
	storedPath := f.seedSession(t, "s1")

	sup.Cleanup(context.Background(), "s1")

	_, err := os.Stat(storedPath)
	assert.True(t, os.IsNotExist(err), "stored file must be removed")
	_, err = os.Stat(filepath.Join(f.baseDir, "s1"))
	assert.True(t, os.IsNotExist(err), "session directory must be removed")

	assert.Equal(t, []string{"s1"}, f.vector.deletions())

	_, ok := f.sessions.Get("s1")
	assert.False(t, ok, "session must leave the registry")
}

func TestCleanupIsIdempotent(t *testing.T) {
	f := newFixture(t)
	sup := f.newSupervisor(time.Hour, time.Hour)
	f.seedSession(t, "s1")

	sup.Cleanup(context.Background(), "s1")
	sup.Cleanup(context.Background(), "s1")
	sup.Cleanup(context.Background(), "never-existed")

	// The second and third calls find nothing and touch no backend.
	assert.Equal(t, []string{"s1"}, f.vector.deletions())
}

func TestCleanupWaitsForInflightIngestion(t *testing.T) {
	f := newFixture(t)
	sup := f.newSupervisor(time.Hour, time.Hour)

	_, storedPath, err := f.store.Save("s1", "report.pdf", []byte("%PDF-1.4 body"))
	require.NoError(t, err)
	docId := uuid.New()
	f.sessions.Create("s1", []*session.DocumentRecord{{
		Id:         docId,
		StoredPath: storedPath,
		Status:     session.StatusQueued,
	}})
	require.NoError(t, f.sessions.MarkProcessing("s1", docId))

	done := make(chan struct{})
	go func() {
		sup.Cleanup(context.Background(), "s1")
		close(done)
	}()

	// Cleanup must hold off while the document is still processing.
	select {
	case <-done:
		t.Fatal("cleanup finished while ingestion was still in flight")
	case <-time.After(100 * time.Millisecond):
	}
	_, err = os.Stat(storedPath)
	assert.NoError(t, err, "file must survive until ingestion settles")

	require.NoError(t, f.sessions.MarkReady("s1", docId))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("cleanup did not proceed after ingestion settled")
	}
	_, err = os.Stat(storedPath)
	assert.True(t, os.IsNotExist(err))
}

func TestSweepReclaimsStaleUnconnectedSessions(t *testing.T) {
	f := newFixture(t)
	sup := f.newSupervisor(50*time.Millisecond, 20*time.Millisecond)
	f.seedSession(t, "stale")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sup.Start(ctx)

	require.Eventually(t, func() bool {
		_, ok := f.sessions.Get("stale")
		return !ok
	}, 3*time.Second, 20*time.Millisecond, "stale session should be swept after the TTL")
	assert.Contains(t, f.vector.deletions(), "stale")
}

func TestSweepNotStalledByInflightIngestion(t *testing.T) {
	f := newFixture(t)
	sup := f.newSupervisor(50*time.Millisecond, 20*time.Millisecond)

	// "stuck" holds the ingest grace open; "stale" is ready to reclaim.
	stuckDoc := uuid.New()
	f.sessions.Create("stuck", []*session.DocumentRecord{{
		Id:     stuckDoc,
		Status: session.StatusQueued,
	}})
	require.NoError(t, f.sessions.MarkProcessing("stuck", stuckDoc))
	f.seedSession(t, "stale")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sup.Start(ctx)

	require.Eventually(t, func() bool {
		_, ok := f.sessions.Get("stale")
		return !ok
	}, 3*time.Second, 20*time.Millisecond, "a session waiting out the ingest grace must not block the sweep")

	_, ok := f.sessions.Get("stuck")
	assert.True(t, ok, "the waiting session is reclaimed only once its ingestion settles")

	require.NoError(t, f.sessions.MarkReady("stuck", stuckDoc))
	require.Eventually(t, func() bool {
		_, ok := f.sessions.Get("stuck")
		return !ok
	}, 3*time.Second, 20*time.Millisecond)
}

func TestSweepSparesConnectedAndActiveSessions(t *testing.T) {
	f := newFixture(t)
	sup := f.newSupervisor(50*time.Millisecond, 20*time.Millisecond)

	f.seedSession(t, "connected")
	connected, _ := f.sessions.Get("connected")
	require.NoError(t, connected.Attach())

	f.seedSession(t, "busy")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sup.Start(ctx)

	// Keep the "busy" session warm while several sweep ticks pass.
	deadline := time.Now().Add(300 * time.Millisecond)
	for time.Now().Before(deadline) {
		f.sessions.Touch("busy")
		time.Sleep(10 * time.Millisecond)
	}

	_, ok := f.sessions.Get("connected")
	assert.True(t, ok, "a connected session must never be swept")
	_, ok = f.sessions.Get("busy")
	assert.True(t, ok, "recent activity must defer the sweep")
}
