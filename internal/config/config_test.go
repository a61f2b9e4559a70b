package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8000", cfg.App.Port)
	assert.Equal(t, int64(30*1024*1024), cfg.Upload.MaxFileSize)
	assert.Equal(t, 5, cfg.RateLimit.UploadLimit)
	assert.Equal(t, 60*time.Second, cfg.RateLimit.UploadWindow)
	assert.Equal(t, 10, cfg.RateLimit.QuestionLimit)
	assert.Equal(t, 30*time.Minute, cfg.Session.OrphanTTL)
	assert.Equal(t, 30*time.Second, cfg.Session.ReadyWait)
	assert.Equal(t, "INGEST_DOCUMENT", cfg.Keys.IngestTopic)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("MAX_FILE_SIZE_MB", "5")
	t.Setenv("UPLOAD_RATE_LIMIT", "2")
	t.Setenv("QUESTION_RATE_WINDOW_SECONDS", "120")
	t.Setenv("ORPHAN_SESSION_TTL_SECONDS", "60")

	cfg := Load()

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, int64(5*1024*1024), cfg.Upload.MaxFileSize)
	assert.Equal(t, 2, cfg.RateLimit.UploadLimit)
	assert.Equal(t, 120*time.Second, cfg.RateLimit.QuestionWindow)
	assert.Equal(t, time.Minute, cfg.Session.OrphanTTL)
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("UPLOAD_RATE_LIMIT", "not-a-number")

	cfg := Load()

	assert.Equal(t, 5, cfg.RateLimit.UploadLimit, "malformed values fall back to the default")
}
