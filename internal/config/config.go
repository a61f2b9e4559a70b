package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Upload    UploadConfig
	RateLimit RateLimitConfig
	Session   SessionConfig
	Keys      APIKeys
	Ai        AIConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type UploadConfig struct {
	Dir         string
	MaxFileSize int64 // bytes
}

type RateLimitConfig struct {
	UploadLimit    int
	UploadWindow   time.Duration
	QuestionLimit  int
	QuestionWindow time.Duration
}

type SessionConfig struct {
	OrphanTTL     time.Duration // sessions that never connected
	SweepInterval time.Duration
	ReadyWait     time.Duration // max wait for the first ingested document
}

type APIKeys struct {
	GoogleGemini string
	IngestTopic  string
}

type AIConfig struct {
	EmbeddingProvider string // "gemini" or "ollama"
	OllamaBaseURL     string
	OllamaModel       string
	LLMProvider       string // "ollama" or "gemini"
	LLMModel          string // e.g. "llama3", "gemini-1.5-flash"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:8000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5500,http://127.0.0.1:5500"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Upload: UploadConfig{
			Dir:         getEnv("UPLOAD_DIR", "uploads"),
			MaxFileSize: int64(getEnvAsInt("MAX_FILE_SIZE_MB", 30)) * 1024 * 1024,
		},
		RateLimit: RateLimitConfig{
			UploadLimit:    getEnvAsInt("UPLOAD_RATE_LIMIT", 5),
			UploadWindow:   getEnvAsDuration("UPLOAD_RATE_WINDOW_SECONDS", 60),
			QuestionLimit:  getEnvAsInt("QUESTION_RATE_LIMIT", 10),
			QuestionWindow: getEnvAsDuration("QUESTION_RATE_WINDOW_SECONDS", 60),
		},
		Session: SessionConfig{
			OrphanTTL:     getEnvAsDuration("ORPHAN_SESSION_TTL_SECONDS", 1800),
			SweepInterval: getEnvAsDuration("SESSION_SWEEP_INTERVAL_SECONDS", 300),
			ReadyWait:     getEnvAsDuration("READINESS_WAIT_SECONDS", 30),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			IngestTopic:  getEnv("INGEST_DOCUMENT_TOPIC_NAME", "INGEST_DOCUMENT"),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "gemini"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:       getEnv("LLM_PROVIDER", "gemini"),
			LLMModel:          getEnv("LLM_MODEL", "gemini-1.5-flash"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallbackSeconds int) time.Duration {
	return time.Duration(getEnvAsInt(key, fallbackSeconds)) * time.Second
}
