package bootstrap

import (
	"context"
	"log"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"pdf-qa-be/internal/cleanup"
	"pdf-qa-be/internal/config"
	"pdf-qa-be/internal/controller"
	"pdf-qa-be/internal/gateway"
	"pdf-qa-be/internal/ingest"
	"pdf-qa-be/internal/pkg/logger"
	"pdf-qa-be/internal/ratelimit"
	"pdf-qa-be/internal/service"
	"pdf-qa-be/internal/session"
	"pdf-qa-be/internal/storage"
	"pdf-qa-be/pkg/embedding"
	"pdf-qa-be/pkg/extract"
	"pdf-qa-be/pkg/llm/factory"
	natsPkg "pdf-qa-be/pkg/nats"
	"pdf-qa-be/pkg/rag"
	"pdf-qa-be/pkg/vectorstore"
)

type Container struct {
	// Controllers
	UploadController controller.IUploadController

	// Realtime gateway (registered by the server on the websocket route)
	Gateway *gateway.Gateway

	// Background services (exposed for main.go to run)
	IngestionWorker   ingest.IWorker
	CleanupSupervisor *cleanup.Supervisor

	// Held for shutdown
	EventPublisher *natsPkg.Publisher
	Logger         logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event bus for ingestion jobs
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. External collaborators
	// Embedding provider based on config
	var embeddingProvider embedding.Provider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	}

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Keys.GoogleGemini,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	vectorClient := vectorstore.NewPgVectorClient(db, embeddingProvider)
	answerer := rag.NewAnswerer(llmProvider)
	extractor := extract.NewPDFExtractor()

	// NATS (lifecycle events, best-effort)
	natsPub, err := natsPkg.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		natsPub = nil
	}

	// Redis-backed admission control, shared by both entry protocols.
	// Falls back to in-memory buckets when Redis is unreachable.
	var uploadLimiter, questionLimiter ratelimit.Limiter
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v. Using in-memory rate buckets", err)
		uploadLimiter = ratelimit.NewMemoryLimiter("upload", cfg.RateLimit.UploadLimit, cfg.RateLimit.UploadWindow)
		questionLimiter = ratelimit.NewMemoryLimiter("question", cfg.RateLimit.QuestionLimit, cfg.RateLimit.QuestionWindow)
	} else {
		uploadLimiter = ratelimit.NewRedisLimiter(rdb, "upload", cfg.RateLimit.UploadLimit, cfg.RateLimit.UploadWindow)
		questionLimiter = ratelimit.NewRedisLimiter(rdb, "question", cfg.RateLimit.QuestionLimit, cfg.RateLimit.QuestionWindow)
	}

	// 4. Session lifecycle
	sessionManager := session.NewManager(sysLogger)

	documentStore, err := storage.NewDocumentStore(cfg.Upload.Dir)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize document store: %v", err)
	}

	ingestPublisher := ingest.NewPublisher(cfg.Keys.IngestTopic, pubSub)
	ingestionWorker := ingest.NewWorker(
		pubSub,
		cfg.Keys.IngestTopic,
		sessionManager,
		documentStore,
		extractor,
		vectorClient,
		natsPub,
		sysLogger,
	)

	supervisor := cleanup.NewSupervisor(
		sessionManager,
		documentStore,
		vectorClient,
		natsPub,
		sysLogger,
		cfg.Session.OrphanTTL,
		cfg.Session.SweepInterval,
	)

	// 5. Services & gateway
	uploadService := service.NewUploadService(
		sessionManager,
		documentStore,
		ingestPublisher,
		natsPub,
		sysLogger,
		cfg.Upload.MaxFileSize,
	)

	gwLogger := logger.NewIsolatedLogger("logs/gateway.log")
	qaGateway := gateway.New(
		sessionManager,
		questionLimiter,
		vectorClient,
		answerer,
		supervisor,
		gwLogger,
		cfg.Session.ReadyWait,
	)

	return &Container{
		UploadController:  controller.NewUploadController(uploadService, uploadLimiter, sysLogger),
		Gateway:           qaGateway,
		IngestionWorker:   ingestionWorker,
		CleanupSupervisor: supervisor,
		EventPublisher:    natsPub,
		Logger:            sysLogger,
	}
}
