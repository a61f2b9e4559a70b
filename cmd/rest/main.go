package main

import (
	"context"
	"log"

	"pdf-qa-be/internal/bootstrap"
	"pdf-qa-be/internal/config"
	"pdf-qa-be/internal/server"
	"pdf-qa-be/internal/tracer"
	"pdf-qa-be/pkg/database"
)

func main() {
	// 0. Initialize Tracer
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database (vector index backing store)
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Start Background Services
	go func() {
		log.Println("Background: Starting Ingestion Worker...")
		if err := container.IngestionWorker.Consume(context.Background()); err != nil {
			log.Printf("Background Ingestion Error: %v", err)
		}
	}()
	container.CleanupSupervisor.Start(context.Background())

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	log.Fatal(srv.Run())
}
