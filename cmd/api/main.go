package main

import (
	"context"
	"log"

	"sheetpulse/internal/bootstrap"
	"sheetpulse/internal/config"
	"sheetpulse/internal/server"
	"sheetpulse/internal/tracer"
	"sheetpulse/pkg/database"
)

func main() {
	cfg := config.Load()

	shutdownTracer := tracer.Init("sheetpulse-api")
	defer shutdownTracer(context.Background())

	gormDB, err := database.NewGormDBFromDSN(cfg.DB.Connection)
	if err != nil {
		log.Fatalf("connecting to database: %v", err)
	}

	container := bootstrap.NewAPIContainer(gormDB, cfg)
	srv := server.New(cfg, container)

	log.Fatal(srv.Run())
}
