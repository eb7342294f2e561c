package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"sheetpulse/internal/bootstrap"
	"sheetpulse/internal/config"
	"sheetpulse/internal/tracer"
	"sheetpulse/pkg/database"

	"github.com/fatih/color"
)

func main() {
	cfg := config.Load()

	shutdownTracer := tracer.Init("sheetpulse-worker")
	defer shutdownTracer(context.Background())

	gormDB, err := database.NewGormDBFromDSN(cfg.DB.Connection)
	if err != nil {
		log.Fatalf("connecting to database: %v", err)
	}

	container := bootstrap.NewWorkerContainer(gormDB, cfg)

	color.New(color.FgCyan, color.Bold).Println("sheetpulse sync worker")
	color.New(color.FgHiBlack).Printf("queue=%s env=%s\n", cfg.Queue.SubjectPrefix, cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go func() {
		container.Worker.Start(ctx)
		close(done)
	}()

	<-ctx.Done()
	color.New(color.FgYellow).Println("shutdown signal received, draining in-flight task...")
	container.Worker.Stop()
	<-done
	color.New(color.FgGreen).Println("worker stopped cleanly")
}
