package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "net/http/pprof"

	"github.com/NikSht/help-drugix/config"
	"github.com/NikSht/help-drugix/data"
	"github.com/NikSht/help-drugix/logging"
	"github.com/NikSht/help-drugix/registry/feeds"
	"github.com/NikSht/help-drugix/registry/ingest"
	"github.com/NikSht/help-drugix/scheduler"
	"github.com/NikSht/help-drugix/server"
	"github.com/NikSht/help-drugix/store"
	"github.com/NikSht/help-drugix/validation"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real deployments set the environment directly
	if err := godotenv.Load(); err != nil {
		logging.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	logging.InitLogger(logging.Options{
		Dir:            "logs",
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
		Level:          logging.ParseLevel(cfg.LogLevel),
	})

	dataContainer := data.NewDataContainer()
	dataContainer.SetServerStartTime(time.Now())

	parser := feeds.NewParser(feeds.ConfigFromEnv(cfg.SourceDir))
	pipeline := ingest.NewPipeline(cfg.IngestWorkers)

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		logging.Error("Failed to open snapshot database", "error", err, "path", cfg.DBPath)
		os.Exit(1)
	}
	defer db.Close()

	sched := scheduler.New(dataContainer, parser, pipeline, db)
	if err := sched.Start(); err != nil {
		logging.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	srv := server.NewServer(cfg, dataContainer, validation.NewValidator())

	// Channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Start the server in a goroutine
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Block until a signal is received
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("Shutdown error", "error", err)
	}
}
