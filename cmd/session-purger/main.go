package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	operatorspostgres "github.com/localborga/milling-orders/internal/domains/operators/adapters/persistence/postgres"
	"github.com/localborga/milling-orders/internal/platform/jobs"
	platformpostgres "github.com/localborga/milling-orders/internal/platform/postgres"
)

func main() {
	_ = godotenv.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	db, cleanup, err := platformpostgres.Open(ctx, logger)
	if err != nil {
		log.Fatalf("cannot purge operator sessions: %v", err)
	}
	defer cleanup()

	job := jobs.NewSessionPurgeJob(operatorspostgres.NewSessionStore(db), "", logger)
	purged, err := job.RunOnce(ctx)
	if err != nil {
		log.Fatalf("failed to purge operator sessions: %v", err)
	}
	log.Printf("operator session purge completed, %d removed", purged)
}
