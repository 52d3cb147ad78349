package main

import (
	"context"
	"time"

	"bookvoice/internal/activities"
	"bookvoice/internal/config"
	"bookvoice/internal/storage"
	"bookvoice/internal/workflows"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})
	workflows.Register(w)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if err := storage.EnsureSchema(ctx, db); err != nil {
		log.Fatal(err)
	}
	a, err := activities.New(cfg, db)
	if err != nil {
		log.Fatal(err)
	}
	activities.Register(w, a)

	log.Info("bookvoice worker started",
		"temporal", cfg.TemporalAddress, "queue", cfg.TemporalTaskQueue, "engine", cfg.Engine)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatal(err)
	}
}
