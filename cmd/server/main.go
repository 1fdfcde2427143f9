// Package main runs the CVDrop HTTP API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/cvdrop/internal/api"
	"github.com/dharsanguruparan/cvdrop/internal/config"
	"github.com/dharsanguruparan/cvdrop/internal/ingest"
	"github.com/dharsanguruparan/cvdrop/internal/logging"
	"github.com/dharsanguruparan/cvdrop/internal/queue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logging.New("info", "text").Fatalf("load config: %v", err)
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)

	svc, err := ingest.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatalf("init ingestion: %v", err)
	}

	var queueClient *asynq.Client
	if cfg.Queue.RedisAddr != "" {
		queueClient = asynq.NewClient(queue.RedisOpt(cfg.Queue))
		defer queueClient.Close()
	}

	srv := api.New(cfg, svc, queueClient, log)
	if err := srv.Run(ctx); err != nil {
		log.WithError(err).Error("server stopped")
		os.Exit(1)
	}
}
