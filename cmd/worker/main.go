package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/cvdrop/internal/config"
	"github.com/dharsanguruparan/cvdrop/internal/ingest"
	"github.com/dharsanguruparan/cvdrop/internal/logging"
	"github.com/dharsanguruparan/cvdrop/internal/queue"
	"github.com/dharsanguruparan/cvdrop/internal/worker"
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

	server := asynq.NewServer(queue.RedisOpt(cfg.Queue), asynq.Config{
		Concurrency: cfg.Queue.Concurrency,
		Logger:      log,
	})
	processor := worker.NewProcessor(svc, log)
	mux := processor.Handler()

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	log.WithField("concurrency", cfg.Queue.Concurrency).Info("worker started")
	if err := server.Run(mux); err != nil {
		log.WithError(err).Error("worker stopped")
		os.Exit(1)
	}
}
