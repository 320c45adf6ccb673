package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mindbridge/counselling-booking/internal/config"
	"github.com/mindbridge/counselling-booking/internal/db"
	"github.com/mindbridge/counselling-booking/internal/logging"
	"github.com/mindbridge/counselling-booking/internal/metrics"
	"github.com/mindbridge/counselling-booking/internal/notify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config load error: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logging.New(cfg.Env, cfg.LogLevel)
	log.Info().
		Str("env", cfg.Env).
		Dur("interval", cfg.WorkerInterval).
		Int("batch_size", cfg.NotifyBatchSize).
		Msg("notify-worker starting up")

	metrics.Register()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	repo := notify.NewPgRepository(pgPool)
	sender := notify.NewLogSender(log)
	worker := notify.NewWorker(repo, sender, cfg.NotifyBatchSize, cfg.WorkerInterval, log)

	worker.Run(rootCtx)

	log.Info().Msg("notify-worker stopped")
}
