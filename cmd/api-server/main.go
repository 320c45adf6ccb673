package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mindbridge/counselling-booking/internal/api"
	"github.com/mindbridge/counselling-booking/internal/availability"
	"github.com/mindbridge/counselling-booking/internal/booking"
	"github.com/mindbridge/counselling-booking/internal/config"
	"github.com/mindbridge/counselling-booking/internal/db"
	"github.com/mindbridge/counselling-booking/internal/directory"
	"github.com/mindbridge/counselling-booking/internal/logging"
	"github.com/mindbridge/counselling-booking/internal/metrics"
	"github.com/mindbridge/counselling-booking/internal/notify"
	redisclient "github.com/mindbridge/counselling-booking/internal/redis"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config load error: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logging.New(cfg.Env, cfg.LogLevel)
	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("api-server starting up")

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

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	dirRepo := directory.NewPgRepository(pgPool)
	availRepo := availability.NewPgRepository(pgPool)
	bookingRepo := booking.NewPgRepository(pgPool)
	notifyRepo := notify.NewPgRepository(pgPool)

	locker := redisclient.NewRedisLocker(rdb, cfg.LockTTL)
	notifier := notify.NewBookingNotifier(notifyRepo, dirRepo, log)

	availSvc := availability.NewService(availRepo, dirRepo, log)
	bookingSvc := booking.NewService(bookingRepo, dirRepo, locker, notifier, log)

	router := api.NewRouter(api.RouterConfig{
		Availability: availSvc,
		Booking:      bookingSvc,
		Directory:    dirRepo,
		PgPool:       pgPool,
		Redis:        rdb,
		Log:          log,
		Env:          cfg.Env,
		Version:      version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-rootCtx.Done()
	log.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
