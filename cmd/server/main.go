package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lasmarias/internal/config"
	"lasmarias/internal/estado"
	"lasmarias/internal/infra"
	"lasmarias/internal/router"
	"lasmarias/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger. dev: pretty, prod: JSON
	if cfg.Env != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inf := router.Infra{DB: db, Hub: estado.NewMemoria()}

	// Redis is optional: without it locks are local no-ops, notices are not
	// sent and change events stay inside this process.
	if cfg.RedisURL != "" {
		rdb, err := infra.NewRedis(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rdb.Close()
		inf.Redis = rdb
		inf.Hub = estado.NewRedis(rdb)
	} else {
		log.Warn().Msg("REDIS_URL empty: running single-instance without notices")
	}

	if cfg.GCSBucket != "" {
		blobs, err := infra.NewGCSStore(ctx, cfg.GCSBucket, cfg.GCSCredentialsJSON, nil)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create gcs client")
		}
		defer blobs.Close()
		inf.Blobs = blobs
	} else {
		log.Warn().Msg("GCS_BUCKET empty: image upload disabled")
	}

	svcs := router.NewServicios(cfg, inf)

	// Worker pool for payment notices. Handlers are wired here (composition
	// root) so the worker can render receipts through the sale service.
	mailer := infra.NewMailer(cfg)
	if inf.Redis != nil && mailer.Configurado() && cfg.AvisoEmail != "" {
		aviso := worker.NewAvisoWorker(mailer, svcs.Ventas, cfg.AvisoEmail)
		worker.StartWorkerPool(ctx, inf.Redis, cfg.WorkerPoolSize, map[string]worker.Handler{
			worker.JobAvisoPago: aviso.Process,
		})
		worker.StartRetryCron(ctx, worker.RetryCronConfig{
			RDB:    inf.Redis,
			Queue:  worker.QueueAvisos,
			Estado: mailer.Estado,
		})
	}

	r := router.New(cfg, inf, svcs)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// No WriteTimeout: /v1/ventas/eventos is a long-lived stream.
		IdleTimeout: 60 * time.Second,
		// Request contexts derive from ctx so cancel() ends open event streams.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("%s backend listening on :%d", cfg.NegocioNombre, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
