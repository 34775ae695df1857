package worker

// retry_cron.go
// Background goroutine that periodically sends dead-lettered notices back to
// their queue. A notice usually dies because SMTP was down for longer than the
// in-line retries; once the mailer's circuit breaker closes again they have a
// fair chance. After maxRondas round trips an entry is parked for good.

import (
	"context"
	"encoding/json"
	"time"

	"lasmarias/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	retryTickInterval = 5 * time.Minute
	retryBatchSize    = 10
	maxRondas         = 3

	// ArchivoSufijo names the list holding entries that exhausted their rounds.
	ArchivoSufijo = ":agotados"
)

// RetryCronConfig holds all dependencies for the retry goroutine.
type RetryCronConfig struct {
	RDB   *redis.Client
	Queue string
	// Estado reports the mailer's circuit breaker; nothing is re-driven
	// while it is open.
	Estado func() infra.CBState
}

// buzon is the part of redis the re-drive loop needs; tests replace it.
type buzon interface {
	// sacar pops the oldest DLQ entry; nil when the DLQ is empty.
	sacar(ctx context.Context, queue string) (*DLQEntry, error)
	reencolar(ctx context.Context, queue string, job Job) error
	archivar(ctx context.Context, queue string, e DLQEntry) error
	// devolver puts an entry back where sacar takes the next one from.
	devolver(ctx context.Context, queue string, e DLQEntry) error
}

type redisBuzon struct{ rdb *redis.Client }

func (b redisBuzon) sacar(ctx context.Context, queue string) (*DLQEntry, error) {
	raw, err := b.rdb.RPop(ctx, DLQPrefix+queue).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var e DLQEntry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("retry_cron: dropping unreadable DLQ entry")
		return &DLQEntry{}, nil
	}
	return &e, nil
}

func (b redisBuzon) reencolar(ctx context.Context, queue string, job Job) error {
	return redisCola{rdb: b.rdb}.reencolar(ctx, queue, job)
}

func (b redisBuzon) archivar(ctx context.Context, queue string, e DLQEntry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return b.rdb.LPush(ctx, DLQPrefix+queue+ArchivoSufijo, data).Err()
}

func (b redisBuzon) devolver(ctx context.Context, queue string, e DLQEntry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return b.rdb.RPush(ctx, DLQPrefix+queue, data).Err()
}

// StartRetryCron launches a background goroutine that ticks every few
// minutes and re-drives a batch of dead-lettered jobs.
// It respects the context for graceful shutdown.
func StartRetryCron(ctx context.Context, cfg RetryCronConfig) {
	go func() {
		ticker := time.NewTicker(retryTickInterval)
		defer ticker.Stop()

		log.Info().Str("queue", cfg.Queue).Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				processRetries(ctx, redisBuzon{rdb: cfg.RDB}, cfg)
			}
		}
	}()
}

// processRetries returns how many jobs went back to the queue.
func processRetries(ctx context.Context, b buzon, cfg RetryCronConfig) int {
	// If CB is open, skip entirely; the notices would just die again
	if cfg.Estado != nil && cfg.Estado() == infra.CBOpen {
		log.Debug().Msg("retry_cron: circuit breaker is open, skipping tick")
		return 0
	}

	reencolados := 0
	for i := 0; i < retryBatchSize; i++ {
		e, err := b.sacar(ctx, cfg.Queue)
		if err != nil {
			log.Error().Err(err).Msg("retry_cron: failed to read DLQ")
			return reencolados
		}
		if e == nil {
			break
		}
		if e.JobType == "" {
			continue
		}

		if e.Rondas+1 >= maxRondas {
			if err := b.archivar(ctx, cfg.Queue, *e); err != nil {
				log.Error().Err(err).Str("job_type", e.JobType).Msg("retry_cron: failed to park entry")
			}
			log.Error().
				Str("job_type", e.JobType).
				Int("rondas", e.Rondas+1).
				Str("reason", e.Reason).
				Msg("retry_cron: max rounds exceeded, parked")
			continue
		}

		job := Job{Type: e.JobType, Payload: e.Payload, Rondas: e.Rondas + 1}
		if err := b.reencolar(ctx, cfg.Queue, job); err != nil {
			log.Error().Err(err).Str("job_type", e.JobType).Msg("retry_cron: failed to requeue")
			if err := b.devolver(ctx, cfg.Queue, *e); err != nil {
				log.Error().Err(err).Str("job_type", e.JobType).Str("payload", string(e.Payload)).
					Msg("retry_cron: notice lost, could not return it to the DLQ")
			}
			return reencolados
		}
		reencolados++
	}

	if reencolados > 0 {
		log.Info().Int("count", reencolados).Str("queue", cfg.Queue).Msg("retry_cron: jobs re-driven")
	}
	return reencolados
}
