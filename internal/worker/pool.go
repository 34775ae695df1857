package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"lasmarias/internal/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueAvisos = "jobs:avisos"

	JobAvisoPago = "aviso_pago"

	maxIntentos = 3
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
	Rondas   int             `json:"rondas,omitempty"`
}

// Handler processes one job payload. A returned error schedules a retry
// until maxIntentos, then the job goes to the DLQ.
type Handler func(ctx context.Context, payload json.RawMessage) error

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueAvisoPago pushes a payment notice job.
func (d *Dispatcher) EnqueueAvisoPago(ctx context.Context, payload AvisoPagoPayload) error {
	return d.enqueue(ctx, QueueAvisos, JobAvisoPago, payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(Job{Type: jobType, Payload: data})
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// cola is the part of redis the job loop needs; tests replace it.
type cola interface {
	reencolar(ctx context.Context, queue string, job Job) error
	aDLQ(ctx context.Context, queue string, job Job, reason string)
}

type redisCola struct{ rdb *redis.Client }

func (c redisCola) reencolar(ctx context.Context, queue string, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return c.rdb.LPush(ctx, queue, data).Err()
}

func (c redisCola) aDLQ(ctx context.Context, queue string, job Job, reason string) {
	SendToDLQ(ctx, c.rdb, queue, job, reason)
}

// StartWorkerPool launches numWorkers goroutines consuming the queues.
// Each goroutine blocks on BRPOP, zero CPU when idle.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, numWorkers int, handlers map[string]Handler) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, i, handlers)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, rdb *redis.Client, id int, handlers map[string]Handler) {
	c := redisCola{rdb: rdb}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop: waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, QueueAvisos).Result()
			if err != nil || len(result) < 2 {
				continue
			}
			processJob(ctx, c, handlers, result[0], result[1])
		}
	}
}

func processJob(ctx context.Context, c cola, handlers map[string]Handler, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return
	}
	h, ok := handlers[job.Type]
	if !ok {
		job.Attempts++
		c.aDLQ(ctx, queue, job, "sin handler para el tipo de job")
		metrics.JobsProcesados.WithLabelValues(job.Type, "dlq").Inc()
		return
	}

	err := ejecutar(ctx, h, job.Payload)
	if err == nil {
		metrics.JobsProcesados.WithLabelValues(job.Type, "ok").Inc()
		return
	}

	job.Attempts++
	if job.Attempts >= maxIntentos {
		c.aDLQ(ctx, queue, job, err.Error())
		metrics.JobsProcesados.WithLabelValues(job.Type, "dlq").Inc()
		return
	}
	log.Warn().Err(err).Str("type", job.Type).Int("attempts", job.Attempts).Msg("job failed, retrying")
	metrics.JobsProcesados.WithLabelValues(job.Type, "retry").Inc()
	if rerr := c.reencolar(ctx, queue, job); rerr != nil {
		log.Error().Err(rerr).Str("queue", queue).Msg("failed to requeue job")
	}
}

// ejecutar turns a handler panic into an error so one bad job cannot kill
// the worker goroutine.
func ejecutar(ctx context.Context, h Handler, payload json.RawMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h(ctx, payload)
}
