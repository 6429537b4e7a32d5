package worker

import (
	"context"
	"encoding/json"
	"time"

	"elixir/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueEmail = "jobs:email"

	JobEmail = "email"

	// MaxAttempts is how many times a job runs before it is parked as failed.
	MaxAttempts = 3
)

// failedKey is the Redis list that keeps the jobs of queue which ran out of retries.
func failedKey(queue string) string { return queue + ":failed" }

type failedJob struct {
	Job
	Queue    string    `json:"queue"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// Handler processes one job payload. Returning an error schedules a retry.
type Handler func(ctx context.Context, payload json.RawMessage) error

// Consumer handles the jobs of one queue. GiveUp, when set, is called after a
// job has been parked as failed.
type Consumer struct {
	Handle Handler
	GiveUp func(payload json.RawMessage, reason string)
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// Send queues a mail for the email workers.
func (d *Dispatcher) Send(ctx context.Context, mail infra.Mail) error {
	return d.enqueue(ctx, QueueEmail, Job{Type: JobEmail}, mail)
}

// DLQLength reports how many email jobs were given up on.
func (d *Dispatcher) DLQLength(ctx context.Context) (int64, error) {
	return d.rdb.LLen(ctx, failedKey(QueueEmail)).Result()
}

func (d *Dispatcher) enqueue(ctx context.Context, queue string, job Job, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job.Payload = data
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// StartWorkerPool launches numWorkers goroutines consuming the queues of the
// given consumers. Each goroutine blocks on BRPOP, so idle workers cost nothing.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, numWorkers int, consumers map[string]Consumer) {
	queues := make([]string, 0, len(consumers))
	for queue := range consumers {
		queues = append(queues, queue)
	}
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, i, queues, consumers)
	}
	log.Info().Int("workers", numWorkers).Strs("queues", queues).Msg("worker pool started")
}

func runWorker(ctx context.Context, rdb *redis.Client, id int, queues []string, consumers map[string]Consumer) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Int("worker", id).Msg("worker shutting down")
			return
		default:
			// waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil || len(result) < 2 {
				continue
			}
			queue, raw := result[0], result[1]
			consumer := consumers[queue]
			processJob(ctx, queue, raw, consumer.Handle, func(job Job) error {
				encoded, err := json.Marshal(job)
				if err != nil {
					return err
				}
				return rdb.LPush(ctx, queue, encoded).Err()
			}, func(job Job, reason string) {
				parkFailed(ctx, rdb, queue, job, reason)
				if consumer.GiveUp != nil {
					consumer.GiveUp(job.Payload, reason)
				}
			})
		}
	}
}

func parkFailed(ctx context.Context, rdb *redis.Client, queue string, job Job, reason string) {
	data, err := json.Marshal(failedJob{Job: job, Queue: queue, Error: reason, FailedAt: time.Now().UTC()})
	if err == nil {
		err = rdb.LPush(ctx, failedKey(queue), data).Err()
	}
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("could not park failed job")
		return
	}
	log.Warn().Str("queue", queue).Str("type", job.Type).Int("attempts", job.Attempts).Str("reason", reason).Msg("job given up")
}

// processJob runs the handler once. Failures are requeued until MaxAttempts,
// then dead-lettered.
func processJob(ctx context.Context, queue, raw string, handler Handler, requeue func(Job) error, deadLetter func(Job, string)) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return
	}
	if handler == nil {
		deadLetter(job, "no handler for queue")
		return
	}

	err := handler(ctx, job.Payload)
	if err == nil {
		return
	}

	job.Attempts++
	if job.Attempts >= MaxAttempts {
		deadLetter(job, err.Error())
		return
	}

	log.Warn().Err(err).Str("queue", queue).Int("attempt", job.Attempts).Msg("job failed, requeueing")
	if err := requeue(job); err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("requeue failed")
		deadLetter(job, "requeue failed: "+err.Error())
	}
}
