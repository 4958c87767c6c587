package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueReceipt = "jobs:receipt"
	QueueExport  = "jobs:export"
	QueueAlerts  = "jobs:alerts"

	maxAttempts = 3
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// ReceiptJobPayload renders a thermal receipt PDF for a committed sale.
type ReceiptJobPayload struct {
	SaleID string `json:"sale_id"`
}

// ExportJobPayload renders movement or sale rows for one UTC day to CSV and
// optionally emails the file.
type ExportJobPayload struct {
	Type  string  `json:"type"` // movements | sales
	Date  string  `json:"date"` // YYYY-MM-DD
	Email *string `json:"email"`
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueReceipt pushes a receipt-rendering job to Redis.
func (d *Dispatcher) EnqueueReceipt(ctx context.Context, payload ReceiptJobPayload) error {
	return d.enqueue(ctx, QueueReceipt, "receipt", payload, 0)
}

// EnqueueExport pushes a CSV export job to Redis.
func (d *Dispatcher) EnqueueExport(ctx context.Context, payload ExportJobPayload) error {
	return d.enqueue(ctx, QueueExport, "export", payload, 0)
}

// EnqueueAlertRefresh asks the alerts worker to rebuild the low-stock cache.
// The payload is empty — the worker recomputes the full list each time.
func (d *Dispatcher) EnqueueAlertRefresh(ctx context.Context) error {
	return d.enqueue(ctx, QueueAlerts, "alert_refresh", struct{}{}, 0)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}, attempts int) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job := Job{Type: jobType, Payload: data, Attempts: attempts}
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// Handlers bundles the per-queue processors wired at the composition root.
type Handlers struct {
	Receipt *ReceiptWorker
	Export  *ExportWorker
	Alerts  *AlertsWorker
}

// StartPool launches numWorkers goroutines consuming all queues.
// Each goroutine blocks on BRPOP — zero CPU when idle.
func StartPool(ctx context.Context, rdb *redis.Client, handlers *Handlers, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, handlers, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, rdb *redis.Client, handlers *Handlers, id int) {
	queues := []string{QueueReceipt, QueueExport, QueueAlerts}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop — waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				continue // timeout or context cancelled
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, rdb, handlers, result[0], result[1])
		}
	}
}

// processJob runs the queue's handler; failed jobs are retried up to
// maxAttempts and then parked in the dead letter queue.
func processJob(ctx context.Context, rdb *redis.Client, handlers *Handlers, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("worker: invalid job envelope")
		return
	}

	var err error
	switch queue {
	case QueueReceipt:
		err = handlers.Receipt.Process(ctx, job.Payload)
	case QueueExport:
		err = handlers.Export.Process(ctx, job.Payload)
	case QueueAlerts:
		err = handlers.Alerts.Process(ctx)
	default:
		log.Warn().Str("queue", queue).Msg("worker: unknown queue")
		return
	}
	if err == nil {
		return
	}

	job.Attempts++
	if job.Attempts >= maxAttempts {
		SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, err.Error(), job.Attempts)
		return
	}
	log.Warn().Err(err).Str("queue", queue).Int("attempt", job.Attempts).Msg("worker: job failed, re-enqueueing")
	encoded, mErr := json.Marshal(job)
	if mErr != nil {
		return
	}
	if pushErr := rdb.LPush(ctx, queue, encoded).Err(); pushErr != nil {
		log.Error().Err(pushErr).Str("queue", queue).Msg("worker: re-enqueue failed")
	}
}
