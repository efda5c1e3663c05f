package generate

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/forgelink/forgelink/internal/queue"
	"github.com/forgelink/forgelink/internal/suggest"
	"github.com/forgelink/forgelink/internal/worker/core"
	"go.uber.org/zap"
)

const (
	// pollInterval is how long the worker sleeps when the queue is empty.
	pollInterval = 5 * time.Second

	// retryBaseDelay is the visibility delay for a job's first retry.
	retryBaseDelay = 15 * time.Second

	// retryMaxDelay caps the per-attempt delay growth.
	retryMaxDelay = 5 * time.Minute
)

// JobSource is the queue surface the worker consumes from.
type JobSource interface {
	Pop(ctx context.Context, batchSize int) ([]*queue.Job, error)
	PushDelayed(ctx context.Context, job *queue.Job, delay time.Duration) error
	Len(ctx context.Context) int
}

// Regenerator runs one full regeneration for a user.
type Regenerator interface {
	Regenerate(ctx context.Context, userID uint64) (*suggest.Result, error)
}

// Worker drains the generation queue, regenerating suggestion caches in the
// background. Failed jobs are re-queued with an incremented attempt count
// until the attempt budget runs out.
type Worker struct {
	jobs        JobSource
	regenerator Regenerator
	reporter    *core.StatusReporter
	logger      *zap.Logger
	batchSize   int
	maxAttempts int
}

// New creates a generation queue worker.
func New(
	jobs JobSource, regenerator Regenerator, reporter *core.StatusReporter,
	batchSize, maxAttempts int, logger *zap.Logger,
) *Worker {
	return &Worker{
		jobs:        jobs,
		regenerator: regenerator,
		reporter:    reporter,
		logger:      logger.Named("generate_worker"),
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
	}
}

// Start begins the queue worker's main loop.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Generation queue worker started", zap.String("workerID", w.reporter.GetWorkerID()))
	w.reporter.Start(ctx)

	defer w.reporter.Stop()

	for {
		if ctx.Err() != nil {
			return
		}

		w.reporter.SetHealthy(true)

		drained, err := w.ProcessBatch(ctx)
		if err != nil {
			w.logger.Error("Failed to process queue batch", zap.Error(err))
			w.reporter.SetHealthy(false)
		}

		if drained == 0 {
			w.reporter.UpdateStatus("Waiting for jobs", 100)

			select {
			case <-ctx.Done():
				return
			case <-time.After(pollInterval):
			}
		}
	}
}

// ProcessBatch pops one batch of jobs and regenerates each target user.
// Returns how many jobs were popped.
func (w *Worker) ProcessBatch(ctx context.Context) (int, error) {
	jobs, err := w.jobs.Pop(ctx, w.batchSize)
	if err != nil {
		return 0, err
	}

	if len(jobs) == 0 {
		return 0, nil
	}

	w.reporter.UpdateStatus("Processing generation jobs", 50)
	w.logger.Debug("Popped generation jobs",
		zap.Int("count", len(jobs)),
		zap.Int("remaining", w.jobs.Len(ctx)))

	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}

		w.processJob(ctx, job)
	}

	return len(jobs), nil
}

// processJob regenerates one user, re-queueing the job on failure while
// attempts remain.
func (w *Worker) processJob(ctx context.Context, job *queue.Job) {
	_, err := w.regenerator.Regenerate(ctx, job.UserID)
	if err == nil {
		w.logger.Debug("Generation job completed",
			zap.Uint64("userID", job.UserID),
			zap.String("reason", job.Reason))

		return
	}

	job.Attempts++
	if job.Attempts >= w.maxAttempts {
		w.logger.Error("Dropping generation job after exhausting attempts",
			zap.Error(err),
			zap.Uint64("userID", job.UserID),
			zap.String("reason", job.Reason),
			zap.Int("attempts", job.Attempts))
		w.reporter.SetHealthy(false)

		return
	}

	job.Reason = queue.ReasonRetry
	job.EnqueuedAt = time.Now()
	delay := retryDelay(job.Attempts)

	w.logger.Warn("Generation job failed, re-queueing",
		zap.Error(err),
		zap.Uint64("userID", job.UserID),
		zap.Int("attempts", job.Attempts),
		zap.Duration("delay", delay))

	if pushErr := w.jobs.PushDelayed(ctx, job, delay); pushErr != nil {
		w.logger.Error("Failed to re-queue generation job",
			zap.Error(pushErr),
			zap.Uint64("userID", job.UserID))
		w.reporter.SetHealthy(false)
	}
}

// retryDelay returns how long a failed job stays invisible before its next
// attempt: doubling per attempt, capped, with jitter in [d/2, d).
func retryDelay(attempts int) time.Duration {
	delay := retryBaseDelay << (attempts - 1)
	if delay <= 0 || delay > retryMaxDelay {
		delay = retryMaxDelay
	}

	return delay/2 + rand.N(delay/2)
}
