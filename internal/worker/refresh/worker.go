package refresh

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/forgelink/forgelink/internal/suggest"
	"github.com/forgelink/forgelink/internal/worker/core"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// CandidateSource finds users whose suggestions need regenerating.
type CandidateSource interface {
	GetStaleUserIDs(ctx context.Context, cutoff time.Time, limit int) ([]uint64, error)
	GetActiveUserIDsWithoutCache(ctx context.Context, limit int) ([]uint64, error)
}

// Regenerator runs one full regeneration for a user.
type Regenerator interface {
	Regenerate(ctx context.Context, userID uint64) (*suggest.Result, error)
}

// Worker proactively refreshes stale suggestion caches. Every hour it sweeps
// a bounded slice of stale and missing entries; once a night it sweeps them
// all so no user falls permanently behind the hourly limit.
type Worker struct {
	source      CandidateSource
	regenerator Regenerator
	reporter    *core.StatusReporter
	logger      *zap.Logger
	batchSize   int
	batchDelay  time.Duration
	hourlyLimit int
	nightlyHour int
}

// New creates a refresh worker.
func New(
	source CandidateSource, regenerator Regenerator, reporter *core.StatusReporter,
	batchSize int, batchDelay time.Duration, hourlyLimit, nightlyHour int, logger *zap.Logger,
) *Worker {
	return &Worker{
		source:      source,
		regenerator: regenerator,
		reporter:    reporter,
		logger:      logger.Named("refresh_worker"),
		batchSize:   batchSize,
		batchDelay:  batchDelay,
		hourlyLimit: hourlyLimit,
		nightlyHour: nightlyHour,
	}
}

// Start begins the refresh worker's main loop.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Refresh worker started", zap.String("workerID", w.reporter.GetWorkerID()))
	w.reporter.Start(ctx)

	defer w.reporter.Stop()

	for {
		w.reporter.SetHealthy(true)

		full := time.Now().Hour() == w.nightlyHour

		processed, errored, err := w.RunSweep(ctx, full)
		if err != nil {
			w.logger.Error("Sweep failed", zap.Error(err))
			w.reporter.SetHealthy(false)
		} else {
			w.logger.Info("Sweep completed",
				zap.Bool("full", full),
				zap.Int("processed", processed),
				zap.Int("errored", errored))
		}

		w.reporter.UpdateStatus("Sleeping until next sweep", 100)

		// Wake at the top of the hour so every hour boundary, including the
		// nightly one, gets exactly one sweep regardless of sweep duration
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(nextWake(time.Now()))):
		}
	}
}

// nextWake returns the next top-of-hour after now.
func nextWake(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, now.Location()).
		Add(time.Hour)
}

// RunSweep regenerates suggestions for all current candidates. A full sweep
// ignores the hourly limit. Individual failures are counted, logged, and do
// not abort the sweep.
func (w *Worker) RunSweep(ctx context.Context, full bool) (int, int, error) {
	limit := w.hourlyLimit
	if full {
		limit = 0
	}

	w.reporter.UpdateStatus("Collecting sweep candidates", 10)

	candidates, err := w.collectCandidates(ctx, limit)
	if err != nil {
		return 0, 0, err
	}

	if len(candidates) == 0 {
		w.logger.Debug("No stale suggestion caches to refresh")
		return 0, 0, nil
	}

	w.logger.Info("Starting refresh sweep",
		zap.Bool("full", full),
		zap.Int("candidates", len(candidates)))

	var (
		processed atomic.Int64
		errored   atomic.Int64
	)

	// Process in bounded batches with a pause between them to spread load on
	// the inference gateway
	numBatches := (len(candidates) + w.batchSize - 1) / w.batchSize

	for i := range numBatches {
		if ctx.Err() != nil {
			break
		}

		start := i * w.batchSize
		end := min(start+w.batchSize, len(candidates))
		batch := candidates[start:end]

		progress := 10 + (85*(i+1))/numBatches
		w.reporter.UpdateStatus("Refreshing suggestion caches", progress)

		p := pool.New().WithContext(ctx)

		for _, userID := range batch {
			p.Go(func(ctx context.Context) error {
				if _, err := w.regenerator.Regenerate(ctx, userID); err != nil {
					errored.Add(1)
					w.logger.Error("Failed to refresh suggestions",
						zap.Error(err),
						zap.Uint64("userID", userID))

					// Per-user failures must not cancel batch siblings
					return nil
				}

				processed.Add(1)

				return nil
			})
		}

		if err := p.Wait(); err != nil {
			w.logger.Error("Batch wait failed", zap.Error(err))
		}

		if i < numBatches-1 && w.batchDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(w.batchDelay):
			}
		}
	}

	if errored.Load() > 0 {
		w.reporter.SetHealthy(false)
	}

	return int(processed.Load()), int(errored.Load()), nil
}

// collectCandidates merges stale and never-cached users, deduplicated with
// stale entries first.
func (w *Worker) collectCandidates(ctx context.Context, limit int) ([]uint64, error) {
	cutoff := time.Now().Add(-suggest.FreshnessWindow)

	stale, err := w.source.GetStaleUserIDs(ctx, cutoff, limit)
	if err != nil {
		return nil, err
	}

	missing, err := w.source.GetActiveUserIDsWithoutCache(ctx, limit)
	if err != nil {
		return nil, err
	}

	seen := make(map[uint64]struct{}, len(stale)+len(missing))
	candidates := make([]uint64, 0, len(stale)+len(missing))

	for _, id := range append(stale, missing...) {
		if _, ok := seen[id]; ok {
			continue
		}

		seen[id] = struct{}{}
		candidates = append(candidates, id)
	}

	return candidates, nil
}
