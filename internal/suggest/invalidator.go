package suggest

import (
	"context"
	"time"

	"github.com/forgelink/forgelink/internal/queue"
	"go.uber.org/zap"
)

// Aspect names the part of a profile that changed.
type Aspect string

const (
	AspectSkills   Aspect = "skills"
	AspectProjects Aspect = "projects"
)

// JobQueue is the enqueue surface the invalidator needs.
type JobQueue interface {
	Push(ctx context.Context, job *queue.Job) error
}

// Invalidator reacts to profile mutations by invalidating the cache entry and
// queueing a background regeneration.
type Invalidator struct {
	store  SuggestionStore
	queue  JobQueue
	logger *zap.Logger
}

// NewInvalidator creates an invalidator.
func NewInvalidator(store SuggestionStore, jobQueue JobQueue, logger *zap.Logger) *Invalidator {
	return &Invalidator{
		store:  store,
		queue:  jobQueue,
		logger: logger.Named("invalidator"),
	}
}

// OnProfileMutated invalidates the user's cache entry and enqueues a
// regeneration job. Failures are logged, not returned: the profile write
// already succeeded and must not be rolled back over cache bookkeeping.
// A stale entry left behind here is caught by the next sweep.
func (i *Invalidator) OnProfileMutated(ctx context.Context, userID uint64, aspect Aspect) {
	if err := i.store.Invalidate(ctx, userID); err != nil {
		i.logger.Error("Failed to invalidate suggestion cache",
			zap.Error(err),
			zap.Uint64("userID", userID),
			zap.String("aspect", string(aspect)))
	}

	err := i.queue.Push(ctx, &queue.Job{
		UserID:     userID,
		Reason:     queue.ReasonProfileMutated,
		EnqueuedAt: time.Now(),
	})
	if err != nil {
		i.logger.Error("Failed to enqueue regeneration job",
			zap.Error(err),
			zap.Uint64("userID", userID),
			zap.String("aspect", string(aspect)))

		return
	}

	i.logger.Debug("Profile mutation queued regeneration",
		zap.Uint64("userID", userID),
		zap.String("aspect", string(aspect)))
}
