package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

// generationQueueKey is the Redis sorted set holding pending generation jobs,
// scored by enqueue time so jobs are popped oldest first.
const generationQueueKey = "suggestions:generation_queue"

// Reasons a generation job was enqueued.
const (
	ReasonProfileMutated = "profile_mutated"
	ReasonRetry          = "retry"
)

// Job encapsulates one suggestion regeneration request.
// Jobs are idempotent: regenerating the same user twice simply overwrites
// the cache entry again.
type Job struct {
	UserID     uint64    `json:"userId"`     // Target user for regeneration
	Reason     string    `json:"reason"`     // Why the job was enqueued
	EnqueuedAt time.Time `json:"enqueuedAt"` // Timestamp for FIFO ordering
	Attempts   int       `json:"attempts"`   // Times this job has already been attempted
}

// Manager orchestrates generation queue operations using a Redis sorted set.
type Manager struct {
	client rueidis.Client
	logger *zap.Logger
}

// NewManager initializes a queue manager with its required dependencies.
func NewManager(client rueidis.Client, logger *zap.Logger) *Manager {
	return &Manager{
		client: client,
		logger: logger.Named("queue"),
	}
}

// Push adds a generation job to the queue, immediately visible to Pop.
func (m *Manager) Push(ctx context.Context, job *Job) error {
	return m.PushDelayed(ctx, job, 0)
}

// PushDelayed adds a generation job that Pop will not hand out until the
// delay has elapsed. Used by the queue worker to back off failed jobs.
func (m *Manager) PushDelayed(ctx context.Context, job *Job, delay time.Duration) error {
	jobJSON, err := sonic.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal generation job: %w", err)
	}

	visibleAt := job.EnqueuedAt.Add(delay)

	err = m.client.Do(ctx,
		m.client.B().Zadd().Key(generationQueueKey).ScoreMember().
			ScoreMember(float64(visibleAt.UnixMilli()), string(jobJSON)).Build(),
	).Error()
	if err != nil {
		return fmt.Errorf("failed to push generation job: %w", err)
	}

	m.logger.Debug("Enqueued generation job",
		zap.Uint64("userID", job.UserID),
		zap.String("reason", job.Reason),
		zap.Int("attempts", job.Attempts),
		zap.Duration("delay", delay))

	return nil
}

// Pop retrieves and removes up to batchSize due jobs, oldest first. Jobs
// whose visibility time is still in the future are left untouched.
// Members that fail to deserialize are dropped and logged.
func (m *Manager) Pop(ctx context.Context, batchSize int) ([]*Job, error) {
	members, err := m.client.Do(ctx,
		m.client.B().Zrangebyscore().Key(generationQueueKey).
			Min("-inf").Max(fmt.Sprint(time.Now().UnixMilli())).
			Limit(0, int64(batchSize)).Build(),
	).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("failed to get generation jobs: %w", err)
	}

	if len(members) == 0 {
		return nil, nil
	}

	jobs := make([]*Job, 0, len(members))

	for _, member := range members {
		// Remove the member regardless of whether it parses; a corrupt
		// member would otherwise wedge the head of the queue.
		if err := m.client.Do(ctx,
			m.client.B().Zrem().Key(generationQueueKey).Member(member).Build(),
		).Error(); err != nil {
			return jobs, fmt.Errorf("failed to remove generation job: %w", err)
		}

		var job Job
		if err := sonic.Unmarshal([]byte(member), &job); err != nil {
			m.logger.Error("Failed to unmarshal generation job",
				zap.Error(err),
				zap.String("member", member))

			continue
		}

		jobs = append(jobs, &job)
	}

	return jobs, nil
}

// Len returns the number of pending generation jobs.
func (m *Manager) Len(ctx context.Context) int {
	count, err := m.client.Do(ctx,
		m.client.B().Zcard().Key(generationQueueKey).Build(),
	).ToInt64()
	if err != nil {
		m.logger.Error("Failed to get queue length", zap.Error(err))
		return 0
	}

	return int(count)
}
