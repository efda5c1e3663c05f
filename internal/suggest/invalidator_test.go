package suggest_test

import (
	"errors"
	"testing"
	"time"

	"github.com/forgelink/forgelink/internal/database/types"
	"github.com/forgelink/forgelink/internal/queue"
	"github.com/forgelink/forgelink/internal/suggest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOnProfileMutatedInvalidatesAndEnqueues(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.entries[7] = &types.SuggestionCache{
		UserID:        7,
		ProjectIdeas:  []string{"idea"},
		SkillRoadmap:  "roadmap",
		IsValid:       true,
		LastGenerated: time.Now(),
		UpdatedAt:     time.Now(),
	}

	jobQueue := &fakeQueue{}
	invalidator := suggest.NewInvalidator(store, jobQueue, zap.NewNop())

	invalidator.OnProfileMutated(t.Context(), 7, suggest.AspectSkills)

	// Entry flipped invalid but payload retained
	assert.False(t, store.entries[7].IsValid)
	assert.Equal(t, []string{"idea"}, store.entries[7].ProjectIdeas)

	require.Len(t, jobQueue.jobs, 1)
	assert.Equal(t, uint64(7), jobQueue.jobs[0].UserID)
	assert.Equal(t, queue.ReasonProfileMutated, jobQueue.jobs[0].Reason)
}

func TestOnProfileMutatedMissingEntryStillEnqueues(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	jobQueue := &fakeQueue{}
	invalidator := suggest.NewInvalidator(store, jobQueue, zap.NewNop())

	// No cache entry exists yet; invalidation is a no-op
	invalidator.OnProfileMutated(t.Context(), 3, suggest.AspectProjects)

	require.Len(t, jobQueue.jobs, 1)
	assert.Equal(t, uint64(3), jobQueue.jobs[0].UserID)
}

func TestOnProfileMutatedSwallowsInvalidateError(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.invalidateErr = errors.New("connection refused")

	jobQueue := &fakeQueue{}
	invalidator := suggest.NewInvalidator(store, jobQueue, zap.NewNop())

	// Must not panic or block the caller; the job is still enqueued
	invalidator.OnProfileMutated(t.Context(), 5, suggest.AspectSkills)

	require.Len(t, jobQueue.jobs, 1)
}

func TestOnProfileMutatedSwallowsQueueError(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	jobQueue := &fakeQueue{pushErr: errors.New("redis down")}
	invalidator := suggest.NewInvalidator(store, jobQueue, zap.NewNop())

	invalidator.OnProfileMutated(t.Context(), 5, suggest.AspectSkills)

	// Invalidation still happened even though the enqueue failed
	assert.Equal(t, []uint64{5}, store.invalidations)
}
