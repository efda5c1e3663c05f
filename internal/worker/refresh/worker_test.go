package refresh_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/forgelink/forgelink/internal/suggest"
	"github.com/forgelink/forgelink/internal/worker/core"
	"github.com/forgelink/forgelink/internal/worker/refresh"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errRegen = errors.New("generation failed")

// fakeSource serves canned candidate lists and records requested limits.
type fakeSource struct {
	stale        []uint64
	missing      []uint64
	staleLimit   int
	missingLimit int
}

func (s *fakeSource) GetStaleUserIDs(_ context.Context, _ time.Time, limit int) ([]uint64, error) {
	s.staleLimit = limit
	if limit > 0 && len(s.stale) > limit {
		return s.stale[:limit], nil
	}
	return s.stale, nil
}

func (s *fakeSource) GetActiveUserIDsWithoutCache(_ context.Context, limit int) ([]uint64, error) {
	s.missingLimit = limit
	if limit > 0 && len(s.missing) > limit {
		return s.missing[:limit], nil
	}
	return s.missing, nil
}

// fakeRegenerator records which users were regenerated and when.
type fakeRegenerator struct {
	mu      sync.Mutex
	calls   []uint64
	times   []time.Time
	failFor map[uint64]bool
}

func (r *fakeRegenerator) Regenerate(_ context.Context, userID uint64) (*suggest.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, userID)
	r.times = append(r.times, time.Now())
	if r.failFor[userID] {
		return nil, errRegen
	}
	return &suggest.Result{}, nil
}

func (r *fakeRegenerator) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func setupReporter(t *testing.T) *core.StatusReporter {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return core.NewStatusReporter(client, "refresh", zap.NewNop())
}

func TestRunSweepProcessesAllCandidates(t *testing.T) {
	t.Parallel()

	source := &fakeSource{stale: []uint64{1, 2, 3}, missing: []uint64{4, 5}}
	regenerator := &fakeRegenerator{}
	worker := refresh.New(source, regenerator, setupReporter(t), 2, 0, 200, 3, zap.NewNop())

	processed, errored, err := worker.RunSweep(t.Context(), false)
	require.NoError(t, err)

	assert.Equal(t, 5, processed)
	assert.Equal(t, 0, errored)
	assert.Equal(t, 5, regenerator.callCount())
}

func TestRunSweepDeduplicatesCandidates(t *testing.T) {
	t.Parallel()

	// User 2 appears both as stale and missing
	source := &fakeSource{stale: []uint64{1, 2}, missing: []uint64{2, 3}}
	regenerator := &fakeRegenerator{}
	worker := refresh.New(source, regenerator, setupReporter(t), 5, 0, 200, 3, zap.NewNop())

	processed, _, err := worker.RunSweep(t.Context(), false)
	require.NoError(t, err)

	assert.Equal(t, 3, processed)
	assert.Equal(t, 3, regenerator.callCount())
}

func TestRunSweepContinuesOnFailure(t *testing.T) {
	t.Parallel()

	source := &fakeSource{stale: []uint64{1, 2, 3, 4}}
	regenerator := &fakeRegenerator{failFor: map[uint64]bool{2: true}}
	worker := refresh.New(source, regenerator, setupReporter(t), 2, 0, 200, 3, zap.NewNop())

	processed, errored, err := worker.RunSweep(t.Context(), false)
	require.NoError(t, err)

	// The failing user is counted but everything else still ran
	assert.Equal(t, 3, processed)
	assert.Equal(t, 1, errored)
	assert.Equal(t, 4, regenerator.callCount())
}

func TestRunSweepHourlyUsesLimit(t *testing.T) {
	t.Parallel()

	source := &fakeSource{}
	worker := refresh.New(source, &fakeRegenerator{}, setupReporter(t), 5, 0, 200, 3, zap.NewNop())

	_, _, err := worker.RunSweep(t.Context(), false)
	require.NoError(t, err)

	assert.Equal(t, 200, source.staleLimit)
	assert.Equal(t, 200, source.missingLimit)
}

func TestRunSweepFullIsUnbounded(t *testing.T) {
	t.Parallel()

	source := &fakeSource{}
	worker := refresh.New(source, &fakeRegenerator{}, setupReporter(t), 5, 0, 200, 3, zap.NewNop())

	_, _, err := worker.RunSweep(t.Context(), true)
	require.NoError(t, err)

	assert.Equal(t, 0, source.staleLimit)
	assert.Equal(t, 0, source.missingLimit)
}

func TestRunSweepPausesBetweenBatches(t *testing.T) {
	t.Parallel()

	delay := 75 * time.Millisecond
	source := &fakeSource{stale: []uint64{1, 2, 3, 4}}
	regenerator := &fakeRegenerator{}
	worker := refresh.New(source, regenerator, setupReporter(t), 2, delay, 200, 3, zap.NewNop())

	_, _, err := worker.RunSweep(t.Context(), false)
	require.NoError(t, err)

	require.Len(t, regenerator.times, 4)

	// Calls within a batch run concurrently, so order the timestamps first
	times := append([]time.Time(nil), regenerator.times...)
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	// The second batch must not start until the pause has elapsed
	assert.GreaterOrEqual(t, times[2].Sub(times[1]), delay)
}

func TestRunSweepEmptyCandidates(t *testing.T) {
	t.Parallel()

	source := &fakeSource{}
	regenerator := &fakeRegenerator{}
	worker := refresh.New(source, regenerator, setupReporter(t), 5, 0, 200, 3, zap.NewNop())

	processed, errored, err := worker.RunSweep(t.Context(), false)
	require.NoError(t, err)

	assert.Equal(t, 0, processed)
	assert.Equal(t, 0, errored)
	assert.Equal(t, 0, regenerator.callCount())
}
