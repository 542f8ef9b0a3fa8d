package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObserver struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeObserver) ObserveJob(name string, dur time.Duration, failed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeObserver) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestSchedulerRunsRegisteredJobAndRecordsStats(t *testing.T) {
	s, err := New(time.UTC)
	require.NoError(t, err)

	obs := &fakeObserver{}
	s.SetObserver(obs)

	var runs int
	var mu sync.Mutex
	err = s.Register(JobSpec{Name: "tick", Every: 20 * time.Millisecond, SingleInstance: true}, func(ctx context.Context) error {
		mu.Lock()
		runs++
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)

	s.Start()
	assert.Eventually(t, func() bool { return obs.count() >= 1 }, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	stats := s.Stats()
	assert.Len(t, stats.Jobs, 1)
	assert.Equal(t, "tick", stats.Jobs[0].JobID)
	assert.GreaterOrEqual(t, stats.Jobs[0].RunCount, int64(1))
}

func TestSchedulerRecordsFailedJobs(t *testing.T) {
	s, err := New(time.UTC)
	require.NoError(t, err)

	err = s.Register(JobSpec{Name: "failing", Every: 20 * time.Millisecond, SingleInstance: true}, func(ctx context.Context) error {
		return assertError{}
	})
	require.NoError(t, err)

	s.Start()
	assert.Eventually(t, func() bool {
		stats := s.Stats()
		return len(stats.Jobs) == 1 && stats.Jobs[0].ErrorCount >= 1
	}, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

type assertError struct{}

func (assertError) Error() string { return "boom" }
