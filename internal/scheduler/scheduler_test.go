package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minjae-dev/stockpulse/pkg/logger"
)

// countingJob fails its first failFirst runs, then succeeds.
type countingJob struct {
	mu        sync.Mutex
	name      string
	runs      int
	failFirst int
}

func (j *countingJob) Name() string     { return j.name }
func (j *countingJob) Schedule() string { return "0 0 * * * *" }

func (j *countingJob) Run(_ context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.runs++
	if j.runs <= j.failFirst {
		return errors.New("transient failure")
	}
	return nil
}

func (j *countingJob) runCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runs
}

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s := New(logger.Nop())
	s.retryDelay = time.Millisecond
	return s
}

func TestRunJobRetriesUntilCeiling(t *testing.T) {
	s := newTestScheduler(t)
	job := &countingJob{name: "flaky", failFirst: 100}
	require.NoError(t, s.AddJob(job))

	s.runJob(job)

	// Initial attempt plus maxRetries retries, all failed.
	assert.Equal(t, s.maxRetries+1, job.runCount())

	stats := s.GetJobStats()["flaky"]
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1, stats.FailureCount)
	assert.Equal(t, 0, stats.SuccessCount)
	assert.Equal(t, 0.0, stats.SuccessRate)
	require.NotNil(t, stats.LastRun)
}

func TestRunJobRecoversAfterFailure(t *testing.T) {
	s := newTestScheduler(t)
	job := &countingJob{name: "recovers", failFirst: 1}
	require.NoError(t, s.AddJob(job))

	s.runJob(job)

	// First attempt fails, the retry succeeds; no further attempts.
	assert.Equal(t, 2, job.runCount())

	stats := s.GetJobStats()["recovers"]
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1, stats.SuccessCount)
	assert.Equal(t, 0, stats.FailureCount)
	assert.Equal(t, 1.0, stats.SuccessRate)
}

func TestAddJobRejectsDuplicate(t *testing.T) {
	s := newTestScheduler(t)

	require.NoError(t, s.AddJob(&countingJob{name: "once"}))
	err := s.AddJob(&countingJob{name: "once"})
	assert.ErrorContains(t, err, "already exists")
}

func TestRunJobByNameUnknown(t *testing.T) {
	s := newTestScheduler(t)
	assert.ErrorContains(t, s.RunJob("missing"), "not found")
}
