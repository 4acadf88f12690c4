package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/siteatlas/internal/domain"
)

func chainConfig() domain.JobConfig {
	return domain.JobConfig{
		SeedURL:  "https://example.com/a",
		MaxDepth: 3,
		MaxPages: 10,
		Strategy: domain.StrategyBFS,
	}
}

func TestNewJobValidatesConfig(t *testing.T) {
	_, err := NewJob(domain.JobConfig{SeedURL: "not a url", MaxDepth: 1, MaxPages: 1, Strategy: domain.StrategyBFS})
	assert.ErrorIs(t, err, domain.ErrInvalidSeedURL)

	_, err = NewJob(domain.JobConfig{SeedURL: "https://example.com", MaxDepth: -1, MaxPages: 1, Strategy: domain.StrategyBFS})
	assert.ErrorIs(t, err, domain.ErrInvalidMaxDepth)

	_, err = NewJob(domain.JobConfig{SeedURL: "https://example.com", MaxDepth: 1, MaxPages: 0, Strategy: domain.StrategyBFS})
	assert.ErrorIs(t, err, domain.ErrInvalidMaxPages)

	_, err = NewJob(domain.JobConfig{SeedURL: "https://example.com", MaxDepth: 1, MaxPages: 1, Strategy: "random-walk"})
	assert.ErrorIs(t, err, domain.ErrInvalidStrategy)
}

func TestNewJobSeedsFrontier(t *testing.T) {
	job, err := NewJob(chainConfig())
	require.NoError(t, err)

	assert.NotEmpty(t, job.ID())
	assert.Equal(t, domain.StatusIdle, job.Status())
	assert.Equal(t, 1, job.Engine().FrontierLen())
}

func TestControlRequestsFromWrongState(t *testing.T) {
	job, err := NewJob(chainConfig())
	require.NoError(t, err)

	// idle: nothing is running yet
	assert.ErrorIs(t, job.RequestPause(), ErrIllegalTransition)
	assert.ErrorIs(t, job.RequestResume(), ErrIllegalTransition)
	assert.ErrorIs(t, job.RequestCancel(), ErrIllegalTransition)

	require.NoError(t, job.transition(domain.StatusRunning))
	require.NoError(t, job.transition(domain.StatusCompleted))

	// terminal states reject everything
	assert.ErrorIs(t, job.RequestPause(), ErrIllegalTransition)
	assert.ErrorIs(t, job.RequestCancel(), ErrIllegalTransition)
	assert.ErrorIs(t, job.transition(domain.StatusRunning), ErrIllegalTransition)
}

func TestPauseResumeDoesNotReprocess(t *testing.T) {
	h := newHarness(treeSite())
	gate := make(chan struct{}, 16)
	h.provider.gate = gate

	job, err := NewJob(chainConfig())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- h.pipeline.Run(context.Background(), job) }()

	require.Eventually(t, func() bool {
		return job.Status() == domain.StatusRunning
	}, time.Second, time.Millisecond)

	require.NoError(t, job.RequestPause())
	gate <- struct{}{}

	require.Eventually(t, func() bool {
		return job.Status() == domain.StatusPaused
	}, time.Second, time.Millisecond)

	processedAtPause := job.Snapshot().Processed
	assert.LessOrEqual(t, processedAtPause, 1)

	require.NoError(t, job.RequestResume())
	for i := 0; i < 8; i++ {
		gate <- struct{}{}
	}

	select {
	case runErr := <-done:
		require.NoError(t, runErr)
	case <-time.After(5 * time.Second):
		t.Fatal("job did not finish after resume")
	}

	assert.Equal(t, domain.StatusCompleted, job.Status())
	assert.Equal(t, 4, job.Snapshot().Processed)

	// every page fetched exactly once despite the pause
	seen := map[string]int{}
	for _, url := range h.provider.fetched() {
		seen[url]++
	}
	assert.Len(t, seen, 4)
	for url, count := range seen {
		assert.Equal(t, 1, count, "url %s refetched", url)
	}
}

func TestCancelStopsTheLoop(t *testing.T) {
	h := newHarness(treeSite())
	gate := make(chan struct{}, 16)
	h.provider.gate = gate

	job, err := NewJob(chainConfig())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- h.pipeline.Run(context.Background(), job) }()

	require.Eventually(t, func() bool {
		return job.Status() == domain.StatusRunning
	}, time.Second, time.Millisecond)

	gate <- struct{}{}
	require.NoError(t, job.RequestCancel())
	gate <- struct{}{}

	select {
	case runErr := <-done:
		require.NoError(t, runErr)
	case <-time.After(5 * time.Second):
		t.Fatal("job did not stop after cancel")
	}

	assert.Equal(t, domain.StatusCancelled, job.Status())
	assert.Less(t, len(h.provider.fetched()), 4)

	// cancellation is terminal
	assert.ErrorIs(t, job.RequestResume(), ErrIllegalTransition)
	assert.ErrorIs(t, job.RequestCancel(), ErrIllegalTransition)
}

func TestCancelWhilePaused(t *testing.T) {
	h := newHarness(treeSite())
	gate := make(chan struct{}, 16)
	h.provider.gate = gate

	job, err := NewJob(chainConfig())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- h.pipeline.Run(context.Background(), job) }()

	require.Eventually(t, func() bool {
		return job.Status() == domain.StatusRunning
	}, time.Second, time.Millisecond)

	require.NoError(t, job.RequestPause())
	gate <- struct{}{}

	require.Eventually(t, func() bool {
		return job.Status() == domain.StatusPaused
	}, time.Second, time.Millisecond)

	require.NoError(t, job.RequestCancel())

	select {
	case runErr := <-done:
		require.NoError(t, runErr)
	case <-time.After(5 * time.Second):
		t.Fatal("paused job did not stop after cancel")
	}

	assert.Equal(t, domain.StatusCancelled, job.Status())
}

func TestSnapshotIsDetached(t *testing.T) {
	job, err := NewJob(chainConfig())
	require.NoError(t, err)
	job.addError("https://example.com/x", "boom")

	snapshot := job.Snapshot()
	snapshot.Errors[0].Message = "mutated"
	snapshot.Status = domain.StatusFailed

	assert.Equal(t, "boom", job.Snapshot().Errors[0].Message)
	assert.Equal(t, domain.StatusIdle, job.Status())
}
