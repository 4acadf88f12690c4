package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/siteatlas/internal/domain"
	"github.com/jonesrussell/siteatlas/internal/logger"
)

func TestManagerStartRejectsInvalidConfig(t *testing.T) {
	h := newHarness(treeSite())
	manager := NewManager(h.pipeline, logger.NewNoOp())

	_, err := manager.Start(context.Background(), domain.JobConfig{
		SeedURL:  "",
		MaxDepth: 1,
		MaxPages: 1,
		Strategy: domain.StrategyBFS,
	})
	assert.ErrorIs(t, err, domain.ErrEmptySeedURL)
	assert.Empty(t, manager.List())
}

func TestManagerUnknownJob(t *testing.T) {
	h := newHarness(treeSite())
	manager := NewManager(h.pipeline, logger.NewNoOp())

	_, err := manager.Status("no-such-job")
	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.ErrorIs(t, manager.Pause("no-such-job"), ErrJobNotFound)
	assert.ErrorIs(t, manager.Resume("no-such-job"), ErrJobNotFound)
	assert.ErrorIs(t, manager.Cancel("no-such-job"), ErrJobNotFound)
}

func TestManagerRunsJobToCompletion(t *testing.T) {
	h := newHarness(treeSite())
	manager := NewManager(h.pipeline, logger.NewNoOp())

	jobID, err := manager.Start(context.Background(), chainConfig())
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	require.Eventually(t, func() bool {
		snapshot, statusErr := manager.Status(jobID)
		return statusErr == nil && snapshot.Status == domain.StatusCompleted
	}, 5*time.Second, 5*time.Millisecond)

	snapshot, err := manager.Status(jobID)
	require.NoError(t, err)
	assert.Equal(t, 4, snapshot.Processed)
	assert.Empty(t, snapshot.Errors)

	// lifecycle operations on a finished job are rejected
	assert.ErrorIs(t, manager.Pause(jobID), ErrIllegalTransition)
	assert.ErrorIs(t, manager.Cancel(jobID), ErrIllegalTransition)

	list := manager.List()
	require.Len(t, list, 1)
	assert.Equal(t, jobID, list[0].ID)
}

func TestManagerStartDetachesFromCallerContext(t *testing.T) {
	h := newHarness(treeSite())
	manager := NewManager(h.pipeline, logger.NewNoOp())

	// an already-cancelled caller context, as when an HTTP handler has
	// returned before the run gets scheduled
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	jobID, err := manager.Start(ctx, chainConfig())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		snapshot, statusErr := manager.Status(jobID)
		return statusErr == nil && snapshot.Status == domain.StatusCompleted
	}, 5*time.Second, 5*time.Millisecond)

	snapshot, err := manager.Status(jobID)
	require.NoError(t, err)
	assert.Equal(t, 4, snapshot.Processed)
	assert.Empty(t, snapshot.Errors)
}

func TestManagerTracksMultipleJobs(t *testing.T) {
	h := newHarness(treeSite())
	manager := NewManager(h.pipeline, logger.NewNoOp())
	ctx := context.Background()

	first, err := manager.Start(ctx, chainConfig())
	require.NoError(t, err)
	second, err := manager.Start(ctx, chainConfig())
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	require.Eventually(t, func() bool {
		a, aErr := manager.Status(first)
		b, bErr := manager.Status(second)
		return aErr == nil && bErr == nil &&
			a.Status == domain.StatusCompleted && b.Status == domain.StatusCompleted
	}, 5*time.Second, 5*time.Millisecond)

	// pages land under each job's own namespace
	countA, err := h.store.CountPages(ctx, first)
	require.NoError(t, err)
	countB, err := h.store.CountPages(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, 4, countA)
	assert.Equal(t, 4, countB)
}
