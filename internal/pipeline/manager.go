package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonesrussell/siteatlas/internal/domain"
	"github.com/jonesrussell/siteatlas/internal/flow"
	"github.com/jonesrussell/siteatlas/internal/logger"
)

// Manager owns the job registry. All lifecycle operations — start, pause,
// resume, cancel, status, results — go through it.
type Manager struct {
	pipeline *Pipeline
	logger   logger.Interface

	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewManager creates a manager that runs jobs on pipeline.
func NewManager(pipeline *Pipeline, log logger.Interface) *Manager {
	return &Manager{
		pipeline: pipeline,
		logger:   log.WithComponent("manager"),
		jobs:     make(map[string]*Job),
	}
}

// Start validates cfg, registers a new job, and launches its exploration
// in the background. It returns the job ID immediately. The run outlives
// the caller's context: only Cancel or process shutdown stops a job, so a
// job started from an HTTP handler keeps running after the request ends.
func (m *Manager) Start(ctx context.Context, cfg domain.JobConfig) (string, error) {
	job, err := NewJob(cfg)
	if err != nil {
		return "", fmt.Errorf("start job: %w", err)
	}

	m.mu.Lock()
	m.jobs[job.ID()] = job
	m.mu.Unlock()

	runCtx := context.WithoutCancel(ctx)
	go func() {
		if runErr := m.pipeline.Run(runCtx, job); runErr != nil {
			m.logger.Error("Job run failed", "job_id", job.ID(), "error", runErr)
		}
	}()

	m.logger.Info("Job started", "job_id", job.ID(), "seed", cfg.SeedURL)
	return job.ID(), nil
}

// Pause requests a cooperative pause of a running job.
func (m *Manager) Pause(jobID string) error {
	job, err := m.get(jobID)
	if err != nil {
		return err
	}
	return job.RequestPause()
}

// Resume resumes a paused job.
func (m *Manager) Resume(jobID string) error {
	job, err := m.get(jobID)
	if err != nil {
		return err
	}
	return job.RequestResume()
}

// Cancel terminally cancels a running or paused job.
func (m *Manager) Cancel(jobID string) error {
	job, err := m.get(jobID)
	if err != nil {
		return err
	}
	return job.RequestCancel()
}

// Status returns a point-in-time snapshot of the job record.
func (m *Manager) Status(jobID string) (domain.ExplorationJob, error) {
	job, err := m.get(jobID)
	if err != nil {
		return domain.ExplorationJob{}, err
	}
	return job.Snapshot(), nil
}

// Job returns the live job handle. Callers needing flow or frontier data
// beyond the snapshot use this.
func (m *Manager) Job(jobID string) (*Job, error) {
	return m.get(jobID)
}

// Flow returns the job's navigation-flow mapper.
func (m *Manager) Flow(jobID string) (*flow.Mapper, error) {
	job, err := m.get(jobID)
	if err != nil {
		return nil, err
	}
	return job.Flow(), nil
}

// List returns snapshots of every registered job.
func (m *Manager) List() []domain.ExplorationJob {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshots := make([]domain.ExplorationJob, 0, len(m.jobs))
	for _, job := range m.jobs {
		snapshots = append(snapshots, job.Snapshot())
	}
	return snapshots
}

func (m *Manager) get(jobID string) (*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return job, nil
}
