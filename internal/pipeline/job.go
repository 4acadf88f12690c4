package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/siteatlas/internal/domain"
	"github.com/jonesrussell/siteatlas/internal/explorer"
	"github.com/jonesrussell/siteatlas/internal/flow"
)

// Job is the runtime state of one exploration job: the durable record plus
// the engine, flow mapper, and cooperative control signals. Status is
// mutated only by the crawl loop; control calls set flags that the loop
// consumes at its boundary.
type Job struct {
	mu   sync.Mutex
	cond *sync.Cond

	record domain.ExplorationJob
	engine *explorer.Engine
	flow   *flow.Mapper

	pauseRequested  bool
	cancelRequested bool

	done chan struct{}
}

// NewJob creates an idle job for the given validated configuration and
// admits the seed URL into the frontier.
func NewJob(cfg domain.JobConfig) (*Job, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	engine, err := explorer.New(cfg)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	j := &Job{
		record: domain.ExplorationJob{
			ID:        uuid.New().String(),
			Status:    domain.StatusIdle,
			Config:    cfg,
			CreatedAt: now,
			UpdatedAt: now,
		},
		engine: engine,
		flow:   flow.NewMapper(),
		done:   make(chan struct{}),
	}
	j.cond = sync.NewCond(&j.mu)

	engine.Admit(domain.Candidate{URL: cfg.SeedURL, Depth: 0}, 0)
	return j, nil
}

// ID returns the job identifier.
func (j *Job) ID() string {
	return j.record.ID
}

// Flow returns the job's flow mapper.
func (j *Job) Flow() *flow.Mapper {
	return j.flow
}

// Engine returns the job's exploration engine.
func (j *Job) Engine() *explorer.Engine {
	return j.engine
}

// Done returns a channel closed when the crawl loop exits.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Snapshot returns a copy of the job record plus live counters. Safe to
// call concurrently with the running loop.
func (j *Job) Snapshot() domain.ExplorationJob {
	j.mu.Lock()
	defer j.mu.Unlock()

	snapshot := j.record
	snapshot.Queued = j.engine.FrontierLen()
	snapshot.Errors = append([]domain.JobError(nil), j.record.Errors...)
	snapshot.Warnings = append([]domain.JobError(nil), j.record.Warnings...)
	return snapshot
}

// Status returns the current job status.
func (j *Job) Status() domain.JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.record.Status
}

// transition moves the job to next, enforcing the legal transition set.
// Called only by the crawl loop.
func (j *Job) transition(next domain.JobStatus) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.transitionLocked(next)
}

// transitionLocked is transition with the lock already held.
func (j *Job) transitionLocked(next domain.JobStatus) error {
	if !j.record.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, j.record.Status, next)
	}
	j.record.Status = next
	j.record.UpdatedAt = time.Now()
	return nil
}

// RequestPause asks the running loop to suspend at its next boundary.
func (j *Job) RequestPause() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.record.Status != domain.StatusRunning {
		return fmt.Errorf("%w: pause from %s", ErrIllegalTransition, j.record.Status)
	}
	j.pauseRequested = true
	return nil
}

// RequestResume wakes a paused (or pause-requested) loop.
func (j *Job) RequestResume() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.record.Status != domain.StatusPaused && !j.pauseRequested {
		return fmt.Errorf("%w: resume from %s", ErrIllegalTransition, j.record.Status)
	}
	j.pauseRequested = false
	j.cond.Broadcast()
	return nil
}

// RequestCancel asks the loop to stop at its next boundary. Legal while
// running or paused; committed writes stay intact.
func (j *Job) RequestCancel() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.record.Status != domain.StatusRunning && j.record.Status != domain.StatusPaused {
		return fmt.Errorf("%w: cancel from %s", ErrIllegalTransition, j.record.Status)
	}
	j.cancelRequested = true
	j.pauseRequested = false
	j.cond.Broadcast()
	return nil
}

// cancelled reports whether cancellation has been requested. Checked
// between fetch retries.
func (j *Job) cancelled() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cancelRequested
}

// checkControl is the loop-boundary control point. When a pause was
// requested it transitions to paused and blocks on the condition until
// resumed or cancelled; frontier and visited state are retained in place.
// Returns true when the loop must stop because the job was cancelled.
func (j *Job) checkControl() (stopped bool, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.cancelRequested {
		return true, j.transitionLocked(domain.StatusCancelled)
	}

	if j.pauseRequested {
		if transitionErr := j.transitionLocked(domain.StatusPaused); transitionErr != nil {
			return false, transitionErr
		}
		for j.pauseRequested && !j.cancelRequested {
			j.cond.Wait()
		}
		if j.cancelRequested {
			return true, j.transitionLocked(domain.StatusCancelled)
		}
		if transitionErr := j.transitionLocked(domain.StatusRunning); transitionErr != nil {
			return false, transitionErr
		}
	}

	return false, nil
}

// addError appends a non-fatal error to the job record.
func (j *Job) addError(url, message string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.record.Errors = append(j.record.Errors, domain.JobError{URL: url, Message: message, At: time.Now()})
}

// addWarning appends a warning to the job record.
func (j *Job) addWarning(url, message string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.record.Warnings = append(j.record.Warnings, domain.JobError{URL: url, Message: message, At: time.Now()})
}

// incrementProcessed bumps the processed-page counter and returns the new
// value.
func (j *Job) incrementProcessed() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.record.Processed++
	return j.record.Processed
}

// processed returns the processed-page counter.
func (j *Job) processed() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.record.Processed
}
