// Package pipeline drives the crawl loop and owns the exploration job
// lifecycle: idle, running, paused, completed, failed, cancelled.
package pipeline

import "errors"

// Errors returned by the pipeline and job manager.
var (
	// ErrJobNotFound is returned when a job id is unknown.
	ErrJobNotFound = errors.New("job not found")
	// ErrIllegalTransition is returned when a control call is not legal
	// for the job's current status.
	ErrIllegalTransition = errors.New("illegal job status transition")
	// ErrStorageFailed marks the one fatal error class: persistence
	// failed after a retry, so continuing would silently lose data.
	ErrStorageFailed = errors.New("storage failed after retry")
)
