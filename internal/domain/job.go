package domain

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// JobStatus represents the lifecycle state of an exploration job.
type JobStatus string

const (
	// StatusIdle means the job has been created but not started.
	StatusIdle JobStatus = "idle"
	// StatusRunning means the job's crawl loop is active.
	StatusRunning JobStatus = "running"
	// StatusPaused means the job is suspended and can be resumed.
	StatusPaused JobStatus = "paused"
	// StatusCompleted means the job finished normally. Terminal.
	StatusCompleted JobStatus = "completed"
	// StatusFailed means the job aborted on a fatal error. Terminal.
	StatusFailed JobStatus = "failed"
	// StatusCancelled means the job was cancelled by the caller. Terminal.
	StatusCancelled JobStatus = "cancelled"
)

// legalTransitions enumerates every allowed status transition. Terminal
// states have no outgoing edges.
var legalTransitions = map[JobStatus][]JobStatus{
	StatusIdle:    {StatusRunning},
	StatusRunning: {StatusPaused, StatusCompleted, StatusFailed, StatusCancelled},
	StatusPaused:  {StatusRunning, StatusCancelled},
}

// CanTransition reports whether moving from s to next is legal.
func (s JobStatus) CanTransition(next JobStatus) bool {
	for _, allowed := range legalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether s is a terminal state.
func (s JobStatus) Terminal() bool {
	return len(legalTransitions[s]) == 0
}

// Strategy selects the frontier ordering for a job.
type Strategy string

const (
	// StrategyBFS processes the frontier first-in first-out.
	StrategyBFS Strategy = "bfs"
	// StrategyDFS processes the frontier last-in first-out.
	StrategyDFS Strategy = "dfs"
)

// Validation errors for job configuration.
var (
	ErrEmptySeedURL    = errors.New("seed URL is required")
	ErrInvalidSeedURL  = errors.New("seed URL must be an absolute http(s) URL")
	ErrInvalidMaxDepth = errors.New("max depth must be non-negative")
	ErrInvalidMaxPages = errors.New("max pages must be positive")
	ErrInvalidStrategy = errors.New("strategy must be bfs or dfs")
)

// JobConfig holds the caller-supplied configuration for an exploration job.
type JobConfig struct {
	SeedURL  string   `json:"seed_url"`
	MaxDepth int      `json:"max_depth"`
	MaxPages int      `json:"max_pages"`
	Strategy Strategy `json:"strategy"`
	// IncludeSubdomains treats subdomains of the seed host as internal.
	// Off by default: subdomains are external.
	IncludeSubdomains bool `json:"include_subdomains"`
}

// Validate checks the configuration before a job may start.
func (c *JobConfig) Validate() error {
	if c.SeedURL == "" {
		return ErrEmptySeedURL
	}
	parsed, err := url.Parse(c.SeedURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("%w: %q", ErrInvalidSeedURL, c.SeedURL)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxDepth, c.MaxDepth)
	}
	if c.MaxPages <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxPages, c.MaxPages)
	}
	if c.Strategy != StrategyBFS && c.Strategy != StrategyDFS {
		return fmt.Errorf("%w: %q", ErrInvalidStrategy, c.Strategy)
	}
	return nil
}

// Candidate is a frontier entry: a discovered URL waiting to be processed.
type Candidate struct {
	URL      string `json:"url"`
	Depth    int    `json:"depth"`
	Referrer string `json:"referrer,omitempty"`
}

// JobError records a non-fatal or fatal error encountered during a job.
type JobError struct {
	URL     string    `json:"url,omitempty"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// ExplorationJob is the durable record of a crawl job. Mutated only by the
// pipeline; snapshots of it are handed to callers.
type ExplorationJob struct {
	ID        string     `json:"id"`
	Status    JobStatus  `json:"status"`
	Config    JobConfig  `json:"config"`
	Processed int        `json:"processed"`
	Queued    int        `json:"queued"`
	Errors    []JobError `json:"errors,omitempty"`
	Warnings  []JobError `json:"warnings,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
