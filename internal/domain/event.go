package domain

import "time"

// EventKind identifies the type of a progress event.
type EventKind string

const (
	// EventProgress reports loop progress (processed vs queued).
	EventProgress EventKind = "progress"
	// EventPageCompleted reports a successfully stored page.
	EventPageCompleted EventKind = "page_completed"
	// EventExternalLink reports a link crossing the domain boundary.
	EventExternalLink EventKind = "external_link_detected"
	// EventError reports a non-fatal error.
	EventError EventKind = "error"
)

// ProgressEvent is an ephemeral notification emitted by the pipeline.
// Events are delivered best-effort and never persisted.
type ProgressEvent struct {
	Kind      EventKind      `json:"kind"`
	JobID     string         `json:"job_id"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
