package domain

import "time"

// LinkType classifies a link relative to the job's domain boundary.
type LinkType string

const (
	// LinkInternal marks a link whose host is inside the job's boundary.
	LinkInternal LinkType = "internal"
	// LinkExternal marks a link pointing outside the boundary. External
	// targets are recorded as edges but never traversed.
	LinkExternal LinkType = "external"
)

// Link represents a directed edge between two URLs. Links are keyed by the
// (FromURL, ToURL) pair and are immutable after creation. ToURL may reference
// a page that has not been visited and may never be stored.
type Link struct {
	FromURL      string    `db:"from_url" json:"from_url"`
	ToURL        string    `db:"to_url" json:"to_url"`
	AnchorText   string    `db:"anchor_text" json:"anchor_text,omitempty"`
	Type         LinkType  `db:"link_type" json:"type"`
	Attributes   JSONBMap  `db:"attributes" json:"attributes,omitempty"`
	JobID        string    `db:"job_id" json:"job_id"`
	DiscoveredAt time.Time `db:"discovered_at" json:"discovered_at"`
}

// FormField describes a single input inside a discovered form.
type FormField struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	ReadOnly bool   `json:"read_only"`
}

// Form represents a form discovered on a page. Mutating forms are detected
// and flagged but never submitted.
type Form struct {
	Action   string      `json:"action"`
	Method   string      `json:"method"`
	Fields   []FormField `json:"fields,omitempty"`
	Mutating bool        `json:"mutating"`
}
