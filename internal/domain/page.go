// Package domain provides domain models used across the application.
package domain

import "time"

// ContentSummary holds the semantic content extracted from a page.
type ContentSummary struct {
	Title      string   `db:"-" json:"title"`
	Headings   []string `db:"-" json:"headings,omitempty"`
	Paragraphs []string `db:"-" json:"paragraphs,omitempty"`
	Text       string   `db:"-" json:"text,omitempty"`
}

// Topics holds topic-model output for a page.
type Topics struct {
	Keywords   []string `json:"keywords,omitempty"`
	MainTopics []string `json:"main_topics,omitempty"`
	Categories []string `json:"categories,omitempty"`
}

// Page represents a crawled web page. Pages are keyed by canonical URL;
// re-storing the same URL replaces the record, never duplicates it.
type Page struct {
	// URL is the canonical URL of the page.
	URL string `db:"url" json:"url"`
	// URLHash is the deterministic storage key derived from URL.
	URLHash string `db:"url_hash" json:"url_hash"`
	// JobID identifies the exploration job that stored the page.
	JobID string `db:"job_id" json:"job_id"`
	// Depth is the traversal depth at first discovery.
	Depth int `db:"depth" json:"depth"`
	// VisitedAt is when the page was fetched.
	VisitedAt time.Time `db:"visited_at" json:"visited_at"`
	// Summary is the extracted page content.
	Summary ContentSummary `db:"-" json:"summary"`
	// Topics are the topic/category labels attached by the analyzer.
	Topics Topics `db:"-" json:"topics"`
	// EmbeddingID references the page's vector in the vector store.
	// Empty when no embedding was generated.
	EmbeddingID string `db:"embedding_id" json:"embedding_id,omitempty"`
	// Entities are named entities identified in the page text.
	Entities []string `db:"-" json:"entities,omitempty"`
	// Forms are the forms detected on the page. Mutating forms are
	// recorded but never submitted.
	Forms []Form `db:"-" json:"forms,omitempty"`
}

// PrimaryCategory returns the first category label, or empty when the
// analyzer produced none.
func (p *Page) PrimaryCategory() string {
	if len(p.Topics.Categories) == 0 {
		return ""
	}
	return p.Topics.Categories[0]
}
