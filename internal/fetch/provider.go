// Package fetch defines the page-fetch collaborator contract and a default
// HTTP implementation. Retry and backoff policy belongs to the pipeline,
// not to providers.
package fetch

import (
	"context"
	"fmt"

	"github.com/jonesrussell/siteatlas/internal/domain"
)

// Result is the raw outcome of fetching one page.
type Result struct {
	// URL is the final URL after redirects.
	URL string
	// RawContent is the page body.
	RawContent string
	// Anchors are the links discovered on the page.
	Anchors *DiscoveredAnchors
	// Forms are the forms discovered on the page.
	Forms []domain.Form
}

// DiscoveredAnchors splits the page's links by boundary classification.
type DiscoveredAnchors struct {
	Internal []domain.Link
	External []domain.Link
}

// Provider fetches page content. Implementations must honor ctx
// cancellation.
type Provider interface {
	Fetch(ctx context.Context, url string) (*Result, error)
}

// Error is returned when a fetch fails. It is retryable by the pipeline's
// backoff policy unless Permanent is set.
type Error struct {
	URL        string
	StatusCode int
	Permanent  bool
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}
