// Package storage provides the knowledge store: pages and links persisted
// with upsert semantics behind a backend-agnostic contract. Two backends
// satisfy identical behavior: an in-memory store and a PostgreSQL store.
// Selection is by configuration, never by runtime type inspection.
package storage

import (
	"context"
	"errors"

	"github.com/jonesrussell/siteatlas/internal/domain"
)

// Errors returned by knowledge stores.
var (
	// ErrPageNotFound is returned when a page lookup misses.
	ErrPageNotFound = errors.New("page not found")
	// ErrInvalidKey is returned when a URL cannot be canonicalized.
	ErrInvalidKey = errors.New("invalid storage key")
)

// Backend names selectable by configuration.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// KnowledgeStore persists pages (documents) and links (edges). All writes
// are upserts: storing the same key twice replaces, never duplicates.
// Links may reference a ToURL with no stored page (forward reference).
type KnowledgeStore interface {
	// StorePage upserts a page by its canonical URL key.
	StorePage(ctx context.Context, page *domain.Page) error
	// GetPage returns the page stored under url for a job, or
	// ErrPageNotFound.
	GetPage(ctx context.Context, jobID, url string) (*domain.Page, error)
	// StoreLink upserts a link by its (from, to) composite key.
	StoreLink(ctx context.Context, link *domain.Link) error
	// GetLinksFrom returns all links whose source is url.
	GetLinksFrom(ctx context.Context, jobID, url string) ([]domain.Link, error)
	// GetLinksTo returns all links whose target is url.
	GetLinksTo(ctx context.Context, jobID, url string) ([]domain.Link, error)
	// ListPages returns all pages stored for a job.
	ListPages(ctx context.Context, jobID string) ([]domain.Page, error)
	// CountPages returns the number of pages stored for a job.
	CountPages(ctx context.Context, jobID string) (int, error)
	// CountLinks returns the number of links stored for a job.
	CountLinks(ctx context.Context, jobID string) (int, error)
}
