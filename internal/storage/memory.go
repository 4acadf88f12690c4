package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonesrussell/siteatlas/internal/domain"
	"github.com/jonesrussell/siteatlas/internal/urlkey"
)

// MemoryStore is the in-memory knowledge store. It satisfies the same
// contract as the PostgreSQL backend: last-write-wins upserts, lookups by
// canonical key, forward references allowed.
type MemoryStore struct {
	mu    sync.RWMutex
	pages map[string]domain.Page
	// links preserves insertion order per job for stable query results
	links     map[string]domain.Link
	linkOrder []string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pages: make(map[string]domain.Page),
		links: make(map[string]domain.Link),
	}
}

// pageKey builds the composite storage key for a page.
func pageKey(jobID, url string) (string, error) {
	hash, err := urlkey.Hash(url)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return jobID + ":" + hash, nil
}

// linkKey builds the composite storage key for a link edge.
func linkKey(jobID, from, to string) (string, error) {
	fromHash, err := urlkey.Hash(from)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	toHash, err := urlkey.Hash(to)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return jobID + ":" + fromHash + ":" + toHash, nil
}

// StorePage upserts a page by canonical key.
func (s *MemoryStore) StorePage(ctx context.Context, page *domain.Page) error {
	key, err := pageKey(page.JobID, page.URL)
	if err != nil {
		return err
	}
	if page.URLHash == "" {
		page.URLHash, _ = urlkey.Hash(page.URL)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[key] = *page
	return nil
}

// GetPage returns the stored page for url, or ErrPageNotFound.
func (s *MemoryStore) GetPage(ctx context.Context, jobID, url string) (*domain.Page, error) {
	key, err := pageKey(jobID, url)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	page, ok := s.pages[key]
	if !ok {
		return nil, ErrPageNotFound
	}
	return &page, nil
}

// StoreLink upserts a link by its (from, to) composite key. The target may
// reference a page that does not exist.
func (s *MemoryStore) StoreLink(ctx context.Context, link *domain.Link) error {
	key, err := linkKey(link.JobID, link.FromURL, link.ToURL)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.links[key]; !exists {
		s.linkOrder = append(s.linkOrder, key)
	}
	s.links[key] = *link
	return nil
}

// GetLinksFrom returns links whose source is url, in insertion order.
func (s *MemoryStore) GetLinksFrom(ctx context.Context, jobID, url string) ([]domain.Link, error) {
	fromHash, err := urlkey.Hash(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	return s.selectLinks(jobID, func(l domain.Link) bool {
		h, hashErr := urlkey.Hash(l.FromURL)
		return hashErr == nil && h == fromHash
	}), nil
}

// GetLinksTo returns links whose target is url, in insertion order.
func (s *MemoryStore) GetLinksTo(ctx context.Context, jobID, url string) ([]domain.Link, error) {
	toHash, err := urlkey.Hash(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	return s.selectLinks(jobID, func(l domain.Link) bool {
		h, hashErr := urlkey.Hash(l.ToURL)
		return hashErr == nil && h == toHash
	}), nil
}

// selectLinks collects a job's links passing the filter, in insertion order.
func (s *MemoryStore) selectLinks(jobID string, keep func(domain.Link) bool) []domain.Link {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Link
	for _, key := range s.linkOrder {
		link, ok := s.links[key]
		if !ok || link.JobID != jobID {
			continue
		}
		if keep(link) {
			out = append(out, link)
		}
	}
	return out
}

// ListPages returns all pages stored for a job.
func (s *MemoryStore) ListPages(ctx context.Context, jobID string) ([]domain.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Page
	for _, page := range s.pages {
		if page.JobID == jobID {
			out = append(out, page)
		}
	}
	return out, nil
}

// CountPages returns the number of pages stored for a job.
func (s *MemoryStore) CountPages(ctx context.Context, jobID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, page := range s.pages {
		if page.JobID == jobID {
			count++
		}
	}
	return count, nil
}

// CountLinks returns the number of links stored for a job.
func (s *MemoryStore) CountLinks(ctx context.Context, jobID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, link := range s.links {
		if link.JobID == jobID {
			count++
		}
	}
	return count, nil
}
