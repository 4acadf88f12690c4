package explorer

import (
	"fmt"
	"sync"

	"github.com/jonesrussell/siteatlas/internal/domain"
	"github.com/jonesrussell/siteatlas/internal/urlkey"
)

// Engine discovers links and forms on pages, classifies them against the
// job's domain boundary, and orders the traversal frontier. One engine
// instance belongs to exactly one exploration job.
type Engine struct {
	baseHost          string
	includeSubdomains bool
	maxDepth          int
	maxPages          int

	mu       sync.Mutex
	visited  map[string]struct{}
	frontier *Frontier
}

// New creates an engine for the given job configuration. The boundary host
// is derived from the seed URL.
func New(cfg domain.JobConfig) (*Engine, error) {
	host, err := urlkey.Host(cfg.SeedURL)
	if err != nil {
		return nil, fmt.Errorf("explorer: derive base host: %w", err)
	}

	return &Engine{
		baseHost:          host,
		includeSubdomains: cfg.IncludeSubdomains,
		maxDepth:          cfg.MaxDepth,
		maxPages:          cfg.MaxPages,
		visited:           make(map[string]struct{}),
		frontier:          NewFrontier(cfg.Strategy),
	}, nil
}

// BaseHost returns the host defining the job's domain boundary.
func (e *Engine) BaseHost() string {
	return e.baseHost
}

// IsVisited reports whether url has already been processed. Lookup is by
// canonical key, so equivalent spellings of a URL count as one.
func (e *Engine) IsVisited(url string) bool {
	key, err := urlkey.Hash(url)
	if err != nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.visited[key]
	return ok
}

// TrackVisited marks url as processed. Idempotent.
func (e *Engine) TrackVisited(url string) {
	key, err := urlkey.Hash(url)
	if err != nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.visited[key] = struct{}{}
}

// VisitedCount returns the number of distinct visited URLs.
func (e *Engine) VisitedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.visited)
}

// Admit enqueues a candidate when it passes the admission checks: not yet
// visited, within the depth bound, and the job has not already processed
// max_pages pages. Bounds are enforced here, at admission time. Returns
// whether the candidate was admitted.
func (e *Engine) Admit(candidate domain.Candidate, processed int) bool {
	if candidate.Depth > e.maxDepth {
		return false
	}
	if processed >= e.maxPages {
		return false
	}
	if e.IsVisited(candidate.URL) {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.frontier.Push(candidate)
	return true
}

// AdmitAll applies the admission checks of Admit to one page's children
// and enqueues the survivors as a single batch, preserving the strategy's
// sibling order. Returns the number admitted.
func (e *Engine) AdmitAll(candidates []domain.Candidate, processed int) int {
	admitted := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Depth > e.maxDepth || processed >= e.maxPages || e.IsVisited(c.URL) {
			continue
		}
		admitted = append(admitted, c)
	}
	if len(admitted) == 0 {
		return 0
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.frontier.PushBatch(admitted)
	return len(admitted)
}

// Next pops the next frontier candidate per the job's strategy.
func (e *Engine) Next() (domain.Candidate, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frontier.Pop()
}

// FrontierLen returns the number of pending candidates.
func (e *Engine) FrontierLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frontier.Len()
}
