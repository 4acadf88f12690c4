package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonesrussell/siteatlas/internal/analyzer"
	"github.com/jonesrussell/siteatlas/internal/domain"
	"github.com/jonesrussell/siteatlas/internal/events"
	"github.com/jonesrussell/siteatlas/internal/fetch"
	"github.com/jonesrussell/siteatlas/internal/logger"
	"github.com/jonesrussell/siteatlas/internal/storage"
	"github.com/jonesrussell/siteatlas/internal/urlkey"
	"github.com/jonesrussell/siteatlas/internal/vector"
)

// RetryConfig controls fetch retry with exponential backoff.
type RetryConfig struct {
	// MaxAttempts bounds fetch attempts per page, including the first.
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts" json:"max_attempts"`
	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration `mapstructure:"initial_backoff" yaml:"initial_backoff" json:"initial_backoff"`
	// MaxBackoff caps the exponential growth.
	MaxBackoff time.Duration `mapstructure:"max_backoff" yaml:"max_backoff" json:"max_backoff"`
}

// Retry defaults.
const (
	DefaultMaxAttempts    = 3
	DefaultInitialBackoff = 250 * time.Millisecond
	DefaultMaxBackoff     = 5 * time.Second
	backoffMultiplier     = 2
)

// withDefaults fills zero fields with defaults.
func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = DefaultInitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = DefaultMaxBackoff
	}
	return c
}

// Pipeline coordinates the exploration engine, fetch provider, analyzer,
// stores, flow mapper, and observer bus for each job it runs.
type Pipeline struct {
	store    storage.KnowledgeStore
	vectors  vector.Store
	fetcher  fetch.Provider
	analyzer analyzer.Analyzer
	bus      *events.Bus
	retry    RetryConfig
	logger   logger.Interface
}

// New creates a pipeline.
func New(
	store storage.KnowledgeStore,
	vectors vector.Store,
	fetcher fetch.Provider,
	contentAnalyzer analyzer.Analyzer,
	bus *events.Bus,
	retry RetryConfig,
	log logger.Interface,
) *Pipeline {
	return &Pipeline{
		store:    store,
		vectors:  vectors,
		fetcher:  fetcher,
		analyzer: contentAnalyzer,
		bus:      bus,
		retry:    retry.withDefaults(),
		logger:   log.WithComponent("pipeline"),
	}
}

// Run drives the crawl loop for job until the frontier drains, a bound is
// reached, or the job is paused/cancelled/failed. Pause and cancel are
// cooperative: checked once per iteration, never mid-operation.
func (p *Pipeline) Run(ctx context.Context, job *Job) error {
	defer close(job.done)

	if err := job.transition(domain.StatusRunning); err != nil {
		return err
	}

	log := p.logger.WithJobID(job.ID())
	cfg := job.Snapshot().Config
	log.Info("Exploration started",
		"seed", cfg.SeedURL,
		"strategy", cfg.Strategy,
		"max_depth", cfg.MaxDepth,
		"max_pages", cfg.MaxPages)

	pathOpen := false
	lastProcessed := ""

	for {
		stopped, err := job.checkControl()
		if err != nil {
			return p.fail(job, err)
		}
		if stopped {
			job.flow.EndPath()
			log.Info("Exploration cancelled", "processed", job.processed())
			return nil
		}
		if ctx.Err() != nil {
			job.flow.EndPath()
			if transitionErr := job.transition(domain.StatusCancelled); transitionErr != nil {
				return transitionErr
			}
			log.Info("Exploration context cancelled", "processed", job.processed())
			return nil
		}

		candidate, ok := job.engine.Next()
		if !ok {
			break
		}

		// admission-time checks can go stale while the candidate queues
		if job.engine.IsVisited(candidate.URL) {
			continue
		}
		if candidate.Depth > cfg.MaxDepth || job.processed() >= cfg.MaxPages {
			continue
		}

		job.engine.TrackVisited(candidate.URL)

		result, fetchErr := p.fetchWithRetry(ctx, job, candidate.URL)
		if fetchErr != nil {
			job.addError(candidate.URL, fetchErr.Error())
			p.bus.OnError(job.ID(), "fetch", fetchErr.Error())
			log.Warn("Page fetch failed, continuing", "url", candidate.URL, "error", fetchErr)
			continue
		}

		if result.Anchors == nil {
			result.Anchors = p.discoverAnchors(job, candidate.URL, result)
		}
		if result.Forms == nil {
			result.Forms = p.discoverForms(job, candidate.URL, result)
		}

		page, analysisWarn := p.analyze(job, candidate, result)
		if analysisWarn != nil {
			job.addWarning(candidate.URL, analysisWarn.Error())
		}

		if err = p.persist(ctx, job, page, result); err != nil {
			return p.fail(job, err)
		}

		job.flow.TrackNavigation(candidate.URL, candidate.Referrer)
		job.flow.RecordOutgoingLinks(candidate.URL, len(result.Anchors.Internal))
		if pathOpen && candidate.Referrer == lastProcessed {
			job.flow.AddToPath(candidate.URL)
		} else {
			job.flow.StartPath(candidate.URL)
			pathOpen = true
		}
		lastProcessed = candidate.URL

		processed := job.incrementProcessed()

		// a page's write is committed before its children enter the frontier
		children := make([]domain.Candidate, 0, len(result.Anchors.Internal))
		for _, link := range result.Anchors.Internal {
			children = append(children, domain.Candidate{
				URL:      link.ToURL,
				Depth:    candidate.Depth + 1,
				Referrer: candidate.URL,
			})
		}
		admitted := job.engine.AdmitAll(children, processed)

		p.bus.OnPageCompleted(job.ID(), page.URL, page.Summary.Title)
		p.bus.OnProgress(job.ID(), processed, processed+job.engine.FrontierLen(), candidate.URL)
		log.Debug("Page processed",
			"url", candidate.URL,
			"depth", candidate.Depth,
			"admitted", admitted,
			"frontier", job.engine.FrontierLen())
	}

	job.flow.EndPath()
	if err := job.transition(domain.StatusCompleted); err != nil {
		return err
	}
	log.Info("Exploration completed", "processed", job.processed())
	return nil
}

// fail transitions the job to failed and returns err.
func (p *Pipeline) fail(job *Job, err error) error {
	if transitionErr := job.transition(domain.StatusFailed); transitionErr != nil {
		p.logger.Error("Failed to mark job failed", "job_id", job.ID(), "error", transitionErr)
	}
	job.addError("", err.Error())
	return err
}

// discoverAnchors runs the job engine's boundary-aware link discovery
// when the fetch provider did not parse anchors itself.
func (p *Pipeline) discoverAnchors(job *Job, url string, result *fetch.Result) *fetch.DiscoveredAnchors {
	links, err := job.engine.DiscoverLinks(result.RawContent, result.URL)
	if err != nil {
		job.addWarning(url, fmt.Sprintf("link discovery: %v", err))
		return &fetch.DiscoveredAnchors{}
	}
	return &fetch.DiscoveredAnchors{
		Internal: links.Internal,
		External: links.External,
	}
}

// discoverForms runs form discovery when the fetch provider did not parse
// forms itself. Discovery failure is a warning, not an error.
func (p *Pipeline) discoverForms(job *Job, url string, result *fetch.Result) []domain.Form {
	forms, err := job.engine.DiscoverForms(result.RawContent, result.URL)
	if err != nil {
		job.addWarning(url, fmt.Sprintf("form discovery: %v", err))
		return nil
	}
	return forms
}

// fetchWithRetry fetches url with exponential backoff, checking for
// cancellation between attempts. Permanent fetch errors short-circuit.
func (p *Pipeline) fetchWithRetry(ctx context.Context, job *Job, url string) (*fetch.Result, error) {
	backoff := p.retry.InitialBackoff

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= p.retry.MaxAttempts; attempt++ {
		result, err := p.fetcher.Fetch(ctx, url)
		attempts = attempt
		if err == nil {
			return result, nil
		}
		lastErr = err

		var fetchErr *fetch.Error
		if errors.As(err, &fetchErr) && fetchErr.Permanent {
			break
		}
		if attempt == p.retry.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		if job.cancelled() {
			return nil, lastErr
		}

		backoff *= backoffMultiplier
		if backoff > p.retry.MaxBackoff {
			backoff = p.retry.MaxBackoff
		}
	}

	return nil, fmt.Errorf("fetch %s after %d attempts: %w", url, attempts, lastErr)
}

// analyze runs the semantic analyzer over fetched content and builds the
// page record. Analyzer failure yields a partial page and a warning, never
// an aborted crawl.
func (p *Pipeline) analyze(job *Job, candidate domain.Candidate, result *fetch.Result) (*domain.Page, error) {
	page := &domain.Page{
		URL:       candidate.URL,
		JobID:     job.ID(),
		Depth:     candidate.Depth,
		VisitedAt: time.Now(),
		Forms:     result.Forms,
	}

	summary, err := p.analyzer.ExtractContent(result.RawContent)
	if err != nil {
		return page, fmt.Errorf("content analysis: %w", err)
	}

	page.Summary = summary
	page.Topics = p.analyzer.ExtractTopics(summary)
	page.Entities = p.analyzer.IdentifyEntities(summary.Text)
	return page, nil
}

// persist writes the page, its embedding, and all discovered link edges.
// Each write is retried once; repeated failure is fatal for the job.
func (p *Pipeline) persist(ctx context.Context, job *Job, page *domain.Page, result *fetch.Result) error {
	if page.Summary.Text != "" {
		hash, err := urlkey.Hash(page.URL)
		if err != nil {
			return fmt.Errorf("hash %s: %w", page.URL, err)
		}
		embedding := p.analyzer.GenerateEmbedding(page.Summary.Text)
		embeddingID := job.ID() + ":" + hash
		metadata := map[string]any{
			"url":    page.URL,
			"job_id": job.ID(),
			"title":  page.Summary.Title,
		}
		if err := p.retryOnce(func() error {
			return p.vectors.StoreEmbedding(ctx, embeddingID, embedding, metadata)
		}); err != nil {
			return fmt.Errorf("%w: embedding for %s: %v", ErrStorageFailed, page.URL, err)
		}
		page.EmbeddingID = embeddingID
	}

	if err := p.retryOnce(func() error { return p.store.StorePage(ctx, page) }); err != nil {
		return fmt.Errorf("%w: page %s: %v", ErrStorageFailed, page.URL, err)
	}

	for i := range result.Anchors.Internal {
		link := result.Anchors.Internal[i]
		link.JobID = job.ID()
		if err := p.retryOnce(func() error { return p.store.StoreLink(ctx, &link) }); err != nil {
			return fmt.Errorf("%w: link %s -> %s: %v", ErrStorageFailed, link.FromURL, link.ToURL, err)
		}
	}
	for i := range result.Anchors.External {
		link := result.Anchors.External[i]
		link.JobID = job.ID()
		if err := p.retryOnce(func() error { return p.store.StoreLink(ctx, &link) }); err != nil {
			return fmt.Errorf("%w: link %s -> %s: %v", ErrStorageFailed, link.FromURL, link.ToURL, err)
		}
		p.bus.OnExternalLink(job.ID(), link.FromURL, link.ToURL)
	}

	return nil
}

// retryOnce runs fn, retrying a single time on failure.
func (p *Pipeline) retryOnce(fn func() error) error {
	if err := fn(); err != nil {
		p.logger.Warn("Storage write failed, retrying once", "error", err)
		return fn()
	}
	return nil
}
