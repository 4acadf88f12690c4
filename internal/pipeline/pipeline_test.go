package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/siteatlas/internal/analyzer"
	"github.com/jonesrussell/siteatlas/internal/domain"
	"github.com/jonesrussell/siteatlas/internal/events"
	"github.com/jonesrussell/siteatlas/internal/fetch"
	"github.com/jonesrussell/siteatlas/internal/logger"
	"github.com/jonesrussell/siteatlas/internal/storage"
	"github.com/jonesrussell/siteatlas/internal/vector"
)

// stubSite describes one fetchable page for the stub provider.
type stubSite struct {
	internal []string
	external []string
	body     string // extra HTML injected into the page body
}

// stubProvider serves a canned site graph and records fetch order.
type stubProvider struct {
	mu       sync.Mutex
	site     map[string]stubSite
	failures map[string]int // remaining transient failures per URL
	order    []string
	gate     chan struct{} // when non-nil, one receive per fetch
}

func newStubProvider(site map[string]stubSite) *stubProvider {
	return &stubProvider{site: site, failures: make(map[string]int)}
}

func (s *stubProvider) Fetch(ctx context.Context, url string) (*fetch.Result, error) {
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failures[url] > 0 {
		s.failures[url]--
		s.order = append(s.order, url)
		return nil, &fetch.Error{URL: url, Err: fmt.Errorf("connection reset")}
	}

	page, ok := s.site[url]
	if !ok {
		s.order = append(s.order, url)
		return nil, &fetch.Error{URL: url, StatusCode: 404, Permanent: true}
	}
	s.order = append(s.order, url)

	anchors := &fetch.DiscoveredAnchors{}
	for _, to := range page.internal {
		anchors.Internal = append(anchors.Internal, domain.Link{
			FromURL: url, ToURL: to, Type: domain.LinkInternal,
		})
	}
	for _, to := range page.external {
		anchors.External = append(anchors.External, domain.Link{
			FromURL: url, ToURL: to, Type: domain.LinkExternal,
		})
	}

	return &fetch.Result{
		URL:        url,
		RawContent: fmt.Sprintf("<html><head><title>Page %s</title></head><body><p>content for %s</p>%s</body></html>", url, url, page.body),
		Anchors:    anchors,
	}, nil
}

func (s *stubProvider) fetched() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// recordingObserver counts external-link notifications.
type recordingObserver struct {
	mu        sync.Mutex
	externals []string
}

func (r *recordingObserver) OnProgress(jobID string, processed, total int, currentURL string) {}
func (r *recordingObserver) OnPageCompleted(jobID, url, title string)                         {}
func (r *recordingObserver) OnError(jobID, context, message string)                           {}

func (r *recordingObserver) OnExternalLink(jobID, from, to string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.externals = append(r.externals, to)
}

func (r *recordingObserver) externalCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.externals)
}

type testHarness struct {
	pipeline *Pipeline
	provider *stubProvider
	store    *storage.MemoryStore
	vectors  *vector.MemoryStore
	bus      *events.Bus
}

func newHarness(site map[string]stubSite) *testHarness {
	log := logger.NewNoOp()
	h := &testHarness{
		provider: newStubProvider(site),
		store:    storage.NewMemoryStore(),
		vectors:  vector.NewMemoryStore(),
		bus:      events.NewBus(log),
	}
	h.pipeline = New(h.store, h.vectors, h.provider, analyzer.NewHeuristic(), h.bus, RetryConfig{
		MaxAttempts:    2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
	}, log)
	return h
}

func runJob(t *testing.T, h *testHarness, cfg domain.JobConfig) *Job {
	t.Helper()
	job, err := NewJob(cfg)
	require.NoError(t, err)
	runErr := h.pipeline.Run(context.Background(), job)
	if job.Status() != domain.StatusFailed {
		require.NoError(t, runErr)
	}
	return job
}

// treeSite is a small site: A links to B and C, B links to D.
func treeSite() map[string]stubSite {
	return map[string]stubSite{
		"https://example.com/a": {internal: []string{"https://example.com/b", "https://example.com/c"}},
		"https://example.com/b": {internal: []string{"https://example.com/d"}},
		"https://example.com/c": {},
		"https://example.com/d": {},
	}
}

func TestRunBFSVisitsBreadthFirst(t *testing.T) {
	h := newHarness(treeSite())
	job := runJob(t, h, domain.JobConfig{
		SeedURL:  "https://example.com/a",
		MaxDepth: 3,
		MaxPages: 10,
		Strategy: domain.StrategyBFS,
	})

	assert.Equal(t, domain.StatusCompleted, job.Status())
	assert.Equal(t, []string{
		"https://example.com/a",
		"https://example.com/b",
		"https://example.com/c",
		"https://example.com/d",
	}, h.provider.fetched())
}

func TestRunDFSVisitsDepthFirst(t *testing.T) {
	h := newHarness(treeSite())
	job := runJob(t, h, domain.JobConfig{
		SeedURL:  "https://example.com/a",
		MaxDepth: 3,
		MaxPages: 10,
		Strategy: domain.StrategyDFS,
	})

	// B's branch is exhausted before its sibling C is dequeued.
	assert.Equal(t, domain.StatusCompleted, job.Status())
	assert.Equal(t, []string{
		"https://example.com/a",
		"https://example.com/b",
		"https://example.com/d",
		"https://example.com/c",
	}, h.provider.fetched())
}

func TestRunDepthBound(t *testing.T) {
	h := newHarness(map[string]stubSite{
		"https://example.com/a": {internal: []string{"https://example.com/b"}},
		"https://example.com/b": {internal: []string{"https://example.com/c"}},
		"https://example.com/c": {},
	})
	job := runJob(t, h, domain.JobConfig{
		SeedURL:  "https://example.com/a",
		MaxDepth: 1,
		MaxPages: 10,
		Strategy: domain.StrategyBFS,
	})

	assert.Equal(t, domain.StatusCompleted, job.Status())
	assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, h.provider.fetched())

	count, err := h.store.CountPages(context.Background(), job.ID())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRunPageCap(t *testing.T) {
	h := newHarness(treeSite())
	job := runJob(t, h, domain.JobConfig{
		SeedURL:  "https://example.com/a",
		MaxDepth: 5,
		MaxPages: 2,
		Strategy: domain.StrategyBFS,
	})

	assert.Equal(t, domain.StatusCompleted, job.Status())
	assert.Len(t, h.provider.fetched(), 2)
	assert.Equal(t, 2, job.Snapshot().Processed)
}

func TestRunExternalBoundary(t *testing.T) {
	h := newHarness(map[string]stubSite{
		"https://example.com/a": {
			internal: []string{"https://example.com/b", "https://example.com/c"},
			external: []string{"https://other.org/d"},
		},
		"https://example.com/b": {},
		"https://example.com/c": {},
	})

	recorder := &recordingObserver{}
	h.bus.Subscribe(recorder)

	job := runJob(t, h, domain.JobConfig{
		SeedURL:  "https://example.com/a",
		MaxDepth: 1,
		MaxPages: 10,
		Strategy: domain.StrategyBFS,
	})
	ctx := context.Background()

	assert.Equal(t, domain.StatusCompleted, job.Status())
	assert.NotContains(t, h.provider.fetched(), "https://other.org/d")

	// the external page itself is never stored
	_, err := h.store.GetPage(ctx, job.ID(), "https://other.org/d")
	assert.ErrorIs(t, err, storage.ErrPageNotFound)

	// but the edge pointing at it is
	links, err := h.store.GetLinksFrom(ctx, job.ID(), "https://example.com/a")
	require.NoError(t, err)
	var externals []string
	for _, link := range links {
		if link.Type == domain.LinkExternal {
			externals = append(externals, link.ToURL)
		}
	}
	assert.Equal(t, []string{"https://other.org/d"}, externals)
	assert.Equal(t, 1, recorder.externalCount())
}

func TestRunTransientFetchFailureRetries(t *testing.T) {
	h := newHarness(treeSite())
	h.provider.failures["https://example.com/b"] = 1

	job := runJob(t, h, domain.JobConfig{
		SeedURL:  "https://example.com/a",
		MaxDepth: 3,
		MaxPages: 10,
		Strategy: domain.StrategyBFS,
	})

	assert.Equal(t, domain.StatusCompleted, job.Status())
	assert.Empty(t, job.Snapshot().Errors)

	// B appears twice in the fetch log: one failure, one retry
	fetched := h.provider.fetched()
	occurrences := 0
	for _, url := range fetched {
		if url == "https://example.com/b" {
			occurrences++
		}
	}
	assert.Equal(t, 2, occurrences)
}

func TestRunFetchExhaustionIsNonFatal(t *testing.T) {
	h := newHarness(treeSite())
	h.provider.failures["https://example.com/b"] = 10

	job := runJob(t, h, domain.JobConfig{
		SeedURL:  "https://example.com/a",
		MaxDepth: 3,
		MaxPages: 10,
		Strategy: domain.StrategyBFS,
	})

	// B fails permanently; A and C still complete, D is unreachable.
	assert.Equal(t, domain.StatusCompleted, job.Status())
	snapshot := job.Snapshot()
	require.Len(t, snapshot.Errors, 1)
	assert.Equal(t, "https://example.com/b", snapshot.Errors[0].URL)

	count, err := h.store.CountPages(context.Background(), job.ID())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRunPermanentFetchErrorSkipsRetry(t *testing.T) {
	h := newHarness(map[string]stubSite{
		"https://example.com/a": {internal: []string{"https://example.com/gone"}},
	})

	job := runJob(t, h, domain.JobConfig{
		SeedURL:  "https://example.com/a",
		MaxDepth: 2,
		MaxPages: 10,
		Strategy: domain.StrategyBFS,
	})

	assert.Equal(t, domain.StatusCompleted, job.Status())
	occurrences := 0
	for _, url := range h.provider.fetched() {
		if url == "https://example.com/gone" {
			occurrences++
		}
	}
	assert.Equal(t, 1, occurrences, "404 must not be retried")

	// the recorded error reflects the single attempt made
	snapshot := job.Snapshot()
	require.Len(t, snapshot.Errors, 1)
	assert.Contains(t, snapshot.Errors[0].Message, "after 1 attempts")
}

// failingStore wraps a memory store and fails StorePage persistently.
type failingStore struct {
	*storage.MemoryStore
}

func (f *failingStore) StorePage(ctx context.Context, page *domain.Page) error {
	return fmt.Errorf("disk full")
}

func TestRunStorageFailureIsFatal(t *testing.T) {
	h := newHarness(treeSite())
	h.pipeline.store = &failingStore{MemoryStore: h.store}

	job, err := NewJob(domain.JobConfig{
		SeedURL:  "https://example.com/a",
		MaxDepth: 3,
		MaxPages: 10,
		Strategy: domain.StrategyBFS,
	})
	require.NoError(t, err)

	runErr := h.pipeline.Run(context.Background(), job)
	require.Error(t, runErr)
	assert.ErrorIs(t, runErr, ErrStorageFailed)
	assert.Equal(t, domain.StatusFailed, job.Status())
}

func TestRunRevisitSkipsDuplicates(t *testing.T) {
	// B and C both link to D, C via an equivalent spelling.
	h2 := newHarness(map[string]stubSite{
		"https://example.com/a": {internal: []string{"https://example.com/b", "https://example.com/c"}},
		"https://example.com/b": {internal: []string{"https://example.com/d"}},
		"https://example.com/c": {internal: []string{"https://example.com/d/"}},
		"https://example.com/d": {},
	})
	job2 := runJob(t, h2, domain.JobConfig{
		SeedURL:  "https://example.com/a",
		MaxDepth: 3,
		MaxPages: 10,
		Strategy: domain.StrategyBFS,
	})
	assert.Equal(t, domain.StatusCompleted, job2.Status())

	occurrences := 0
	for _, url := range h2.provider.fetched() {
		if url == "https://example.com/d" || url == "https://example.com/d/" {
			occurrences++
		}
	}
	assert.Equal(t, 1, occurrences, "equivalent URL spellings share one visit")
}

func TestRunStoresEmbeddings(t *testing.T) {
	h := newHarness(treeSite())
	job := runJob(t, h, domain.JobConfig{
		SeedURL:  "https://example.com/a",
		MaxDepth: 3,
		MaxPages: 10,
		Strategy: domain.StrategyBFS,
	})
	ctx := context.Background()

	pages, err := h.store.ListPages(ctx, job.ID())
	require.NoError(t, err)
	require.Len(t, pages, 4)
	for _, page := range pages {
		require.NotEmpty(t, page.EmbeddingID)
		vec, metadata, getErr := h.vectors.GetEmbedding(ctx, page.EmbeddingID)
		require.NoError(t, getErr)
		assert.Len(t, vec, analyzer.EmbeddingDim)
		assert.Equal(t, page.URL, metadata["url"])
	}
}

func TestRunDetectsFormsWithoutSubmitting(t *testing.T) {
	site := map[string]stubSite{
		"https://example.com/a": {
			body: `<form method="get" action="/search"><input name="q"></form>` +
				`<form method="post" action="/signup"><input name="email"></form>`,
		},
	}
	h := newHarness(site)
	job := runJob(t, h, domain.JobConfig{
		SeedURL:  "https://example.com/a",
		MaxDepth: 1,
		MaxPages: 5,
		Strategy: domain.StrategyBFS,
	})

	page, err := h.store.GetPage(context.Background(), job.ID(), "https://example.com/a")
	require.NoError(t, err)
	require.Len(t, page.Forms, 2)
	assert.Equal(t, "GET", page.Forms[0].Method)
	assert.Equal(t, "https://example.com/search", page.Forms[0].Action)
	assert.False(t, page.Forms[0].Mutating)
	assert.Equal(t, "POST", page.Forms[1].Method)
	assert.True(t, page.Forms[1].Mutating)

	// the POST form target is never fetched
	assert.NotContains(t, h.provider.fetched(), "https://example.com/signup")
}
