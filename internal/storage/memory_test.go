package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/siteatlas/internal/domain"
	"github.com/jonesrussell/siteatlas/internal/storage"
)

const testJobID = "job-1"

func newPage(url, title string, depth int) *domain.Page {
	return &domain.Page{
		URL:       url,
		JobID:     testJobID,
		Depth:     depth,
		VisitedAt: time.Now(),
		Summary:   domain.ContentSummary{Title: title},
	}
}

func TestMemoryStore_UpsertIdempotence(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	require.NoError(t, store.StorePage(ctx, newPage("https://example.com/a", "first", 0)))
	require.NoError(t, store.StorePage(ctx, newPage("https://example.com/a", "second", 0)))

	// equivalent spelling maps to the same key
	require.NoError(t, store.StorePage(ctx, newPage("https://EXAMPLE.com/a/", "third", 0)))

	count, err := store.CountPages(ctx, testJobID)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "re-storing the same URL must replace, not duplicate")

	page, err := store.GetPage(ctx, testJobID, "https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, "third", page.Summary.Title, "upsert must keep the latest content")
}

func TestMemoryStore_GetPageNotFound(t *testing.T) {
	store := storage.NewMemoryStore()

	_, err := store.GetPage(context.Background(), testJobID, "https://example.com/missing")
	assert.ErrorIs(t, err, storage.ErrPageNotFound)
}

func TestMemoryStore_InvalidKey(t *testing.T) {
	store := storage.NewMemoryStore()

	err := store.StorePage(context.Background(), newPage("not a url", "x", 0))
	assert.ErrorIs(t, err, storage.ErrInvalidKey)
}

func TestMemoryStore_LinksForwardReference(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	// the link target has no stored page and never will
	link := &domain.Link{
		JobID:        testJobID,
		FromURL:      "https://example.com/",
		ToURL:        "https://other.com/page",
		Type:         domain.LinkExternal,
		AnchorText:   "Elsewhere",
		DiscoveredAt: time.Now(),
	}
	require.NoError(t, store.StoreLink(ctx, link))

	from, err := store.GetLinksFrom(ctx, testJobID, "https://example.com/")
	require.NoError(t, err)
	require.Len(t, from, 1)
	assert.Equal(t, domain.LinkExternal, from[0].Type)

	to, err := store.GetLinksTo(ctx, testJobID, "https://other.com/page")
	require.NoError(t, err)
	require.Len(t, to, 1)
	assert.Equal(t, "https://example.com/", to[0].FromURL)
}

func TestMemoryStore_LinkUpsert(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	link := &domain.Link{
		JobID:   testJobID,
		FromURL: "https://example.com/",
		ToURL:   "https://example.com/a",
		Type:    domain.LinkInternal,
	}
	require.NoError(t, store.StoreLink(ctx, link))
	link.AnchorText = "updated"
	require.NoError(t, store.StoreLink(ctx, link))

	count, err := store.CountLinks(ctx, testJobID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	links, err := store.GetLinksFrom(ctx, testJobID, "https://example.com/")
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "updated", links[0].AnchorText)
}

func TestMemoryStore_JobIsolation(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	pageA := newPage("https://example.com/a", "a", 0)
	require.NoError(t, store.StorePage(ctx, pageA))

	pageB := newPage("https://example.com/a", "b", 0)
	pageB.JobID = "job-2"
	require.NoError(t, store.StorePage(ctx, pageB))

	countA, err := store.CountPages(ctx, testJobID)
	require.NoError(t, err)
	countB, err := store.CountPages(ctx, "job-2")
	require.NoError(t, err)
	assert.Equal(t, 1, countA)
	assert.Equal(t, 1, countB)

	pages, err := store.ListPages(ctx, testJobID)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "a", pages[0].Summary.Title)
}
