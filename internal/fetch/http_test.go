package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/siteatlas/internal/domain"
	"github.com/jonesrussell/siteatlas/internal/explorer"
	"github.com/jonesrussell/siteatlas/internal/logger"
)

func newTestProvider(t *testing.T, seedURL string) *HTTPProvider {
	t.Helper()
	engine, err := explorer.New(domain.JobConfig{
		SeedURL:  seedURL,
		MaxDepth: 2,
		MaxPages: 10,
		Strategy: domain.StrategyBFS,
	})
	require.NoError(t, err)
	return NewHTTPProvider(HTTPConfig{}, engine, logger.NewNoOp())
}

func TestFetchParsesAnchors(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><head><title>Home</title></head><body>
			<a href="/docs">Docs</a>
			<a href="https://other.example.org/away">Away</a>
		</body></html>`)
	})

	provider := newTestProvider(t, server.URL)
	result, err := provider.Fetch(context.Background(), server.URL+"/")
	require.NoError(t, err)

	require.NotNil(t, result.Anchors)
	require.Len(t, result.Anchors.Internal, 1)
	assert.Equal(t, server.URL+"/docs", result.Anchors.Internal[0].ToURL)
	assert.Equal(t, domain.LinkInternal, result.Anchors.Internal[0].Type)
	require.Len(t, result.Anchors.External, 1)
	assert.Equal(t, "https://other.example.org/away", result.Anchors.External[0].ToURL)
}

func TestFetchStatusErrors(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/flaky", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/throttled", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	provider := newTestProvider(t, server.URL)
	ctx := context.Background()

	var fetchErr *Error
	_, err := provider.Fetch(ctx, server.URL+"/gone")
	require.ErrorAs(t, err, &fetchErr)
	assert.True(t, fetchErr.Permanent)
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)

	_, err = provider.Fetch(ctx, server.URL+"/flaky")
	require.ErrorAs(t, err, &fetchErr)
	assert.False(t, fetchErr.Permanent)

	// 429 heals on retry, so it is not permanent
	_, err = provider.Fetch(ctx, server.URL+"/throttled")
	require.ErrorAs(t, err, &fetchErr)
	assert.False(t, fetchErr.Permanent)
}

func TestFetchFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><head><title>New</title></head><body><p>moved</p></body></html>")
	})

	provider := newTestProvider(t, server.URL)
	result, err := provider.Fetch(context.Background(), server.URL+"/old")
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/new", result.URL)
}

func TestFetchNilParserLeavesAnchorsNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><a href="/x">x</a></body></html>`)
	}))
	defer server.Close()

	provider := NewHTTPProvider(HTTPConfig{}, nil, logger.NewNoOp())
	result, err := provider.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Nil(t, result.Anchors)
}

func TestFetchContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider := newTestProvider(t, server.URL)
	_, err := provider.Fetch(ctx, server.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
