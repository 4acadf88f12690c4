package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jonesrussell/siteatlas/internal/domain"
	"github.com/jonesrussell/siteatlas/internal/explorer"
	"github.com/jonesrussell/siteatlas/internal/logger"
)

// maxResponseBodyBytes limits the size of fetched page responses.
const maxResponseBodyBytes = 10 * 1024 * 1024 // 10 MB

// DefaultRequestTimeout bounds a single page fetch.
const DefaultRequestTimeout = 30 * time.Second

// DefaultUserAgent identifies the crawler to origin servers.
const DefaultUserAgent = "siteatlas/1.0"

// HTTPConfig configures the HTTP provider.
type HTTPConfig struct {
	UserAgent      string
	RequestTimeout time.Duration
}

// HTTPProvider fetches pages over HTTP and runs link/form discovery on the
// response body.
type HTTPProvider struct {
	client     *http.Client
	userAgent  string
	discoverer PageParser
	logger     logger.Interface
}

// PageParser extracts anchors and forms from HTML. Implemented by the
// exploration engine.
type PageParser interface {
	DiscoverLinks(pageHTML, baseURL string) (*explorer.DiscoveredLinks, error)
	DiscoverForms(pageHTML, baseURL string) ([]domain.Form, error)
}

// NewHTTPProvider creates the default page-fetch provider.
func NewHTTPProvider(cfg HTTPConfig, parser PageParser, log logger.Interface) *HTTPProvider {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &HTTPProvider{
		client:     &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		discoverer: parser,
		logger:     log.WithComponent("fetch"),
	}
}

// Fetch retrieves the page at url and parses its anchors and forms.
func (p *HTTPProvider) Fetch(ctx context.Context, url string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, &Error{URL: url, Permanent: true, Err: err}
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &Error{URL: url, Err: err}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			p.logger.Debug("Failed to close response body", "url", url, "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{
			URL:        url,
			StatusCode: resp.StatusCode,
			// client errors other than 429 will not heal on retry
			Permanent: resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests,
			Err:       fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return nil, &Error{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}

	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	html := string(body)
	result := &Result{URL: finalURL, RawContent: html}

	// a nil parser leaves Anchors nil so the caller can run its own
	// boundary-aware discovery
	if p.discoverer != nil {
		result.Anchors = &DiscoveredAnchors{}
		links, discoverErr := p.discoverer.DiscoverLinks(html, finalURL)
		if discoverErr != nil {
			p.logger.Warn("Anchor discovery failed", "url", finalURL, "error", discoverErr)
		} else {
			result.Anchors.Internal = links.Internal
			result.Anchors.External = links.External
		}

		forms, formsErr := p.discoverer.DiscoverForms(html, finalURL)
		if formsErr != nil {
			p.logger.Warn("Form discovery failed", "url", finalURL, "error", formsErr)
		} else {
			result.Forms = forms
		}
	}

	return result, nil
}
