// Package explorer implements the exploration engine: link and form
// discovery, internal/external classification, the visited set, and the
// traversal frontier.
package explorer

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/siteatlas/internal/domain"
	"github.com/jonesrussell/siteatlas/internal/urlkey"
)

// skipPrefixes lists href prefixes that are never navigable.
var skipPrefixes = []string{"#", "javascript:", "mailto:", "tel:", "data:"}

// DiscoveredLinks is the result of scanning one page for anchors.
type DiscoveredLinks struct {
	Internal []domain.Link
	External []domain.Link
}

// DiscoverLinks parses anchors out of pageHTML, resolves relative hrefs
// against baseURL, discards non-navigable schemes, and classifies each link
// as internal or external relative to the engine's base host. Duplicate
// targets within the same page are collapsed to the first occurrence.
func (e *Engine) DiscoverLinks(pageHTML, baseURL string) (*DiscoveredLinks, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	result := &DiscoveredLinks{}
	seen := make(map[string]struct{})

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || shouldSkipHref(href) {
			return
		}

		ref, parseErr := url.Parse(href)
		if parseErr != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		abs.Fragment = ""

		target := abs.String()
		if _, dup := seen[target]; dup {
			return
		}
		seen[target] = struct{}{}

		link := domain.Link{
			FromURL:      baseURL,
			ToURL:        target,
			AnchorText:   strings.TrimSpace(sel.Text()),
			Attributes:   anchorAttributes(sel),
			DiscoveredAt: time.Now(),
		}

		if urlkey.SameBoundary(strings.ToLower(abs.Hostname()), e.baseHost, e.includeSubdomains) {
			link.Type = domain.LinkInternal
			result.Internal = append(result.Internal, link)
		} else {
			link.Type = domain.LinkExternal
			result.External = append(result.External, link)
		}
	})

	return result, nil
}

// shouldSkipHref reports whether an href is non-navigable.
func shouldSkipHref(href string) bool {
	lower := strings.ToLower(href)
	for _, prefix := range skipPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// anchorAttributes collects the anchor's attributes other than href into
// an attribute bag. Returns nil when the anchor carries none.
func anchorAttributes(sel *goquery.Selection) domain.JSONBMap {
	if len(sel.Nodes) == 0 {
		return nil
	}

	var attrs domain.JSONBMap
	for _, attr := range sel.Nodes[0].Attr {
		if attr.Key == "href" {
			continue
		}
		if attrs == nil {
			attrs = domain.JSONBMap{}
		}
		attrs[attr.Key] = attr.Val
	}
	return attrs
}
