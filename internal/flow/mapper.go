// Package flow tracks navigation structure during a crawl: referrer edges,
// visit counts, entry and exit points, and click-path sequences. One mapper
// belongs to one exploration job.
package flow

import (
	"sort"
	"strings"
	"sync"

	"github.com/jonesrussell/siteatlas/internal/domain"
)

// Mapper records navigation-flow state. Safe for concurrent use.
type Mapper struct {
	mu sync.RWMutex

	visitCounts map[string]int
	referrers   map[string][]string
	// outgoing holds the count of discovered outgoing internal links per
	// page; a recorded page with zero is an exit point
	outgoing    map[string]int
	entryPoints []string
	visitOrder  []string

	paths       [][]string
	currentPath []string
}

// NewMapper creates an empty flow mapper.
func NewMapper() *Mapper {
	return &Mapper{
		visitCounts: make(map[string]int),
		referrers:   make(map[string][]string),
		outgoing:    make(map[string]int),
	}
}

// TrackNavigation records a visit to url arriving from referrer. An empty
// referrer on a first visit marks url as an entry point.
func (m *Mapper) TrackNavigation(url, referrer string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	first := m.visitCounts[url] == 0
	m.visitCounts[url]++
	if first {
		m.visitOrder = append(m.visitOrder, url)
	}

	if referrer == "" {
		if first {
			m.entryPoints = append(m.entryPoints, url)
		}
		return
	}
	m.referrers[url] = append(m.referrers[url], referrer)
}

// RecordOutgoingLinks records how many internal links a page exposes.
// Pages recorded with zero become exit points.
func (m *Mapper) RecordOutgoingLinks(url string, internalCount int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outgoing[url] = internalCount
}

// GetReferrer returns the first recorded referrer of url, or empty.
func (m *Mapper) GetReferrer(url string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if refs := m.referrers[url]; len(refs) > 0 {
		return refs[0]
	}
	return ""
}

// GetReferrers returns every recorded referrer of url, in visit order.
// Multiple paths may lead to the same page.
func (m *Mapper) GetReferrers(url string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	refs := make([]string, len(m.referrers[url]))
	copy(refs, m.referrers[url])
	return refs
}

// VisitCount returns the number of recorded visits to url.
func (m *Mapper) VisitCount(url string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.visitCounts[url]
}

// EntryPoints returns the pages first reached with no referrer.
func (m *Mapper) EntryPoints() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.entryPoints))
	copy(out, m.entryPoints)
	return out
}

// ExitPoints returns the visited pages with zero discovered outgoing
// internal links, in first-visit order.
func (m *Mapper) ExitPoints() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []string
	for _, url := range m.visitOrder {
		if count, recorded := m.outgoing[url]; recorded && count == 0 {
			out = append(out, url)
		}
	}
	return out
}

// StartPath begins a new click-path at url, closing any open path.
func (m *Mapper) StartPath(url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCurrentPath()
	m.currentPath = []string{url}
}

// AddToPath appends url to the open click-path. No-op without an open path.
func (m *Mapper) AddToPath(url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.currentPath == nil {
		return
	}
	m.currentPath = append(m.currentPath, url)
}

// EndPath closes the open click-path and stores it.
func (m *Mapper) EndPath() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCurrentPath()
}

// closeCurrentPath stores the open path when non-empty. Caller holds the lock.
func (m *Mapper) closeCurrentPath() {
	if len(m.currentPath) > 0 {
		m.paths = append(m.paths, m.currentPath)
		m.currentPath = nil
	}
}

// GetPopularPaths ranks identical click-path sequences by frequency,
// descending, ties by first occurrence.
func (m *Mapper) GetPopularPaths() []domain.PathCount {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	byKey := make(map[string][]string)
	for i, path := range m.paths {
		key := strings.Join(path, "\x00")
		if _, ok := counts[key]; !ok {
			firstSeen[key] = i
			byKey[key] = path
		}
		counts[key]++
	}

	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return firstSeen[keys[i]] < firstSeen[keys[j]]
	})

	out := make([]domain.PathCount, 0, len(keys))
	for _, key := range keys {
		path := make([]string, len(byKey[key]))
		copy(path, byKey[key])
		out = append(out, domain.PathCount{Path: path, Count: counts[key]})
	}
	return out
}

// GetPopularPages ranks pages by visit count, descending, ties by
// first-visit order.
func (m *Mapper) GetPopularPages() []domain.PageCount {
	m.mu.RLock()
	defer m.mu.RUnlock()

	firstSeen := make(map[string]int, len(m.visitOrder))
	for i, url := range m.visitOrder {
		firstSeen[url] = i
	}

	out := make([]domain.PageCount, 0, len(m.visitCounts))
	for url, count := range m.visitCounts {
		out = append(out, domain.PageCount{URL: url, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return firstSeen[out[i].URL] < firstSeen[out[j].URL]
	})
	return out
}

// NavigationEdges returns the referrer-to-page transitions with their
// frequencies, in first-visit order of the target.
func (m *Mapper) NavigationEdges() []domain.NavigationEdge {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.NavigationEdge
	for _, url := range m.visitOrder {
		edgeCounts := make(map[string]int)
		var order []string
		for _, ref := range m.referrers[url] {
			if edgeCounts[ref] == 0 {
				order = append(order, ref)
			}
			edgeCounts[ref]++
		}
		for _, ref := range order {
			out = append(out, domain.NavigationEdge{From: ref, To: url, Count: edgeCounts[ref]})
		}
	}
	return out
}

// AveragePathLength returns the mean length of recorded click-paths.
func (m *Mapper) AveragePathLength() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.paths) == 0 {
		return 0
	}
	total := 0
	for _, path := range m.paths {
		total += len(path)
	}
	return float64(total) / float64(len(m.paths))
}
