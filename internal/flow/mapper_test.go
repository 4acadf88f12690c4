package flow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonesrussell/siteatlas/internal/domain"
	"github.com/jonesrussell/siteatlas/internal/flow"
)

func TestTrackNavigation_EntryPointsAndReferrers(t *testing.T) {
	m := flow.NewMapper()

	m.TrackNavigation("https://example.com/", "")
	m.TrackNavigation("https://example.com/a", "https://example.com/")
	m.TrackNavigation("https://example.com/a", "https://example.com/b")

	assert.Equal(t, []string{"https://example.com/"}, m.EntryPoints())
	assert.Equal(t, 1, m.VisitCount("https://example.com/"))
	assert.Equal(t, 2, m.VisitCount("https://example.com/a"))

	assert.Equal(t, "https://example.com/", m.GetReferrer("https://example.com/a"))
	assert.Equal(t,
		[]string{"https://example.com/", "https://example.com/b"},
		m.GetReferrers("https://example.com/a"))

	// a repeat visit without referrer is not a new entry point
	m.TrackNavigation("https://example.com/", "")
	assert.Len(t, m.EntryPoints(), 1)
}

func TestExitPoints(t *testing.T) {
	m := flow.NewMapper()

	m.TrackNavigation("https://example.com/", "")
	m.TrackNavigation("https://example.com/leaf", "https://example.com/")

	m.RecordOutgoingLinks("https://example.com/", 3)
	m.RecordOutgoingLinks("https://example.com/leaf", 0)

	assert.Equal(t, []string{"https://example.com/leaf"}, m.ExitPoints())
}

func TestClickPaths_PopularRanking(t *testing.T) {
	m := flow.NewMapper()

	record := func(urls ...string) {
		m.StartPath(urls[0])
		for _, u := range urls[1:] {
			m.AddToPath(u)
		}
		m.EndPath()
	}

	record("a", "b", "c")
	record("a", "b", "c")
	record("a", "d")

	popular := m.GetPopularPaths()
	assert.Len(t, popular, 2)
	assert.Equal(t, []string{"a", "b", "c"}, popular[0].Path)
	assert.Equal(t, 2, popular[0].Count)
	assert.Equal(t, []string{"a", "d"}, popular[1].Path)

	assert.InDelta(t, (3+3+2)/3.0, m.AveragePathLength(), 1e-9)
}

func TestAddToPath_WithoutOpenPath(t *testing.T) {
	m := flow.NewMapper()

	m.AddToPath("orphan")
	m.EndPath()
	assert.Empty(t, m.GetPopularPaths())
}

func TestPopularPagesAndEdges(t *testing.T) {
	m := flow.NewMapper()

	m.TrackNavigation("home", "")
	m.TrackNavigation("about", "home")
	m.TrackNavigation("about", "home")
	m.TrackNavigation("contact", "home")

	pages := m.GetPopularPages()
	assert.Equal(t, "about", pages[0].URL)
	assert.Equal(t, 2, pages[0].Count)

	edges := m.NavigationEdges()
	assert.Contains(t, edges, domain.NavigationEdge{From: "home", To: "about", Count: 2})
	assert.Contains(t, edges, domain.NavigationEdge{From: "home", To: "contact", Count: 1})
}
