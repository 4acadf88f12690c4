// Package sitemap derives semantic and functional site maps from the
// knowledge accumulated during an exploration. Generation is a pure read:
// it never mutates stored knowledge or flow state.
package sitemap

import (
	"context"
	"fmt"
	"sort"

	"github.com/jonesrussell/siteatlas/internal/domain"
	"github.com/jonesrussell/siteatlas/internal/flow"
	"github.com/jonesrussell/siteatlas/internal/storage"
)

// UncategorizedBucket holds pages without a primary topic category.
const UncategorizedBucket = "Uncategorized"

// Generator builds site maps for one exploration job.
type Generator struct {
	store storage.KnowledgeStore
}

// NewGenerator creates a site-map generator backed by store.
func NewGenerator(store storage.KnowledgeStore) *Generator {
	return &Generator{store: store}
}

// Semantic groups the job's stored pages by primary topic category.
func (g *Generator) Semantic(ctx context.Context, jobID string) (*domain.SemanticSiteMap, error) {
	pages, err := g.store.ListPages(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("sitemap: list pages: %w", err)
	}

	hierarchy := make(map[string][]domain.SiteMapPage)
	for _, page := range pages {
		category := page.PrimaryCategory()
		if category == "" {
			category = UncategorizedBucket
		}
		hierarchy[category] = append(hierarchy[category], domain.SiteMapPage{
			URL:   page.URL,
			Title: page.Summary.Title,
			Depth: page.Depth,
		})
	}

	topics := make([]string, 0, len(hierarchy))
	for category := range hierarchy {
		topics = append(topics, category)
	}
	sort.Strings(topics)

	return &domain.SemanticSiteMap{
		Hierarchy: hierarchy,
		Topics:    topics,
	}, nil
}

// Functional builds the navigation-flow view of the exploration from the
// job's flow mapper.
func (g *Generator) Functional(mapper *flow.Mapper) *domain.FunctionalSiteMap {
	return &domain.FunctionalSiteMap{
		Navigation:    mapper.NavigationEdges(),
		EntryPoints:   mapper.EntryPoints(),
		ExitPoints:    mapper.ExitPoints(),
		PopularPaths:  mapper.GetPopularPaths(),
		PopularPages:  mapper.GetPopularPages(),
		AvgPathLength: mapper.AveragePathLength(),
	}
}
