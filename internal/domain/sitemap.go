package domain

// SiteMapPage is the compact page representation used in site maps.
type SiteMapPage struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
	Depth int    `json:"depth"`
}

// SemanticSiteMap groups stored pages by their primary topic category.
// Pages without a category land in the "Uncategorized" bucket.
type SemanticSiteMap struct {
	Hierarchy map[string][]SiteMapPage `json:"hierarchy"`
	Topics    []string                 `json:"topics"`
}

// PathCount is a click-path sequence with its observed frequency.
type PathCount struct {
	Path  []string `json:"path"`
	Count int      `json:"count"`
}

// PageCount is a page URL with its visit count.
type PageCount struct {
	URL   string `json:"url"`
	Count int    `json:"count"`
}

// NavigationEdge is a referrer-to-page transition with its frequency.
type NavigationEdge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Count int    `json:"count"`
}

// FunctionalSiteMap is the navigation-flow view of a site, derived purely
// from flow-mapper state.
type FunctionalSiteMap struct {
	Navigation    []NavigationEdge `json:"navigation"`
	EntryPoints   []string         `json:"entry_points"`
	ExitPoints    []string         `json:"exit_points"`
	PopularPaths  []PathCount      `json:"popular_paths"`
	PopularPages  []PageCount      `json:"popular_pages"`
	AvgPathLength float64          `json:"avg_path_length"`
}
