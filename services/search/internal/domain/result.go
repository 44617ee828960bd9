package domain

// ResultHit is one document in a search result.
type ResultHit struct {
	Index          string   `json:"index"`
	Document       Document `json:"document"`
	MatchedQueries []string `json:"matchedQueries,omitempty"`
}

// SearchResultSlice is one labelled list of hits with its facets.
type SearchResultSlice struct {
	Label      string      `json:"label"`
	MatchCount int64       `json:"matchCount"`
	NextOffset int         `json:"nextOffset"`
	NextLink   string      `json:"nextLink,omitempty"`
	ResultLink string      `json:"resultLink"`
	Hits       []ResultHit `json:"hits"`
	Facets     []Facet     `json:"facets"`
}

// SortOption is a selectable sorting exposed with the result.
type SortOption struct {
	Field    string    `json:"field"`
	Order    SortOrder `json:"sortOrder"`
	Label    string    `json:"label,omitempty"`
	Link     string    `json:"link"`
	Selected bool      `json:"selected"`
}

// SearchResult is the answer to one search request.
type SearchResult struct {
	Slices       []SearchResultSlice `json:"slices"`
	SortOptions  []SortOption        `json:"sortOptions"`
	TookInMillis int64               `json:"tookInMillis"`
	Meta         map[string]any      `json:"meta,omitempty"`
}
