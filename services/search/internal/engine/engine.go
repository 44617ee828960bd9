// Package engine defines the backend-neutral contract of the index engine.
package engine

import (
	"context"
)

// Engine indexes documents and answers search requests. Implementations may
// use Elasticsearch or in-memory storage.
type Engine interface {
	// Search runs req against index, which may be an alias.
	Search(ctx context.Context, index string, req *Request) (*Response, error)

	// Get returns the source of one document.
	Get(ctx context.Context, index, id string) (map[string]any, bool, error)

	// Index adds or replaces documents.
	Index(ctx context.Context, index string, docs []IndexDocument) error

	// Delete removes documents by id. Missing ids are ignored.
	Delete(ctx context.Context, index string, ids []string) error

	CreateIndex(ctx context.Context, name string) error
	DeleteIndex(ctx context.Context, name string) error

	// Indices lists concrete index names starting with prefix.
	Indices(ctx context.Context, prefix string) ([]string, error)

	// AliasTargets returns the indexes alias points to, none for an
	// unknown alias.
	AliasTargets(ctx context.Context, alias string) ([]string, error)

	// SwapAlias points alias at index and returns the indexes it pointed
	// to before.
	SwapAlias(ctx context.Context, alias, index string) ([]string, error)

	Ping(ctx context.Context) error
}

// IndexDocument is one document in its index representation.
type IndexDocument struct {
	ID     string
	Source map[string]any
}

// SortField orders hits by a field. Mode picks the value of multi-valued
// fields ("min" or "max").
type SortField struct {
	Field string
	Desc  bool
	Mode  string
}

// Request is a search request.
type Request struct {
	Query        Query
	PostFilter   Query
	Aggregations []*Aggregation
	Sort         []SortField
	From         int
	Size         int
}

// Response is a search response.
type Response struct {
	Total        int64
	Hits         []Hit
	Aggregations AggregationResults
	TookMillis   int64
}

// Hit is one matching document.
type Hit struct {
	ID             string
	Index          string
	Score          float64
	Source         map[string]any
	InnerHits      map[string]HitGroup
	MatchedQueries []string
}

// HitGroup is a named set of inner hits.
type HitGroup struct {
	Total int64
	Hits  []Hit
}
