package facet

import (
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/domain"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/engine"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/querybuilder"
)

const (
	aggDocCount = "_doc_count"
	aggFiltered = "_filtered"
	aggScope    = "_scope"
)

// NestedFacetCountCorrector fixes bucket counts of facet data nested below
// documents. Buckets count facet data entries; the corrector counts the
// root documents instead and, inside a nested scope such as variants,
// only those whose scoped document also passes the active scoped filters.
type NestedFacetCountCorrector struct {
	scope string
}

// NewNestedFacetCountCorrector creates a corrector for facet data below
// scope. An empty scope means facet data of the root document.
func NewNestedFacetCountCorrector(scope string) *NestedFacetCountCorrector {
	return &NestedFacetCountCorrector{scope: scope}
}

// CorrectValueAggregation adds the sub-aggregations the correction needs to
// a terms aggregation. active must already exclude the facet's own field.
func (c *NestedFacetCountCorrector) CorrectValueAggregation(values *engine.Aggregation, active []domain.ResultFilter) {
	values.Add(&engine.Aggregation{Name: aggDocCount, Kind: engine.KindReverseNested, Absolute: true})
	if c == nil || c.scope == "" {
		return
	}

	var scoped []engine.Query
	for _, f := range active {
		if f.FilterField().OnVariant() {
			scoped = append(scoped, querybuilder.ScopedFilterQuery(f, c.scope))
		}
	}
	if len(scoped) == 0 {
		return
	}
	values.Add(&engine.Aggregation{
		Name:     aggFiltered,
		Kind:     engine.KindReverseNested,
		Path:     c.scope,
		Absolute: true,
		Aggregations: []*engine.Aggregation{{
			Name:   aggScope,
			Kind:   engine.KindFilter,
			Filter: engine.Bool{Filter: scoped},
			Aggregations: []*engine.Aggregation{
				{Name: aggDocCount, Kind: engine.KindReverseNested},
			},
		}},
	})
}

// CorrectedDocumentCount returns the filtered count if present, else the
// root document count, else the raw bucket count.
func (c *NestedFacetCountCorrector) CorrectedDocumentCount(b engine.Bucket) int64 {
	if r := b.Aggregations.Path(aggFiltered, aggScope, aggDocCount); r != nil {
		return r.DocCount
	}
	if r := b.Aggregations.Get(aggDocCount); r != nil {
		return r.DocCount
	}
	return b.DocCount
}
