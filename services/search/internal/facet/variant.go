package facet

import (
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/domain"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/engine"
)

const variantsAggName = "_variants"

// VariantFacetCreator runs its inner creators on variant data. It moves
// their fragments into one nested variants scope and unwraps that scope
// before handing results back, so inner creators never see the nesting.
type VariantFacetCreator struct {
	inner []Creator
}

var _ Creator = (*VariantFacetCreator)(nil)

// NewVariantFacetCreator wraps inner and installs one shared variant
// corrector on every nested creator among them.
func NewVariantFacetCreator(inner ...Creator) *VariantFacetCreator {
	corrector := NewNestedFacetCountCorrector(domain.Variants)
	for _, c := range inner {
		if nc, ok := c.(NestedCreator); ok {
			nc.SetNestedFacetCorrector(corrector)
		}
	}
	return &VariantFacetCreator{inner: inner}
}

// BuildAggregation implements Creator.
func (c *VariantFacetCreator) BuildAggregation(p *domain.InternalSearchParams) *engine.Aggregation {
	if len(c.inner) == 0 {
		return nil
	}
	nested := &engine.Aggregation{Name: variantsAggName, Kind: engine.KindNested, Path: domain.Variants}
	for _, creator := range c.inner {
		if frag := creator.BuildAggregation(p); frag != nil {
			nested.Add(frag.Prefixed(domain.Variants))
		}
	}
	if len(nested.Aggregations) == 0 {
		return nil
	}
	return nested
}

// CreateFacets implements Creator.
func (c *VariantFacetCreator) CreateFacets(filters []domain.ResultFilter, aggs engine.AggregationResults, lb LinkBuilder) []domain.Facet {
	scope := aggs.Get(variantsAggName)
	if scope == nil {
		return nil
	}
	var out []domain.Facet
	for _, creator := range c.inner {
		out = append(out, creator.CreateFacets(filters, scope.Aggregations, lb)...)
	}
	return out
}
