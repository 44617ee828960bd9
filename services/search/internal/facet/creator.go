// Package facet builds facet aggregations and turns their results into
// domain facets.
package facet

import (
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/domain"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/engine"
)

// LinkBuilder creates the filter links of facet entries.
type LinkBuilder interface {
	WithFilterAsLink(field string, multiSelect bool, values ...string) string
	WithoutFilterAsLink(field string, values ...string) string
	IsFilterSelected(field, value string) bool
}

// Creator contributes one aggregation fragment to a search request and
// reads its facets back from the result.
type Creator interface {
	// BuildAggregation returns nil when the creator has nothing to add.
	BuildAggregation(p *domain.InternalSearchParams) *engine.Aggregation
	CreateFacets(filters []domain.ResultFilter, aggs engine.AggregationResults, lb LinkBuilder) []domain.Facet
}

// NestedCreator is a creator working on nested facet data whose counts
// need correction.
type NestedCreator interface {
	Creator
	SetNestedFacetCorrector(c *NestedFacetCountCorrector)
}

// Selector decides per request whether a creator handles a field.
type Selector func(f domain.Field, cfg domain.FacetConfig, p *domain.InternalSearchParams) bool

// All selects every field.
func All(domain.Field, domain.FacetConfig, *domain.InternalSearchParams) bool { return true }

type facetField struct {
	field domain.Field
	cfg   domain.FacetConfig
}

type fieldSet struct {
	fields  []facetField
	include Selector
}

func newFieldSet(fields []domain.Field, cfgs domain.FacetConfiguration, include Selector) fieldSet {
	if include == nil {
		include = All
	}
	s := fieldSet{include: include}
	for _, f := range fields {
		s.fields = append(s.fields, facetField{field: f, cfg: cfgs.For(f.Name)})
	}
	return s
}

func (s fieldSet) active(p *domain.InternalSearchParams) []facetField {
	var out []facetField
	for _, ff := range s.fields {
		if s.include(ff.field, ff.cfg, p) {
			out = append(out, ff)
		}
	}
	return out
}

// filtersExcept drops the filter on field so a facet's own selection does
// not narrow its counts.
func filtersExcept(filters []domain.ResultFilter, field string) []domain.ResultFilter {
	out := make([]domain.ResultFilter, 0, len(filters))
	for _, f := range filters {
		if f.FilterField().Name != field {
			out = append(out, f)
		}
	}
	return out
}

func isFiltered(filters []domain.ResultFilter, field string) bool {
	for _, f := range filters {
		if f.FilterField().Name == field {
			return true
		}
	}
	return false
}

func filtersOf(p *domain.InternalSearchParams) []domain.ResultFilter {
	if p == nil {
		return nil
	}
	return p.Filters
}

func nameFilter(data, field string) engine.Query {
	return engine.Term{Field: data + "." + domain.FacetDataName, Values: []string{field}}
}

func entryLink(lb LinkBuilder, cfg domain.FacetConfig, field, value string) (string, bool) {
	if lb.IsFilterSelected(field, value) {
		return lb.WithoutFilterAsLink(field, value), true
	}
	return lb.WithFilterAsLink(field, cfg.IsMultiSelect, value), false
}

// rangeEntryLink links a number range in its "lower,upper" form. A number
// filter holds one range, so another selection replaces it.
func rangeEntryLink(lb LinkBuilder, field, rangeValue string) (string, bool) {
	if lb.IsFilterSelected(field, rangeValue) {
		return lb.WithoutFilterAsLink(field, rangeValue), true
	}
	return lb.WithFilterAsLink(field, false, rangeValue), false
}
