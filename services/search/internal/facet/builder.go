package facet

import (
	"slices"

	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/domain"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/engine"
)

// Builder assembles the creators of one search configuration.
type Builder struct {
	creators []Creator
	cfg      domain.FacetConfiguration
}

// NewBuilder creates the creators for every facet field of sc. Fields on
// both levels are faceted on masters, or on variants when their config
// prefers variants and a variant filter is active.
func NewBuilder(sc *domain.SearchConfiguration) *Builder {
	b := &Builder{cfg: sc.FacetConfiguration}
	if sc.FacetsDisabled {
		return b
	}

	var master, variant []domain.Field
	for _, f := range sc.Fields.ByUsage(domain.UsageFacet) {
		cfg := sc.FacetConfiguration.For(f.Name)
		switch f.Level {
		case domain.LevelVariant:
			variant = append(variant, f)
		case domain.LevelBoth:
			master = append(master, f)
			if cfg.PreferVariantOnFilter {
				variant = append(variant, f)
			}
		default:
			master = append(master, f)
		}
	}

	b.creators = append(b.creators, creatorsFor(master, sc.FacetConfiguration, onMaster)...)
	if inner := creatorsFor(variant, sc.FacetConfiguration, onVariant); len(inner) > 0 {
		b.creators = append(b.creators, NewVariantFacetCreator(inner...))
	}
	return b
}

func creatorsFor(fields []domain.Field, cfgs domain.FacetConfiguration, include Selector) []Creator {
	var terms, numberTerms, numbers []domain.Field
	var out []Creator
	for _, f := range fields {
		cfg := cfgs.For(f.Name)
		switch facetType(f, cfg) {
		case domain.FacetTypeIgnore:
		case domain.FacetTypeHierarchical:
			out = append(out, NewCategoryFacetCreator(f, cfg, include))
		case domain.FacetTypeInterval:
			numbers = append(numbers, f)
		default:
			if f.Type == domain.FieldTypeNumber {
				numberTerms = append(numberTerms, f)
			} else {
				terms = append(terms, f)
			}
		}
	}
	if len(terms) > 0 {
		out = append(out, NewTermFacetCreator(domain.TermFacetData, terms, cfgs, include))
	}
	if len(numberTerms) > 0 {
		out = append(out, NewTermFacetCreator(domain.NumberFacetData, numberTerms, cfgs, include))
	}
	if len(numbers) > 0 {
		out = append(out, NewIntervalFacetCreator(numbers, cfgs, include))
	}
	return out
}

// facetType resolves the configured type against the field type. A type
// the field's facet data cannot serve falls back to term.
func facetType(f domain.Field, cfg domain.FacetConfig) domain.FacetType {
	switch cfg.Type {
	case domain.FacetTypeIgnore:
		return domain.FacetTypeIgnore
	case domain.FacetTypeTerm:
		return domain.FacetTypeTerm
	case domain.FacetTypeHierarchical:
		if f.Type == domain.FieldTypeCategory {
			return domain.FacetTypeHierarchical
		}
		return domain.FacetTypeTerm
	case domain.FacetTypeInterval:
		if f.Type == domain.FieldTypeNumber {
			return domain.FacetTypeInterval
		}
		return domain.FacetTypeTerm
	}
	switch f.Type {
	case domain.FieldTypeCategory:
		return domain.FacetTypeHierarchical
	case domain.FieldTypeNumber:
		return domain.FacetTypeInterval
	default:
		return domain.FacetTypeTerm
	}
}

func preferVariant(f domain.Field, cfg domain.FacetConfig, p *domain.InternalSearchParams) bool {
	if f.Level != domain.LevelBoth || !cfg.PreferVariantOnFilter {
		return false
	}
	for _, flt := range filtersOf(p) {
		if flt.FilterField().Level == domain.LevelVariant {
			return true
		}
	}
	return false
}

func onMaster(f domain.Field, cfg domain.FacetConfig, p *domain.InternalSearchParams) bool {
	return f.OnMaster() && !preferVariant(f, cfg, p)
}

func onVariant(f domain.Field, cfg domain.FacetConfig, p *domain.InternalSearchParams) bool {
	return f.Level == domain.LevelVariant || preferVariant(f, cfg, p)
}

// Aggregations returns the fragments of all creators for p.
func (b *Builder) Aggregations(p *domain.InternalSearchParams) []*engine.Aggregation {
	var out []*engine.Aggregation
	for _, c := range b.creators {
		if agg := c.BuildAggregation(p); agg != nil {
			out = append(out, agg)
		}
	}
	return out
}

// Facets collects the facets of all creators ordered by their configured
// order. At most MaxFacets facets are kept; facets excluded from the limit
// are always kept.
func (b *Builder) Facets(p *domain.InternalSearchParams, aggs engine.AggregationResults, lb LinkBuilder) []domain.Facet {
	var all []domain.Facet
	for _, c := range b.creators {
		all = append(all, c.CreateFacets(filtersOf(p), aggs, lb)...)
	}
	slices.SortStableFunc(all, func(x, y domain.Facet) int {
		return x.Order() - y.Order()
	})

	limit := b.cfg.Limit()
	out := make([]domain.Facet, 0, len(all))
	counted := 0
	for _, f := range all {
		if f.ExcludedFromLimit() {
			out = append(out, f)
			continue
		}
		if counted < limit {
			out = append(out, f)
			counted++
		}
	}
	return out
}

// IsPostFilter reports whether the filter on field must not narrow its own
// facet, which holds for multi-select facets and facets showing unselected
// options. Such filters are applied after aggregation.
func (b *Builder) IsPostFilter(field string) bool {
	cfg := b.cfg.For(field)
	return cfg.IsMultiSelect || cfg.ShowUnselectedOptions
}
