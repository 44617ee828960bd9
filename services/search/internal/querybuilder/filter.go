// Package querybuilder translates search params and tenant settings into
// engine queries over the index document layout.
package querybuilder

import (
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/domain"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/engine"
)

func dataField(data, key string) string {
	return data + "." + key
}

// FilterQuery matches f against the facet data of one document level. The
// field names are relative to that level.
func FilterQuery(f domain.ResultFilter) engine.Query {
	switch f := f.(type) {
	case domain.TermResultFilter:
		return facetDataQuery(domain.TermFacetData, f.Field.Name,
			engine.Term{Field: dataField(domain.TermFacetData, domain.FacetDataValue), Values: f.Values})
	case domain.NumberResultFilter:
		return facetDataQuery(domain.NumberFacetData, f.Field.Name,
			engine.Range{Field: dataField(domain.NumberFacetData, domain.FacetDataValue), Gte: f.Lower, Lte: f.Upper})
	case domain.PathResultFilter:
		// Every path prefix is indexed, so matching a path also matches its
		// descendants.
		return facetDataQuery(domain.PathFacetData, f.Field.Name,
			engine.Term{Field: dataField(domain.PathFacetData, domain.FacetDataValue), Values: f.Paths})
	}
	return engine.MatchAll{}
}

func facetDataQuery(data, name string, value engine.Query) engine.Query {
	return engine.Nested{
		Path: data,
		Query: engine.Bool{Filter: []engine.Query{
			engine.Term{Field: dataField(data, domain.FacetDataName), Values: []string{name}},
			value,
		}},
	}
}

// ScopedFilterQuery is FilterQuery evaluated on documents below scope, for
// example on variants.
func ScopedFilterQuery(f domain.ResultFilter, scope string) engine.Query {
	return engine.PrefixFields(FilterQuery(f), scope)
}

// Filters is the split of active filters by the level they apply to.
type Filters struct {
	// Master holds clauses on the master document, including the
	// master-or-variant clauses of fields present on both levels.
	Master []engine.Query
	// Variant holds clauses relative to one variant document. All of them
	// must hold for the same variant.
	Variant []engine.Query
}

// SplitFilters groups filters by field level.
func SplitFilters(filters []domain.ResultFilter) Filters {
	var out Filters
	for _, f := range filters {
		field := f.FilterField()
		switch field.Level {
		case domain.LevelVariant:
			out.Variant = append(out.Variant, ScopedFilterQuery(f, domain.Variants))
		case domain.LevelBoth:
			out.Master = append(out.Master, engine.Bool{
				Should: []engine.Query{
					FilterQuery(f),
					engine.Nested{Path: domain.Variants, Query: ScopedFilterQuery(f, domain.Variants)},
				},
				MinimumShouldMatch: 1,
			})
		default:
			out.Master = append(out.Master, FilterQuery(f))
		}
	}
	return out
}

// VariantFilters returns the clauses of filters on variant data, relative
// to a variant document. Fields on both levels are included.
func VariantFilters(filters []domain.ResultFilter) []engine.Query {
	var out []engine.Query
	for _, f := range filters {
		if f.FilterField().OnVariant() {
			out = append(out, ScopedFilterQuery(f, domain.Variants))
		}
	}
	return out
}
