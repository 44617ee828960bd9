package facet

import (
	"strings"

	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/domain"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/engine"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/params"
)

const (
	categoryAggPrefix        = "_category"
	aggField                 = "_field"
	aggIDs                   = "_ids"
	defaultCategoryFacetSize = 250
)

// CategoryFacetCreator builds a hierarchical facet from slash-delimited
// category paths.
type CategoryFacetCreator struct {
	field     domain.Field
	cfg       domain.FacetConfig
	include   Selector
	aggName   string
	maxValues int
	corrector *NestedFacetCountCorrector
}

var _ NestedCreator = (*CategoryFacetCreator)(nil)

// NewCategoryFacetCreator creates the creator of one category field.
func NewCategoryFacetCreator(field domain.Field, cfg domain.FacetConfig, include Selector) *CategoryFacetCreator {
	if include == nil {
		include = All
	}
	return &CategoryFacetCreator{
		field:     field,
		cfg:       cfg,
		include:   include,
		aggName:   categoryAggPrefix + "_" + field.Name,
		maxValues: defaultCategoryFacetSize,
		corrector: NewNestedFacetCountCorrector(""),
	}
}

// SetNestedFacetCorrector implements NestedCreator.
func (c *CategoryFacetCreator) SetNestedFacetCorrector(nc *NestedFacetCountCorrector) {
	c.corrector = nc
}

// BuildAggregation implements Creator.
func (c *CategoryFacetCreator) BuildAggregation(p *domain.InternalSearchParams) *engine.Aggregation {
	if !c.include(c.field, c.cfg, p) {
		return nil
	}
	values := &engine.Aggregation{
		Name:  aggValues,
		Kind:  engine.KindTerms,
		Field: domain.PathFacetData + "." + domain.FacetDataValue,
		Size:  c.maxValues,
		Order: engine.OrderCount,
		Aggregations: []*engine.Aggregation{{
			Name:  aggIDs,
			Kind:  engine.KindTerms,
			Field: domain.PathFacetData + "." + domain.FacetDataID,
			Size:  1,
		}},
	}
	c.corrector.CorrectValueAggregation(values, filtersExcept(filtersOf(p), c.field.Name))

	return &engine.Aggregation{
		Name: c.aggName,
		Kind: engine.KindNested,
		Path: domain.PathFacetData,
		Aggregations: []*engine.Aggregation{{
			Name:         aggField,
			Kind:         engine.KindFilter,
			Filter:       nameFilter(domain.PathFacetData, c.field.Name),
			Aggregations: []*engine.Aggregation{values},
		}},
	}
}

// CreateFacets implements Creator.
func (c *CategoryFacetCreator) CreateFacets(filters []domain.ResultFilter, aggs engine.AggregationResults, lb LinkBuilder) []domain.Facet {
	values := aggs.Path(c.aggName, aggField, aggValues)
	if values == nil || len(values.Buckets) == 0 {
		return nil
	}

	facet := domain.NewFacet(c.field.Name, domain.FacetTypeHierarchical, c.cfg)
	facet.IsFiltered = isFiltered(filters, c.field.Name)

	var roots []*domain.HierarchialFacetEntry
	for _, b := range values.Buckets {
		segments := splitPath(b.Key)
		if len(segments) == 0 {
			continue
		}

		var cur *domain.HierarchialFacetEntry
		for i, seg := range segments {
			var next *domain.HierarchialFacetEntry
			if cur == nil {
				for _, r := range roots {
					if r.Key == seg {
						next = r
						break
					}
				}
				if next == nil {
					next = c.newEntry(seg, segments[:i+1], lb)
					roots = append(roots, next)
				}
			} else if next = cur.Child(seg); next == nil {
				next = cur.AddChild(c.newEntry(seg, segments[:i+1], lb))
			}
			cur = next
		}

		cur.DocCount = c.corrector.CorrectedDocumentCount(b)
		if ids := b.Aggregations.Get(aggIDs); ids != nil && len(ids.Buckets) > 0 {
			cur.ID = ids.Buckets[0].Key
		}
	}
	if len(roots) == 0 {
		return nil
	}

	for _, r := range roots {
		facet.AbsoluteFacetCoverage += leafCount(r)
		facet.Entries = append(facet.Entries, r)
	}
	return []domain.Facet{facet}
}

func (c *CategoryFacetCreator) newEntry(key string, segments []string, lb LinkBuilder) *domain.HierarchialFacetEntry {
	path := strings.Join(segments, params.PathDelimiter)
	link, selected := entryLink(lb, c.cfg, c.field.Name, path)
	return &domain.HierarchialFacetEntry{
		SimpleFacetEntry: domain.SimpleFacetEntry{Key: key, Link: link, Selected: selected},
		Path:             path,
	}
}

func splitPath(path string) []string {
	var out []string
	for _, s := range strings.Split(path, params.PathDelimiter) {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// leafCount sums the counts of entries without children. Every path
// prefix is indexed as well, so inner entries would count documents twice.
func leafCount(e *domain.HierarchialFacetEntry) int64 {
	if len(e.Children) == 0 {
		return e.DocCount
	}
	var sum int64
	for _, c := range e.Children {
		sum += leafCount(c)
	}
	return sum
}
