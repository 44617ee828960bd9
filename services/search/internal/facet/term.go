package facet

import (
	"slices"
	"strconv"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/domain"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/engine"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/params"
)

const (
	aggValues   = "_values"
	aggCoverage = "_coverage"

	defaultTermFacetSize = 100
)

// TermFacetCreator builds one value facet per field from name/value facet
// data. Each field gets a filter on its name below a single nested scope.
type TermFacetCreator struct {
	name      string
	data      string
	set       fieldSet
	maxValues int
	corrector *NestedFacetCountCorrector
}

var _ NestedCreator = (*TermFacetCreator)(nil)

// NewTermFacetCreator creates a creator over the facet data at data, which
// is domain.TermFacetData or domain.NumberFacetData.
func NewTermFacetCreator(data string, fields []domain.Field, cfgs domain.FacetConfiguration, include Selector) *TermFacetCreator {
	return &TermFacetCreator{
		name:      "_" + data,
		data:      data,
		set:       newFieldSet(fields, cfgs, include),
		maxValues: defaultTermFacetSize,
	}
}

// SetNestedFacetCorrector implements NestedCreator.
func (c *TermFacetCreator) SetNestedFacetCorrector(nc *NestedFacetCountCorrector) {
	c.corrector = nc
}

// BuildAggregation implements Creator.
func (c *TermFacetCreator) BuildAggregation(p *domain.InternalSearchParams) *engine.Aggregation {
	active := c.set.active(p)
	if len(active) == 0 {
		return nil
	}
	root := &engine.Aggregation{Name: c.name, Kind: engine.KindNested, Path: c.data}
	for _, ff := range active {
		values := &engine.Aggregation{
			Name:  aggValues,
			Kind:  engine.KindTerms,
			Field: c.data + "." + domain.FacetDataValue,
			Size:  c.maxValues,
			Order: bucketOrder(ff.cfg.ValueOrder),
		}
		c.corrector.CorrectValueAggregation(values, filtersExcept(filtersOf(p), ff.field.Name))
		root.Add(&engine.Aggregation{
			Name:   ff.field.Name,
			Kind:   engine.KindFilter,
			Filter: nameFilter(c.data, ff.field.Name),
			Aggregations: []*engine.Aggregation{
				values,
				{Name: aggCoverage, Kind: engine.KindReverseNested, Absolute: true},
			},
		})
	}
	return root
}

// CreateFacets implements Creator.
func (c *TermFacetCreator) CreateFacets(filters []domain.ResultFilter, aggs engine.AggregationResults, lb LinkBuilder) []domain.Facet {
	root := aggs.Get(c.name)
	if root == nil {
		return nil
	}
	var out []domain.Facet
	for _, ff := range c.set.fields {
		res := root.Aggregations.Get(ff.field.Name)
		if res == nil {
			continue
		}
		values := res.Aggregations.Get(aggValues)
		if values == nil || len(values.Buckets) == 0 {
			continue
		}

		name := ff.field.Name
		facet := domain.NewFacet(name, domain.FacetTypeTerm, ff.cfg)
		facet.IsFiltered = isFiltered(filters, name)
		showAll := !facet.IsFiltered || ff.cfg.ShowUnselectedOptions || ff.cfg.IsMultiSelect

		var sum int64
		for _, b := range values.Buckets {
			link, selected := c.entryLink(lb, ff.cfg, name, b.Key)
			if !selected && !showAll {
				continue
			}
			count := c.corrector.CorrectedDocumentCount(b)
			sum += count
			facet.Entries = append(facet.Entries, &domain.SimpleFacetEntry{
				Key:      b.Key,
				DocCount: count,
				Link:     link,
				Selected: selected,
			})
		}
		if len(facet.Entries) == 0 {
			continue
		}
		sortEntries(facet.Entries, ff.cfg.ValueOrder)

		facet.AbsoluteFacetCoverage = sum
		if cov := res.Aggregations.Get(aggCoverage); cov != nil {
			facet.AbsoluteFacetCoverage = cov.DocCount
		}
		out = append(out, facet)
	}
	return out
}

// entryLink filters number values as the single-value range "v,v".
func (c *TermFacetCreator) entryLink(lb LinkBuilder, cfg domain.FacetConfig, field, key string) (string, bool) {
	if c.data != domain.NumberFacetData {
		return entryLink(lb, cfg, field, key)
	}
	v, err := strconv.ParseFloat(key, 64)
	if err != nil {
		return entryLink(lb, cfg, field, key)
	}
	return rangeEntryLink(lb, field, params.FormatRange(&v, &v))
}

func bucketOrder(o domain.ValueOrder) engine.BucketOrder {
	switch o {
	case domain.ValueOrderAlphanumAsc:
		return engine.OrderKeyAsc
	case domain.ValueOrderAlphanumDesc:
		return engine.OrderKeyDesc
	default:
		return engine.OrderCount
	}
}

// sortEntries reorders entries after count correction. Alphanumeric order
// compares digit runs by value and ignores case.
func sortEntries(entries []domain.FacetEntry, order domain.ValueOrder) {
	switch order {
	case domain.ValueOrderAlphanumAsc, domain.ValueOrderAlphanumDesc:
		col := collate.New(language.Und, collate.Numeric, collate.IgnoreCase)
		slices.SortStableFunc(entries, func(a, b domain.FacetEntry) int {
			cmp := col.CompareString(a.Entry().Key, b.Entry().Key)
			if order == domain.ValueOrderAlphanumDesc {
				return -cmp
			}
			return cmp
		})
	default:
		slices.SortStableFunc(entries, func(a, b domain.FacetEntry) int {
			ca, cb := a.Entry().DocCount, b.Entry().DocCount
			switch {
			case ca > cb:
				return -1
			case ca < cb:
				return 1
			}
			return 0
		})
	}
}
