package facet

import (
	"slices"
	"strconv"

	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/domain"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/engine"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/params"
)

const (
	intervalAggName          = "_interval_facets"
	defaultIntervalFacetSize = 1000
)

// IntervalFacetCreator groups the distinct values of number fields into
// about OptimalValueCount ranges of similar document counts.
type IntervalFacetCreator struct {
	set       fieldSet
	maxValues int
	corrector *NestedFacetCountCorrector
}

var _ NestedCreator = (*IntervalFacetCreator)(nil)

// NewIntervalFacetCreator creates a creator for number fields.
func NewIntervalFacetCreator(fields []domain.Field, cfgs domain.FacetConfiguration, include Selector) *IntervalFacetCreator {
	return &IntervalFacetCreator{
		set:       newFieldSet(fields, cfgs, include),
		maxValues: defaultIntervalFacetSize,
	}
}

// SetNestedFacetCorrector implements NestedCreator.
func (c *IntervalFacetCreator) SetNestedFacetCorrector(nc *NestedFacetCountCorrector) {
	c.corrector = nc
}

// BuildAggregation implements Creator.
func (c *IntervalFacetCreator) BuildAggregation(p *domain.InternalSearchParams) *engine.Aggregation {
	active := c.set.active(p)
	if len(active) == 0 {
		return nil
	}
	root := &engine.Aggregation{Name: intervalAggName, Kind: engine.KindNested, Path: domain.NumberFacetData}
	for _, ff := range active {
		values := &engine.Aggregation{
			Name:  aggValues,
			Kind:  engine.KindTerms,
			Field: domain.NumberFacetData + "." + domain.FacetDataValue,
			Size:  c.maxValues,
			Order: engine.OrderKeyAsc,
		}
		c.corrector.CorrectValueAggregation(values, filtersExcept(filtersOf(p), ff.field.Name))
		root.Add(&engine.Aggregation{
			Name:   ff.field.Name,
			Kind:   engine.KindFilter,
			Filter: nameFilter(domain.NumberFacetData, ff.field.Name),
			Aggregations: []*engine.Aggregation{
				values,
				{Name: aggCoverage, Kind: engine.KindReverseNested, Absolute: true},
			},
		})
	}
	return root
}

type numberCount struct {
	value float64
	count int64
}

// CreateFacets implements Creator.
func (c *IntervalFacetCreator) CreateFacets(filters []domain.ResultFilter, aggs engine.AggregationResults, lb LinkBuilder) []domain.Facet {
	root := aggs.Get(intervalAggName)
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

		counts := make([]numberCount, 0, len(values.Buckets))
		for _, b := range values.Buckets {
			v, err := strconv.ParseFloat(b.Key, 64)
			if err != nil {
				continue
			}
			counts = append(counts, numberCount{value: v, count: c.corrector.CorrectedDocumentCount(b)})
		}
		if len(counts) == 0 {
			continue
		}
		slices.SortFunc(counts, func(a, b numberCount) int {
			switch {
			case a.value < b.value:
				return -1
			case a.value > b.value:
				return 1
			}
			return 0
		})

		name := ff.field.Name
		facet := domain.NewFacet(name, domain.FacetTypeInterval, ff.cfg)
		facet.IsFiltered = isFiltered(filters, name)

		var sum int64
		for _, group := range intervals(counts, ff.cfg.OptimalValueCount) {
			lower, upper := group[0].value, group[len(group)-1].value
			var docs int64
			for _, nc := range group {
				docs += nc.count
			}
			sum += docs
			key := params.FormatRange(&lower, &upper)
			link, selected := rangeEntryLink(lb, name, key)
			facet.Entries = append(facet.Entries, &domain.IntervalFacetEntry{
				SimpleFacetEntry: domain.SimpleFacetEntry{Key: key, DocCount: docs, Link: link, Selected: selected},
				LowerBound:       lower,
				UpperBound:       upper,
			})
		}

		facet.AbsoluteFacetCoverage = sum
		if cov := res.Aggregations.Get(aggCoverage); cov != nil {
			facet.AbsoluteFacetCoverage = cov.DocCount
		}
		out = append(out, facet)
	}
	return out
}

// intervals splits sorted values into at most optimal groups of roughly
// equal document count. A value is never split across groups.
func intervals(values []numberCount, optimal int) [][]numberCount {
	if optimal <= 0 {
		optimal = domain.DefaultOptimalValueCount
	}
	var total int64
	for _, v := range values {
		total += v.count
	}
	target := float64(total) / float64(optimal)

	var (
		out [][]numberCount
		cur []numberCount
		acc int64
	)
	for _, v := range values {
		cur = append(cur, v)
		acc += v.count
		if float64(acc) >= target && len(out) < optimal-1 {
			out = append(out, cur)
			cur, acc = nil, 0
		}
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}
