package facet

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/domain"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/engine"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/engine/memory"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/params"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/querybuilder"
)

var (
	brandField    = domain.Field{Name: "brand", Type: domain.FieldTypeString, Level: domain.LevelMaster, Usage: []domain.FieldUsage{domain.UsageFacet}}
	categoryField = domain.Field{Name: "category", Type: domain.FieldTypeCategory, Level: domain.LevelMaster, Usage: []domain.FieldUsage{domain.UsageFacet}}
	colorField    = domain.Field{Name: "color", Type: domain.FieldTypeString, Level: domain.LevelVariant, Usage: []domain.FieldUsage{domain.UsageFacet}}
	sizeField     = domain.Field{Name: "size", Type: domain.FieldTypeString, Level: domain.LevelVariant, Usage: []domain.FieldUsage{domain.UsageFacet}}
	priceField    = domain.Field{Name: "price", Type: domain.FieldTypeNumber, Level: domain.LevelVariant, Usage: []domain.FieldUsage{domain.UsageFacet, domain.UsageSort}}
)

func term(name, value string) map[string]any { return map[string]any{"name": name, "value": value} }
func number(name string, v float64) map[string]any { return map[string]any{"name": name, "value": v} }
func path(name, value string) map[string]any { return map[string]any{"name": name, "value": value, "id": value} }

func variant(color, size string, price float64) map[string]any {
	return map[string]any{
		"termFacetData":   []any{term("color", color), term("size", size)},
		"numberFacetData": []any{number("price", price)},
	}
}

func catalog(t *testing.T) *memory.Engine {
	t.Helper()
	e := memory.New()
	ctx := context.Background()
	require.NoError(t, e.CreateIndex(ctx, "products"))
	require.NoError(t, e.Index(ctx, "products", []engine.IndexDocument{
		{ID: "p1", Source: map[string]any{
			"termFacetData": []any{term("brand", "nike")},
			"pathFacetData": []any{path("category", "Shoes"), path("category", "Shoes/Running")},
			"variants":      []any{variant("red", "M", 40), variant("blue", "L", 60)},
		}},
		{ID: "p2", Source: map[string]any{
			"termFacetData": []any{term("brand", "adidas")},
			"pathFacetData": []any{path("category", "Shoes"), path("category", "Shoes/Trail")},
			"variants":      []any{variant("blue", "M", 80)},
		}},
		{ID: "p3", Source: map[string]any{
			"termFacetData": []any{term("brand", "nike")},
			"pathFacetData": []any{path("category", "Socks")},
		}},
	}))
	return e
}

func testConfig(fc domain.FacetConfiguration) *domain.SearchConfiguration {
	return &domain.SearchConfiguration{
		Tenant:             "test",
		IndexName:          "products",
		Fields:             domain.MustFieldIndex(brandField, categoryField, colorField, sizeField, priceField),
		FacetConfiguration: fc,
	}
}

// run executes the facet aggregations the way the searcher does and
// returns the facets by field name.
func run(t *testing.T, e *memory.Engine, b *Builder, p *domain.InternalSearchParams) map[string]domain.Facet {
	t.Helper()
	split := querybuilder.SplitFilters(p.Filters)
	q := engine.Bool{Filter: split.Master}
	if len(split.Variant) > 0 {
		q.Filter = append(q.Filter, engine.Nested{Path: domain.Variants, Query: engine.Bool{Filter: split.Variant}})
	}
	resp, err := e.Search(context.Background(), "products", &engine.Request{
		Query:        q,
		Aggregations: b.Aggregations(p),
		Size:         10,
	})
	require.NoError(t, err)

	out := map[string]domain.Facet{}
	for _, f := range b.Facets(p, resp.Aggregations, params.NewLinkBuilder(p)) {
		out[f.FieldName] = f
	}
	return out
}

func counts(f domain.Facet) map[string]int64 {
	out := map[string]int64{}
	for _, e := range f.Entries {
		out[e.Entry().Key] = e.Entry().DocCount
	}
	return out
}

func TestBuilder_Unfiltered(t *testing.T) {
	b := NewBuilder(testConfig(domain.FacetConfiguration{MaxFacets: 10}))
	facets := run(t, catalog(t), b, &domain.InternalSearchParams{Limit: 12})

	require.Len(t, facets, 5)
	assert.Equal(t, map[string]int64{"nike": 2, "adidas": 1}, counts(facets["brand"]))
	assert.Equal(t, int64(3), facets["brand"].AbsoluteFacetCoverage)
	assert.Equal(t, domain.FacetTypeTerm, facets["brand"].Type)
	assert.Equal(t, "nike", facets["brand"].Entries[0].Entry().Key)

	// Variant facets count masters, not variants.
	assert.Equal(t, map[string]int64{"blue": 2, "red": 1}, counts(facets["color"]))
	assert.Equal(t, map[string]int64{"M": 2, "L": 1}, counts(facets["size"]))

	price := facets["price"]
	assert.Equal(t, domain.FacetTypeInterval, price.Type)
	require.Len(t, price.Entries, 3)
	first := price.Entries[0].(*domain.IntervalFacetEntry)
	assert.Equal(t, 40.0, first.LowerBound)
	assert.Equal(t, "40,40", first.Key)

	cat := facets["category"]
	assert.Equal(t, domain.FacetTypeHierarchical, cat.Type)
	require.Len(t, cat.Entries, 2)
	shoes := cat.Entries[0].(*domain.HierarchialFacetEntry)
	assert.Equal(t, "Shoes", shoes.Key)
	assert.Equal(t, int64(2), shoes.DocCount)
	require.Len(t, shoes.Children, 2)
	assert.Equal(t, "Shoes/Running", shoes.Children[0].Path)
	assert.Equal(t, "Shoes/Running", shoes.Children[0].ID)
	assert.Equal(t, int64(3), cat.AbsoluteFacetCoverage)
}

func TestBuilder_VariantFilterCorrectsSiblingCounts(t *testing.T) {
	b := NewBuilder(testConfig(domain.FacetConfiguration{MaxFacets: 10}))
	p := &domain.InternalSearchParams{
		Limit:   12,
		Filters: []domain.ResultFilter{domain.TermResultFilter{Field: sizeField, Values: []string{"M"}}},
	}
	facets := run(t, catalog(t), b, p)

	// Only p2 has a variant that is blue and M.
	assert.Equal(t, map[string]int64{"red": 1, "blue": 1}, counts(facets["color"]))

	size := facets["size"]
	assert.True(t, size.IsFiltered)
	require.Len(t, size.Entries, 1)
	entry := size.Entries[0].Entry()
	assert.Equal(t, "M", entry.Key)
	assert.True(t, entry.Selected)
	assert.Equal(t, "?", entry.Link)
}

func TestBuilder_MaxFacetsAndOrder(t *testing.T) {
	b := NewBuilder(testConfig(domain.FacetConfiguration{
		MaxFacets: 2,
		Facets: []domain.FacetConfig{
			{SourceField: "price", Order: 1},
			{SourceField: "color", Order: 2},
			{SourceField: "category", Order: 3, ExcludeFromFacetLimit: true},
			{SourceField: "size", Type: domain.FacetTypeIgnore},
		},
	}))
	p := &domain.InternalSearchParams{Limit: 12}
	resp, err := catalog(t).Search(context.Background(), "products", &engine.Request{Aggregations: b.Aggregations(p)})
	require.NoError(t, err)

	facets := b.Facets(p, resp.Aggregations, params.NewLinkBuilder(p))
	var names []string
	for _, f := range facets {
		names = append(names, f.FieldName)
	}
	assert.Equal(t, []string{"price", "color", "category"}, names)
}

func TestBuilder_Disabled(t *testing.T) {
	sc := testConfig(domain.FacetConfiguration{})
	sc.FacetsDisabled = true
	b := NewBuilder(sc)
	assert.Empty(t, b.Aggregations(&domain.InternalSearchParams{}))
}

func TestBuilder_IsPostFilter(t *testing.T) {
	b := NewBuilder(testConfig(domain.FacetConfiguration{Facets: []domain.FacetConfig{
		{SourceField: "brand", IsMultiSelect: true},
	}}))
	assert.True(t, b.IsPostFilter("brand"))
	assert.False(t, b.IsPostFilter("color"))
}

func TestCategoryFacetCreator_Tree(t *testing.T) {
	c := NewCategoryFacetCreator(categoryField, domain.FacetConfig{SourceField: "category"}.WithDefaults(), nil)
	bucket := func(key string, n int64) engine.Bucket {
		return engine.Bucket{Key: key, DocCount: n, Aggregations: engine.AggregationResults{
			aggDocCount: {DocCount: n},
		}}
	}
	aggs := engine.AggregationResults{
		"_category_category": {Aggregations: engine.AggregationResults{
			aggField: {Aggregations: engine.AggregationResults{
				aggValues: {Buckets: []engine.Bucket{bucket("A/B", 3), bucket("A/C", 2), bucket("D", 5)}},
			}},
		}},
	}
	p := &domain.InternalSearchParams{Limit: 12}
	facets := c.CreateFacets(nil, aggs, params.NewLinkBuilder(p))
	require.Len(t, facets, 1)

	f := facets[0]
	assert.Equal(t, int64(10), f.AbsoluteFacetCoverage)
	require.Len(t, f.Entries, 2)
	a := f.Entries[0].(*domain.HierarchialFacetEntry)
	assert.Equal(t, "A", a.Key)
	require.Len(t, a.Children, 2)
	assert.Equal(t, "B", a.Children[0].Key)
	assert.Equal(t, int64(3), a.Children[0].DocCount)
	assert.Equal(t, "A/B", a.Children[0].Path)
	assert.Equal(t, "?category=A%2FB", a.Children[0].Link)
	assert.Equal(t, "C", a.Children[1].Key)
	assert.Equal(t, int64(2), a.Children[1].DocCount)
	d := f.Entries[1].(*domain.HierarchialFacetEntry)
	assert.Equal(t, "D", d.Key)
	assert.Equal(t, int64(5), d.DocCount)
	assert.Empty(t, d.Children)
}

func TestTermFacetCreator_NumberValuesLinkAsRanges(t *testing.T) {
	shoeSize := domain.Field{Name: "size", Type: domain.FieldTypeNumber, Level: domain.LevelVariant, Usage: []domain.FieldUsage{domain.UsageFacet}}
	cfgs := domain.FacetConfiguration{Facets: []domain.FacetConfig{{SourceField: "size", Type: domain.FacetTypeTerm, IsMultiSelect: true}}}
	c := NewTermFacetCreator(domain.NumberFacetData, []domain.Field{shoeSize}, cfgs, nil)
	aggs := engine.AggregationResults{
		"_" + domain.NumberFacetData: {Aggregations: engine.AggregationResults{
			"size": {Aggregations: engine.AggregationResults{
				aggValues: {Buckets: []engine.Bucket{{Key: "42", DocCount: 3}, {Key: "43", DocCount: 1}}},
			}},
		}},
	}
	fields := domain.MustFieldIndex(shoeSize)

	facets := c.CreateFacets(nil, aggs, params.NewLinkBuilder(&domain.InternalSearchParams{Limit: 12}))
	require.Len(t, facets, 1)
	link := facets[0].Entries[0].Entry().Link
	assert.Equal(t, "?size=42%2C42", link)

	query, err := url.ParseQuery(strings.TrimPrefix(link, "?"))
	require.NoError(t, err)
	p, err := params.Parse(query, fields)
	require.NoError(t, err)
	f, ok := p.FilterFor("size")
	require.True(t, ok)
	rng := f.(domain.NumberResultFilter)
	require.NotNil(t, rng.Lower)
	require.NotNil(t, rng.Upper)
	assert.Equal(t, 42.0, *rng.Lower)
	assert.Equal(t, 42.0, *rng.Upper)

	facets = c.CreateFacets(p.Filters, aggs, params.NewLinkBuilder(p))
	require.Len(t, facets, 1)
	entries := facets[0].Entries
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Entry().Selected)
	assert.False(t, entries[1].Entry().Selected)
	assert.Equal(t, "?size=43%2C43", entries[1].Entry().Link, "a second value replaces the range")
}

func TestCategoryFacetCreator_NoBuckets(t *testing.T) {
	c := NewCategoryFacetCreator(categoryField, domain.FacetConfig{SourceField: "category"}.WithDefaults(), nil)
	assert.Empty(t, c.CreateFacets(nil, engine.AggregationResults{}, params.NewLinkBuilder(&domain.InternalSearchParams{})))
}

func TestVariantFacetCreator(t *testing.T) {
	assert.Nil(t, NewVariantFacetCreator().BuildAggregation(&domain.InternalSearchParams{}))

	inner := NewTermFacetCreator(domain.TermFacetData, []domain.Field{colorField}, domain.FacetConfiguration{}, nil)
	agg := NewVariantFacetCreator(inner).BuildAggregation(&domain.InternalSearchParams{})
	require.NotNil(t, agg)
	assert.Equal(t, "_variants", agg.Name)
	assert.Equal(t, "variants", agg.Path)

	scoped := agg.Sub("_termFacetData")
	require.NotNil(t, scoped)
	assert.Equal(t, "variants.termFacetData", scoped.Path)
	values := scoped.Sub("color").Sub(aggValues)
	assert.Equal(t, "variants.termFacetData.value", values.Field)
	// Count correction stays anchored at the root document.
	assert.Equal(t, "", values.Sub(aggDocCount).Path)
}

func TestNestedFacetCountCorrector(t *testing.T) {
	c := NewNestedFacetCountCorrector(domain.Variants)
	values := &engine.Aggregation{Name: aggValues, Kind: engine.KindTerms}
	c.CorrectValueAggregation(values, []domain.ResultFilter{
		domain.TermResultFilter{Field: brandField, Values: []string{"nike"}},
	})
	assert.Nil(t, values.Sub(aggFiltered), "master filters need no correction")

	c.CorrectValueAggregation(values, []domain.ResultFilter{
		domain.TermResultFilter{Field: sizeField, Values: []string{"M"}},
	})
	filtered := values.Sub(aggFiltered)
	require.NotNil(t, filtered)
	assert.Equal(t, "variants", filtered.Path)
	assert.True(t, filtered.Absolute)

	b := engine.Bucket{DocCount: 7}
	assert.Equal(t, int64(7), c.CorrectedDocumentCount(b))
	b.Aggregations = engine.AggregationResults{aggDocCount: {DocCount: 4}}
	assert.Equal(t, int64(4), c.CorrectedDocumentCount(b))
	b.Aggregations[aggFiltered] = &engine.AggregationResult{Aggregations: engine.AggregationResults{
		aggScope: {Aggregations: engine.AggregationResults{aggDocCount: {DocCount: 2}}},
	}}
	assert.Equal(t, int64(2), c.CorrectedDocumentCount(b))
}

func TestIntervals(t *testing.T) {
	values := []numberCount{{1, 4}, {2, 1}, {3, 1}, {4, 1}, {5, 1}}
	groups := intervals(values, 2)
	require.Len(t, groups, 2)
	assert.Equal(t, []numberCount{{1, 4}}, groups[0])
	assert.Len(t, groups[1], 4)
}
