package params

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/SrinivasareddyGatla/open-commerce-search/pkg/errors"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/domain"
)

func testFields() *domain.FieldIndex {
	return domain.MustFieldIndex(
		domain.Field{Name: "title", Usage: []domain.FieldUsage{domain.UsageSearch, domain.UsageSort}},
		domain.Field{Name: "brand", Usage: []domain.FieldUsage{domain.UsageFacet}},
		domain.Field{Name: "price", Type: domain.FieldTypeNumber, Usage: []domain.FieldUsage{domain.UsageFacet, domain.UsageSort}, Level: domain.LevelVariant},
		domain.Field{Name: "category", Type: domain.FieldTypeCategory, Usage: []domain.FieldUsage{domain.UsageFacet}},
		domain.Field{Name: "description", Usage: []domain.FieldUsage{domain.UsageSearch}},
	)
}

func ptr(f float64) *float64 { return &f }

func TestParse_Defaults(t *testing.T) {
	p, err := Parse(url.Values{}, testFields())
	require.NoError(t, err)
	assert.Equal(t, DefaultLimit, p.Limit)
	assert.Zero(t, p.Offset)
	assert.Empty(t, p.Filters)
	assert.Empty(t, p.Sortings)
}

func TestParse_Paging(t *testing.T) {
	p, err := Parse(url.Values{"limit": {"500"}, "offset": {"24"}, "q": {"  red shoe "}}, testFields())
	require.NoError(t, err)
	assert.Equal(t, MaxLimit, p.Limit)
	assert.Equal(t, 24, p.Offset)
	assert.Equal(t, "red shoe", p.UserQuery)
}

func TestParse_PagingErrors(t *testing.T) {
	for _, raw := range []url.Values{
		{"limit": {"ten"}},
		{"limit": {"-1"}},
		{"offset": {"x"}},
		{"offset": {"-5"}},
	} {
		_, err := Parse(raw, testFields())
		require.Error(t, err, raw.Encode())
		assert.ErrorIs(t, err, apperrors.ErrInvalidParameter)
	}
}

func TestParse_TermFilter(t *testing.T) {
	p, err := Parse(url.Values{"brand": {"nike,,adidas", "puma"}}, testFields())
	require.NoError(t, err)
	require.Len(t, p.Filters, 1)

	f, ok := p.Filters[0].(domain.TermResultFilter)
	require.True(t, ok)
	assert.Equal(t, "brand", f.Field.Name)
	assert.Equal(t, []string{"nike", "adidas", "puma"}, f.Values)
}

func TestParse_NumberFilter(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		lower, upper *float64
	}{
		{"both bounds", "10,20", ptr(10), ptr(20)},
		{"open lower", ",20", nil, ptr(20)},
		{"open upper", "10.5,", ptr(10.5), nil},
		{"unparseable is open", "abc,20", nil, ptr(20)},
		{"both open", ",", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Parse(url.Values{"price": {tt.value}}, testFields())
			require.NoError(t, err)
			require.Len(t, p.Filters, 1)
			f := p.Filters[0].(domain.NumberResultFilter)
			assert.Equal(t, tt.lower, f.Lower)
			assert.Equal(t, tt.upper, f.Upper)
		})
	}
}

func TestParse_NumberFilterTokenCount(t *testing.T) {
	for _, v := range []string{"10", "1,2,3"} {
		_, err := Parse(url.Values{"price": {v}}, testFields())
		require.Error(t, err, v)
		assert.ErrorIs(t, err, apperrors.ErrInvalidParameter)
	}
}

func TestParse_PathFilter(t *testing.T) {
	p, err := Parse(url.Values{"category": {"Men/Shoes,Sale"}}, testFields())
	require.NoError(t, err)
	require.Len(t, p.Filters, 1)
	f := p.Filters[0].(domain.PathResultFilter)
	assert.Equal(t, []string{"Men/Shoes", "Sale"}, f.Paths)
}

func TestParse_IgnoresUnknownAndNonFacetKeys(t *testing.T) {
	p, err := Parse(url.Values{"description": {"x"}, "utm_source": {"mail"}}, testFields())
	require.NoError(t, err)
	assert.Empty(t, p.Filters)
}

func TestParse_Sort(t *testing.T) {
	p, err := Parse(url.Values{"sort": {"-price,brand,title,unknown,price"}}, testFields())
	require.NoError(t, err)
	assert.Equal(t, []domain.Sorting{
		{Field: "price", Order: domain.SortDesc},
		{Field: "title", Order: domain.SortAsc},
	}, p.Sortings)
}

func TestSerialize_RoundTrip(t *testing.T) {
	fields := testFields()
	raw := url.Values{
		"brand":    {"nike,adidas"},
		"price":    {",99.9"},
		"category": {"Men/Shoes"},
	}
	p, err := Parse(raw, fields)
	require.NoError(t, err)

	again := url.Values{}
	for _, f := range p.Filters {
		k, v := Serialize(f)
		again.Set(k, v)
	}
	p2, err := Parse(again, fields)
	require.NoError(t, err)
	assert.ElementsMatch(t, p.Filters, p2.Filters)
}

func TestLinkBuilder(t *testing.T) {
	fields := testFields()
	p, err := Parse(url.Values{
		"q":      {"shoe"},
		"brand":  {"nike"},
		"price":  {"10,20"},
		"offset": {"12"},
	}, fields)
	require.NoError(t, err)
	lb := NewLinkBuilder(p)

	t.Run("current link keeps offset", func(t *testing.T) {
		v := mustQuery(t, lb.Link())
		assert.Equal(t, "12", v.Get("offset"))
		assert.Equal(t, "shoe", v.Get("q"))
	})

	t.Run("with filter replaces", func(t *testing.T) {
		v := mustQuery(t, lb.WithFilterAsLink("brand", false, "adidas"))
		assert.Equal(t, "adidas", v.Get("brand"))
		assert.Empty(t, v.Get("offset"))
	})

	t.Run("with filter multi select adds", func(t *testing.T) {
		v := mustQuery(t, lb.WithFilterAsLink("brand", true, "adidas"))
		assert.Equal(t, "nike,adidas", v.Get("brand"))
	})

	t.Run("without filter removes", func(t *testing.T) {
		v := mustQuery(t, lb.WithoutFilterAsLink("brand", "nike"))
		_, has := v["brand"]
		assert.False(t, has)
		assert.Equal(t, "10,20", v.Get("price"))
	})

	t.Run("without range removes it", func(t *testing.T) {
		v := mustQuery(t, lb.WithoutFilterAsLink("price", "10,20"))
		_, has := v["price"]
		assert.False(t, has)
	})

	t.Run("selection", func(t *testing.T) {
		assert.True(t, lb.IsFilterSelected("brand", "nike"))
		assert.False(t, lb.IsFilterSelected("brand", "adidas"))
		assert.True(t, lb.IsFilterSelected("price", "10,20"))
		assert.True(t, lb.HasFilter("price"))
		assert.False(t, lb.HasFilter("category"))
	})

	t.Run("sort link", func(t *testing.T) {
		s := domain.Sorting{Field: "price", Order: domain.SortDesc}
		v := mustQuery(t, lb.WithSortAsLink(s))
		assert.Equal(t, "-price", v.Get("sort"))
		assert.False(t, lb.IsSortSelected(s))
	})
}

func mustQuery(t *testing.T, link string) url.Values {
	t.Helper()
	require.True(t, len(link) > 0 && link[0] == '?', link)
	v, err := url.ParseQuery(link[1:])
	require.NoError(t, err)
	return v
}
