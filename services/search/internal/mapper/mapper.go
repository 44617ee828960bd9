// Package mapper turns engine hits into result documents.
package mapper

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/domain"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/engine"
)

// Values of the synthesized sort prefix fields.
const (
	PrefixFrom = "{from}"
	PrefixTo   = "{to}"

	prefixSuffix = "_prefix"
)

// ResultMapper maps hits using one variant picking strategy.
type ResultMapper struct {
	strategy VariantPickingStrategy
}

// New creates a mapper. A nil strategy means PickIfSingleHit.
func New(strategy VariantPickingStrategy) *ResultMapper {
	if strategy == nil {
		strategy = PickIfSingleHit{}
	}
	return &ResultMapper{strategy: strategy}
}

// NeedsTotalCount reports whether searches must request the number of all
// variants per hit.
func (m *ResultMapper) NeedsTotalCount() bool {
	return m.strategy.NeedsTotalCount()
}

// MapHit builds the result document of hit. The master's result data is
// copied first and the picked variant's result data overwrites it.
// Fields used for sorting whose sort data holds several distinct values
// are set to the first value in sort order and get a "{field}_prefix"
// companion of "{from}" or "{to}".
func (m *ResultMapper) MapHit(hit engine.Hit, sortings []domain.Sorting) domain.ResultHit {
	doc := domain.Document{ID: hit.ID, Data: map[string]any{}}
	maps.Copy(doc.Data, mapAt(hit.Source, domain.ResultData))

	if variants, ok := hit.InnerHits[domain.InnerHitsVariants]; ok && len(variants.Hits) > 0 {
		var all int64
		if m.strategy.NeedsTotalCount() {
			all = hit.InnerHits[domain.InnerHitsAll].Total
		}
		if picked, ok := m.strategy.Pick(variants, all); ok {
			maps.Copy(doc.Data, mapAt(picked.Source, domain.ResultData))
		}
	}

	addSortPrefixes(doc.Data, mapAt(hit.Source, domain.SortData), sortings)

	return domain.ResultHit{
		Index:          hit.Index,
		Document:       doc,
		MatchedQueries: hit.MatchedQueries,
	}
}

func addSortPrefixes(data, sortData map[string]any, sortings []domain.Sorting) {
	if len(sortData) == 0 {
		return
	}
	for _, s := range sortings {
		if _, shown := data[s.Field]; !shown {
			continue
		}
		values, ok := sortData[s.Field].([]any)
		if !ok || distinct(values) < 2 {
			continue
		}
		sorted := slices.Clone(values)
		slices.SortStableFunc(sorted, compareSortValues)
		prefix := PrefixFrom
		if s.Order == domain.SortDesc {
			slices.Reverse(sorted)
			prefix = PrefixTo
		}
		data[s.Field] = sorted[0]
		data[s.Field+prefixSuffix] = prefix
	}
}

func distinct(values []any) int {
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		seen[fmt.Sprint(v)] = true
	}
	return len(seen)
}

func compareSortValues(a, b any) int {
	fa, aNum := number(a)
	fb, bNum := number(b)
	if aNum && bNum {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}

func mapAt(src map[string]any, key string) map[string]any {
	m, _ := src[key].(map[string]any)
	return m
}

// MapToOriginalDocument rebuilds a product from its index source. Variant
// ids come from their "id" key or are derived from the master id and
// their position.
func MapToOriginalDocument(id string, source map[string]any) domain.Product {
	p := domain.Product{Document: domain.Document{ID: id, Data: map[string]any{}}}
	maps.Copy(p.Data, mapAt(source, domain.ResultData))

	variants, _ := source[domain.Variants].([]any)
	for i, raw := range variants {
		vs, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		v := domain.Variant{Document: domain.Document{ID: fmt.Sprintf("%s_%d", id, i), Data: map[string]any{}}}
		if vid, ok := vs[domain.IndexID]; ok && fmt.Sprint(vid) != "" {
			v.ID = fmt.Sprint(vid)
		}
		maps.Copy(v.Data, mapAt(vs, domain.ResultData))
		p.Variants = append(p.Variants, v)
	}
	return p
}
