// Package indexer converts products into index documents and runs import
// sessions that build a new index behind an alias.
package indexer

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/slug"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/domain"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/engine"
)

// pathDelimiter joins category names into a path.
const pathDelimiter = "/"

// Converter routes the data of products into the index document layout
// according to the field configuration. Values of unknown fields are
// dropped.
type Converter struct {
	fields   *domain.FieldIndex
	category *domain.Field
}

// NewConverter creates a converter. The first category field receives the
// category paths of documents.
func NewConverter(fields *domain.FieldIndex) *Converter {
	c := &Converter{fields: fields}
	for _, f := range fields.All() {
		if f.Type == domain.FieldTypeCategory {
			c.category = &f
			break
		}
	}
	return c
}

type item struct {
	search  map[string]any
	result  map[string]any
	sort    map[string][]any
	scores  map[string]any
	terms   []any
	numbers []any
	paths   []any
	seen    map[string]bool
}

func newItem() *item {
	return &item{
		search: map[string]any{},
		result: map[string]any{},
		sort:   map[string][]any{},
		scores: map[string]any{},
		seen:   map[string]bool{},
	}
}

// Convert builds the index document of p. Sort values of variants are
// collected on the master so masters sort by their variants.
func (c *Converter) Convert(p domain.Product) engine.IndexDocument {
	master := newItem()
	c.extract(p.Document, master, false)

	variants := make([]any, 0, len(p.Variants))
	for _, v := range p.Variants {
		vi := newItem()
		c.extract(v.Document, vi, true)
		for name, values := range vi.sort {
			master.sort[name] = append(master.sort[name], values...)
		}
		src := vi.source(false)
		src[domain.IndexID] = v.ID
		variants = append(variants, src)
	}

	src := master.source(true)
	if len(variants) > 0 {
		src[domain.Variants] = variants
	}
	return engine.IndexDocument{ID: p.ID, Source: src}
}

func (c *Converter) extract(doc domain.Document, it *item, isVariant bool) {
	onLevel := func(f domain.Field) bool {
		if isVariant {
			return f.OnVariant()
		}
		return f.OnMaster()
	}

	for _, key := range sortedKeys(doc.Data) {
		f, ok := c.fields.Match(key)
		if !ok || !onLevel(f) {
			continue
		}
		c.set(it, f, doc.Data[key])
	}

	for _, attr := range doc.Attributes {
		f, ok := c.fields.Match(attr.Code)
		if !ok || attr.Code == "" {
			f, ok = c.fields.Match(attr.Label)
		}
		if !ok || !onLevel(f) {
			continue
		}
		c.set(it, f, attr.Value)
	}

	if c.category != nil && onLevel(*c.category) && len(doc.CategoryPaths) > 0 {
		c.setCategories(it, *c.category, doc.CategoryPaths)
	}
}

func (c *Converter) set(it *item, f domain.Field, value any) {
	if f.Type == domain.FieldTypeCategory {
		var paths [][]domain.Category
		for _, s := range stringValues(value) {
			var path []domain.Category
			for _, name := range strings.Split(s, pathDelimiter) {
				if name = strings.TrimSpace(name); name != "" {
					path = append(path, domain.Category{Name: name})
				}
			}
			if len(path) > 0 {
				paths = append(paths, path)
			}
		}
		c.setCategories(it, f, paths)
		return
	}

	if f.HasUsage(domain.UsageResult) {
		it.result[f.Name] = value
	}
	if f.HasUsage(domain.UsageSearch) {
		it.search[f.Name] = strings.Join(stringValues(value), " ")
	}
	if f.HasUsage(domain.UsageScore) {
		if nums := numberValues(value); len(nums) > 0 {
			it.scores[f.Name] = nums[0]
		}
	}
	if f.HasUsage(domain.UsageSort) {
		if f.Type == domain.FieldTypeNumber {
			for _, n := range numberValues(value) {
				it.sort[f.Name] = append(it.sort[f.Name], n)
			}
		} else {
			for _, s := range stringValues(value) {
				it.sort[f.Name] = append(it.sort[f.Name], s)
			}
		}
	}
	if f.HasUsage(domain.UsageFacet) {
		if f.Type == domain.FieldTypeNumber {
			for _, n := range numberValues(value) {
				it.numbers = append(it.numbers, map[string]any{domain.FacetDataName: f.Name, domain.FacetDataValue: n})
			}
		} else {
			for _, s := range stringValues(value) {
				it.terms = append(it.terms, map[string]any{domain.FacetDataName: f.Name, domain.FacetDataValue: s})
			}
		}
	}
}

// setCategories indexes every prefix of every path so filtering on a path
// also matches its descendants.
func (c *Converter) setCategories(it *item, f domain.Field, paths [][]domain.Category) {
	var full, names []string
	for _, path := range paths {
		segments := make([]string, 0, len(path))
		for _, cat := range path {
			segments = append(segments, cat.Name)
			names = append(names, cat.Name)

			prefix := strings.Join(segments, pathDelimiter)
			key := f.Name + "\x00" + prefix
			if it.seen[key] {
				continue
			}
			it.seen[key] = true
			id := cat.ID
			if id == "" {
				id = slug.Path(segments...)
			}
			it.paths = append(it.paths, map[string]any{
				domain.FacetDataName:  f.Name,
				domain.FacetDataValue: prefix,
				domain.FacetDataID:    id,
			})
		}
		full = append(full, strings.Join(segments, pathDelimiter))
	}

	if f.HasUsage(domain.UsageResult) {
		it.result[f.Name] = full
	}
	if f.HasUsage(domain.UsageSearch) {
		it.search[f.Name] = strings.Join(names, " ")
	}
	if !f.HasUsage(domain.UsageFacet) {
		it.paths = slices.DeleteFunc(it.paths, func(e any) bool {
			return e.(map[string]any)[domain.FacetDataName] == f.Name
		})
	}
}

func (it *item) source(withSort bool) map[string]any {
	src := map[string]any{}
	put := func(key string, m map[string]any) {
		if len(m) > 0 {
			src[key] = m
		}
	}
	put(domain.SearchData, it.search)
	put(domain.ResultData, it.result)
	put(domain.Scores, it.scores)
	if withSort && len(it.sort) > 0 {
		sortData := make(map[string]any, len(it.sort))
		for name, values := range it.sort {
			sorted := slices.Clone(values)
			slices.SortStableFunc(sorted, compareSortValues)
			sortData[name] = sorted
		}
		src[domain.SortData] = sortData
	}
	if len(it.terms) > 0 {
		src[domain.TermFacetData] = it.terms
	}
	if len(it.numbers) > 0 {
		src[domain.NumberFacetData] = it.numbers
	}
	if len(it.paths) > 0 {
		src[domain.PathFacetData] = it.paths
	}
	return src
}

func compareSortValues(a, b any) int {
	fa, aNum := a.(float64)
	fb, bNum := b.(float64)
	switch {
	case aNum && bNum:
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case aNum:
		return -1
	case bNum:
		return 1
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// stringValues flattens v into its non-empty string forms.
func stringValues(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []string:
		return slices.DeleteFunc(slices.Clone(t), func(s string) bool { return s == "" })
	case []any:
		var out []string
		for _, e := range t {
			out = append(out, stringValues(e)...)
		}
		return out
	case float64:
		return []string{strconv.FormatFloat(t, 'f', -1, 64)}
	case json.Number:
		return []string{t.String()}
	case bool:
		return []string{strconv.FormatBool(t)}
	default:
		return []string{fmt.Sprint(t)}
	}
}

// numberValues extracts the numeric values of v. Unparseable values are
// skipped.
func numberValues(v any) []float64 {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		return []float64{t}
	case float32:
		return []float64{float64(t)}
	case int:
		return []float64{float64(t)}
	case int64:
		return []float64{float64(t)}
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return []float64{f}
		}
		return nil
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return []float64{f}
		}
		return nil
	case []any:
		var out []float64
		for _, e := range t {
			out = append(out, numberValues(e)...)
		}
		return out
	case []float64:
		return slices.Clone(t)
	}
	return nil
}
