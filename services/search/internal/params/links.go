package params

import (
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/domain"
)

// LinkBuilder produces relative links derived from one request's params.
// Links that change filters or sorting drop the offset.
type LinkBuilder struct {
	params *domain.InternalSearchParams
	base   url.Values
}

// NewLinkBuilder captures p in its canonical parameter form.
func NewLinkBuilder(p *domain.InternalSearchParams) *LinkBuilder {
	base := url.Values{}
	if p.UserQuery != "" {
		base.Set(KeyQuery, p.UserQuery)
	}
	if p.Limit != DefaultLimit {
		base.Set(KeyLimit, strconv.Itoa(p.Limit))
	}
	if len(p.Sortings) > 0 {
		sorts := make([]string, len(p.Sortings))
		for i, s := range p.Sortings {
			sorts[i] = SerializeSort(s)
		}
		base.Set(KeySort, strings.Join(sorts, ValueDelimiter))
	}
	for _, f := range p.Filters {
		k, v := Serialize(f)
		base.Set(k, v)
	}
	return &LinkBuilder{params: p, base: base}
}

func (b *LinkBuilder) clone() url.Values {
	out := make(url.Values, len(b.base))
	for k, v := range b.base {
		out[k] = slices.Clone(v)
	}
	return out
}

func encode(v url.Values) string {
	return "?" + v.Encode()
}

// Link returns the link of the current request including its offset.
func (b *LinkBuilder) Link() string {
	return b.WithOffsetAsLink(b.params.Offset)
}

// WithOffsetAsLink returns the current link at another offset.
func (b *LinkBuilder) WithOffsetAsLink(offset int) string {
	v := b.clone()
	if offset > 0 {
		v.Set(KeyOffset, strconv.Itoa(offset))
	}
	return encode(v)
}

// WithFilterAsLink sets the filter on field to values. With multiSelect the
// values are added to the ones already selected instead.
func (b *LinkBuilder) WithFilterAsLink(field string, multiSelect bool, values ...string) string {
	v := b.clone()
	next := values
	if multiSelect {
		next = append(b.selected(field), values...)
		next = dedupe(next)
	}
	v.Set(field, strings.Join(next, ValueDelimiter))
	return encode(v)
}

// WithoutFilterAsLink removes values from the filter on field, or the whole
// filter when no values are given or none remain.
func (b *LinkBuilder) WithoutFilterAsLink(field string, values ...string) string {
	v := b.clone()
	if len(values) == 0 {
		v.Del(field)
		return encode(v)
	}
	remaining := slices.DeleteFunc(b.selected(field), func(s string) bool {
		return slices.Contains(values, s)
	})
	if len(remaining) == 0 || isRange(b.params, field) {
		v.Del(field)
	} else {
		v.Set(field, strings.Join(remaining, ValueDelimiter))
	}
	return encode(v)
}

// IsFilterSelected reports whether value is part of the active filter on
// field. Number ranges are compared in their parameter form.
func (b *LinkBuilder) IsFilterSelected(field, value string) bool {
	return slices.Contains(b.selected(field), value)
}

// HasFilter reports whether any filter is active on field.
func (b *LinkBuilder) HasFilter(field string) bool {
	_, ok := b.params.FilterFor(field)
	return ok
}

// WithSortAsLink replaces the sorting.
func (b *LinkBuilder) WithSortAsLink(s domain.Sorting) string {
	v := b.clone()
	v.Set(KeySort, SerializeSort(s))
	return encode(v)
}

// IsSortSelected reports whether s is the active primary sorting.
func (b *LinkBuilder) IsSortSelected(s domain.Sorting) bool {
	return len(b.params.Sortings) > 0 && b.params.Sortings[0] == s
}

func (b *LinkBuilder) selected(field string) []string {
	f, ok := b.params.FilterFor(field)
	if !ok {
		return nil
	}
	switch f := f.(type) {
	case domain.TermResultFilter:
		return slices.Clone(f.Values)
	case domain.PathResultFilter:
		return slices.Clone(f.Paths)
	case domain.NumberResultFilter:
		return []string{FormatRange(f.Lower, f.Upper)}
	}
	return nil
}

func isRange(p *domain.InternalSearchParams, field string) bool {
	f, ok := p.FilterFor(field)
	if !ok {
		return false
	}
	_, isNum := f.(domain.NumberResultFilter)
	return isNum
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := values[:0]
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
