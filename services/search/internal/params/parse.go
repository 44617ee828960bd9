// Package params turns raw query parameters into validated search params and
// back into links.
package params

import (
	"net/url"
	"strconv"
	"strings"

	apperrors "github.com/SrinivasareddyGatla/open-commerce-search/pkg/errors"
	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/pagination"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/domain"
)

// Reserved parameter names. Every other key is treated as a filter.
const (
	KeyQuery  = "q"
	KeyLimit  = pagination.KeyLimit
	KeyOffset = pagination.KeyOffset
	KeySort   = "sort"
)

// ValueDelimiter separates multiple values of one parameter.
const ValueDelimiter = ","

// PathDelimiter separates the segments of a category path.
const PathDelimiter = "/"

const (
	DefaultLimit = 12
	MaxLimit     = 100
)

// Parse validates raw against the field index. Only facet fields can be
// filtered on and only sort fields sorted by; other keys are ignored.
func Parse(raw url.Values, fields *domain.FieldIndex) (*domain.InternalSearchParams, error) {
	page, err := pagination.FromQuery(raw, DefaultLimit, MaxLimit)
	if err != nil {
		return nil, err
	}
	p := &domain.InternalSearchParams{
		UserQuery: strings.TrimSpace(raw.Get(KeyQuery)),
		Limit:     page.Limit,
		Offset:    page.Offset,
	}

	p.Sortings = parseSortings(raw[KeySort], fields)

	for _, field := range fields.ByUsage(domain.UsageFacet) {
		values, ok := raw[field.Name]
		if !ok {
			continue
		}
		filter, err := parseFilter(field, values)
		if err != nil {
			return nil, err
		}
		if filter != nil {
			p.Filters = append(p.Filters, filter)
		}
	}
	return p, nil
}

func parseFilter(field domain.Field, raw []string) (domain.ResultFilter, error) {
	switch field.Type {
	case domain.FieldTypeCategory:
		paths := splitValues(raw)
		if len(paths) == 0 {
			return nil, nil
		}
		return domain.PathResultFilter{Field: field, Paths: paths}, nil

	case domain.FieldTypeNumber:
		if len(raw) == 0 || raw[0] == "" {
			return nil, nil
		}
		tokens := strings.Split(raw[0], ValueDelimiter)
		if len(tokens) != 2 {
			return nil, apperrors.InvalidParameter(field.Name, "expected a range of the form 'lower,upper'")
		}
		return domain.NumberResultFilter{
			Field: field,
			Lower: parseBound(tokens[0]),
			Upper: parseBound(tokens[1]),
		}, nil

	default:
		values := splitValues(raw)
		if len(values) == 0 {
			return nil, nil
		}
		return domain.TermResultFilter{Field: field, Values: values}, nil
	}
}

// parseBound returns nil for an empty or unparseable bound.
func parseBound(token string) *float64 {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return nil
	}
	return &v
}

func splitValues(raw []string) []string {
	var out []string
	for _, r := range raw {
		for _, v := range strings.Split(r, ValueDelimiter) {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func parseSortings(raw []string, fields *domain.FieldIndex) []domain.Sorting {
	var out []domain.Sorting
	seen := make(map[string]bool)
	for _, token := range splitValues(raw) {
		order := domain.SortAsc
		if strings.HasPrefix(token, "-") {
			order = domain.SortDesc
			token = token[1:]
		}
		field, ok := fields.Lookup(token)
		if !ok || !field.HasUsage(domain.UsageSort) || seen[token] {
			continue
		}
		seen[token] = true
		out = append(out, domain.Sorting{Field: token, Order: order})
	}
	return out
}
