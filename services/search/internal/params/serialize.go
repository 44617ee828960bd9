package params

import (
	"strconv"
	"strings"

	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/domain"
)

// Serialize returns the parameter key and value that Parse turns back into
// an equivalent filter.
func Serialize(filter domain.ResultFilter) (key, value string) {
	switch f := filter.(type) {
	case domain.TermResultFilter:
		return f.Field.Name, strings.Join(f.Values, ValueDelimiter)
	case domain.PathResultFilter:
		return f.Field.Name, strings.Join(f.Paths, ValueDelimiter)
	case domain.NumberResultFilter:
		return f.Field.Name, FormatRange(f.Lower, f.Upper)
	default:
		return "", ""
	}
}

// FormatRange renders a number range in its parameter form. Open bounds are
// left empty.
func FormatRange(lower, upper *float64) string {
	return formatBound(lower) + ValueDelimiter + formatBound(upper)
}

func formatBound(b *float64) string {
	if b == nil {
		return ""
	}
	return strconv.FormatFloat(*b, 'f', -1, 64)
}

// SerializeSort renders a sorting in its parameter form.
func SerializeSort(s domain.Sorting) string {
	if s.Order == domain.SortDesc {
		return "-" + s.Field
	}
	return s.Field
}
