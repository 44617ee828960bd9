package domain

// SortOrder is the direction of a sorting.
type SortOrder string

const (
	SortAsc  SortOrder = "ASC"
	SortDesc SortOrder = "DESC"
)

// Sorting is one requested sort criterion.
type Sorting struct {
	Field string    `json:"field"`
	Order SortOrder `json:"sortOrder"`
}

// ResultFilter is one of TermResultFilter, NumberResultFilter or
// PathResultFilter.
type ResultFilter interface {
	FilterField() Field
	resultFilter()
}

// TermResultFilter matches documents having any of Values.
type TermResultFilter struct {
	Field  Field
	Values []string
}

// NumberResultFilter matches documents with a value in [Lower, Upper].
// A nil bound is open.
type NumberResultFilter struct {
	Field Field
	Lower *float64
	Upper *float64
}

// PathResultFilter matches documents assigned to any of Paths or one of
// their descendants. Each path is slash-delimited.
type PathResultFilter struct {
	Field Field
	Paths []string
}

func (f TermResultFilter) FilterField() Field   { return f.Field }
func (f NumberResultFilter) FilterField() Field { return f.Field }
func (f PathResultFilter) FilterField() Field   { return f.Field }

func (TermResultFilter) resultFilter()   {}
func (NumberResultFilter) resultFilter() {}
func (PathResultFilter) resultFilter()   {}

// InternalSearchParams is the validated form of one search request. It is
// built per request and never shared.
type InternalSearchParams struct {
	UserQuery string
	Limit     int
	Offset    int
	Sortings  []Sorting
	Filters   []ResultFilter
}

// FilterFor returns the active filter on field name.
func (p *InternalSearchParams) FilterFor(name string) (ResultFilter, bool) {
	for _, f := range p.Filters {
		if f.FilterField().Name == name {
			return f, true
		}
	}
	return nil, false
}

// SortingFor returns the active sorting on field name.
func (p *InternalSearchParams) SortingFor(name string) (Sorting, bool) {
	for _, s := range p.Sortings {
		if s.Field == name {
			return s, true
		}
	}
	return Sorting{}, false
}
