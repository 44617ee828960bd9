package engine

// Query is a node of the backend-neutral query tree. Field names are full
// dotted paths from the document root.
type Query interface {
	isQuery()
}

// MatchAll matches every document.
type MatchAll struct{}

// Term matches documents having any of Values in Field.
type Term struct {
	Field  string
	Values []string
}

// Range matches numeric values within the inclusive bounds. A nil bound is
// open.
type Range struct {
	Field string
	Gte   *float64
	Lte   *float64
}

// Prefix matches string values starting with Value.
type Prefix struct {
	Field string
	Value string
}

// Bool combines queries. With neither Must nor Filter present at least
// MinimumShouldMatch (default 1) of Should must match.
type Bool struct {
	Must               []Query
	Should             []Query
	Filter             []Query
	MustNot            []Query
	MinimumShouldMatch int
}

// InnerHits asks for the matching nested objects to be returned.
type InnerHits struct {
	Name string
	Size int
}

// Nested matches documents having at least one object under Path matching
// Query.
type Nested struct {
	Path      string
	Query     Query
	InnerHits *InnerHits
}

// WeightedField is a text field with a boost.
type WeightedField struct {
	Field string
	Boost float64
}

// MultiMatch is a full text query over several fields.
type MultiMatch struct {
	Query     string
	Fields    []WeightedField
	Type      string
	Operator  string
	Fuzziness string
	Name      string
}

// ScoreFunction modifies the score of matching documents.
type ScoreFunction struct {
	Filter   Query
	Field    string
	Factor   float64
	Modifier string
	Missing  float64
	Weight   float64
}

// FunctionScore rescoring wrapper.
type FunctionScore struct {
	Query     Query
	Functions []ScoreFunction
	BoostMode string
	ScoreMode string
}

func (MatchAll) isQuery()      {}
func (Term) isQuery()          {}
func (Range) isQuery()         {}
func (Prefix) isQuery()        {}
func (Bool) isQuery()          {}
func (Nested) isQuery()        {}
func (MultiMatch) isQuery()    {}
func (FunctionScore) isQuery() {}

// PrefixFields rewrites every field and nested path in q below prefix.
func PrefixFields(q Query, prefix string) Query {
	if q == nil || prefix == "" {
		return q
	}
	p := func(f string) string { return prefix + "." + f }
	list := func(qs []Query) []Query {
		if qs == nil {
			return nil
		}
		out := make([]Query, len(qs))
		for i, sub := range qs {
			out[i] = PrefixFields(sub, prefix)
		}
		return out
	}
	switch q := q.(type) {
	case Term:
		return Term{Field: p(q.Field), Values: q.Values}
	case Range:
		return Range{Field: p(q.Field), Gte: q.Gte, Lte: q.Lte}
	case Prefix:
		return Prefix{Field: p(q.Field), Value: q.Value}
	case Bool:
		return Bool{
			Must:               list(q.Must),
			Should:             list(q.Should),
			Filter:             list(q.Filter),
			MustNot:            list(q.MustNot),
			MinimumShouldMatch: q.MinimumShouldMatch,
		}
	case Nested:
		return Nested{Path: p(q.Path), Query: PrefixFields(q.Query, prefix), InnerHits: q.InnerHits}
	case MultiMatch:
		fields := make([]WeightedField, len(q.Fields))
		for i, f := range q.Fields {
			fields[i] = WeightedField{Field: p(f.Field), Boost: f.Boost}
		}
		q.Fields = fields
		return q
	case FunctionScore:
		fns := make([]ScoreFunction, len(q.Functions))
		for i, fn := range q.Functions {
			if fn.Field != "" {
				fn.Field = p(fn.Field)
			}
			fn.Filter = PrefixFields(fn.Filter, prefix)
			fns[i] = fn
		}
		return FunctionScore{Query: PrefixFields(q.Query, prefix), Functions: fns, BoostMode: q.BoostMode, ScoreMode: q.ScoreMode}
	default:
		return q
	}
}
