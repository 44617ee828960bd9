package querybuilder

import (
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/domain"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/engine"
)

// WithScoring wraps q into a function score built from cfg. An empty
// configuration returns q unchanged.
func WithScoring(q engine.Query, cfg domain.ScoringConfiguration) engine.Query {
	if cfg.IsEmpty() {
		return q
	}
	fns := make([]engine.ScoreFunction, 0, len(cfg.Functions))
	for _, f := range cfg.Functions {
		fn := engine.ScoreFunction{Weight: f.Weight}
		if f.Type == domain.ScoreFieldValueFactor && f.Field != "" {
			fn.Field = dataField(domain.Scores, f.Field)
			fn.Factor = f.Factor
			fn.Modifier = f.Modifier
			fn.Missing = f.Missing
		}
		fns = append(fns, fn)
	}
	return engine.FunctionScore{
		Query:     q,
		Functions: fns,
		BoostMode: cfg.BoostMode,
		ScoreMode: cfg.ScoreMode,
	}
}

// SortFields maps sortings onto the sort data. Multi-valued sort data is
// compared by its minimum ascending and its maximum descending.
func SortFields(sortings []domain.Sorting) []engine.SortField {
	out := make([]engine.SortField, 0, len(sortings))
	for _, s := range sortings {
		sf := engine.SortField{Field: dataField(domain.SortData, s.Field), Mode: "min"}
		if s.Order == domain.SortDesc {
			sf.Desc = true
			sf.Mode = "max"
		}
		out = append(out, sf)
	}
	return out
}
