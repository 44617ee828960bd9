package elasticsearch

import (
	"strconv"
	"strings"

	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/engine"
)

// searchBody renders req as a search request body.
func searchBody(req *engine.Request) map[string]any {
	body := map[string]any{
		"query":            queryDSL(req.Query),
		"from":             req.From,
		"size":             req.Size,
		"track_total_hits": true,
	}
	if req.PostFilter != nil {
		body["post_filter"] = queryDSL(req.PostFilter)
	}
	if len(req.Aggregations) > 0 {
		body["aggs"] = aggsDSL(req.Aggregations)
	}
	if len(req.Sort) > 0 {
		body["sort"] = sortDSL(req.Sort)
	}
	return body
}

// queryDSL constructs the query DSL of one query node.
func queryDSL(q engine.Query) map[string]any {
	switch q := q.(type) {
	case nil, engine.MatchAll:
		return map[string]any{"match_all": map[string]any{}}

	case engine.Term:
		return map[string]any{"terms": map[string]any{q.Field: q.Values}}

	case engine.Range:
		bounds := map[string]any{}
		if q.Gte != nil {
			bounds["gte"] = *q.Gte
		}
		if q.Lte != nil {
			bounds["lte"] = *q.Lte
		}
		return map[string]any{"range": map[string]any{q.Field: bounds}}

	case engine.Prefix:
		return map[string]any{"prefix": map[string]any{q.Field: q.Value}}

	case engine.Bool:
		b := map[string]any{}
		for key, list := range map[string][]engine.Query{
			"must":     q.Must,
			"should":   q.Should,
			"filter":   q.Filter,
			"must_not": q.MustNot,
		} {
			if len(list) > 0 {
				b[key] = queryList(list)
			}
		}
		if q.MinimumShouldMatch > 0 {
			b["minimum_should_match"] = q.MinimumShouldMatch
		}
		return map[string]any{"bool": b}

	case engine.Nested:
		n := map[string]any{
			"path":       q.Path,
			"query":      queryDSL(q.Query),
			"score_mode": "max",
		}
		if q.InnerHits != nil {
			n["inner_hits"] = map[string]any{"name": q.InnerHits.Name, "size": q.InnerHits.Size}
		}
		return map[string]any{"nested": n}

	case engine.MultiMatch:
		fields := make([]string, 0, len(q.Fields))
		for _, f := range q.Fields {
			if f.Boost != 0 && f.Boost != 1 {
				fields = append(fields, f.Field+"^"+strconv.FormatFloat(f.Boost, 'f', -1, 64))
			} else {
				fields = append(fields, f.Field)
			}
		}
		mm := map[string]any{"query": q.Query, "fields": fields}
		if q.Type != "" {
			mm["type"] = q.Type
		}
		if q.Operator != "" {
			mm["operator"] = strings.ToLower(q.Operator)
		}
		if q.Fuzziness != "" && !strings.HasPrefix(q.Type, "phrase") && q.Type != "cross_fields" {
			mm["fuzziness"] = q.Fuzziness
		}
		if q.Name != "" {
			mm["_name"] = q.Name
		}
		return map[string]any{"multi_match": mm}

	case engine.FunctionScore:
		fns := make([]map[string]any, 0, len(q.Functions))
		for _, f := range q.Functions {
			fn := map[string]any{}
			if f.Filter != nil {
				fn["filter"] = queryDSL(f.Filter)
			}
			if f.Field != "" {
				fvf := map[string]any{"field": f.Field, "missing": f.Missing}
				if f.Factor != 0 {
					fvf["factor"] = f.Factor
				}
				if f.Modifier != "" {
					fvf["modifier"] = f.Modifier
				}
				fn["field_value_factor"] = fvf
			}
			if f.Weight != 0 {
				fn["weight"] = f.Weight
			} else if f.Field == "" {
				fn["weight"] = 1
			}
			fns = append(fns, fn)
		}
		fs := map[string]any{"query": queryDSL(q.Query), "functions": fns}
		if q.BoostMode != "" {
			fs["boost_mode"] = q.BoostMode
		}
		if q.ScoreMode != "" {
			fs["score_mode"] = q.ScoreMode
		}
		return map[string]any{"function_score": fs}
	}
	return map[string]any{"match_none": map[string]any{}}
}

func queryList(qs []engine.Query) []map[string]any {
	out := make([]map[string]any, len(qs))
	for i, q := range qs {
		out[i] = queryDSL(q)
	}
	return out
}

func aggsDSL(aggs []*engine.Aggregation) map[string]any {
	out := make(map[string]any, len(aggs))
	for _, a := range aggs {
		out[a.Name] = aggDSL(a)
	}
	return out
}

func aggDSL(a *engine.Aggregation) map[string]any {
	body := map[string]any{}
	switch a.Kind {
	case engine.KindTerms:
		t := map[string]any{"field": a.Field}
		if a.Size > 0 {
			t["size"] = a.Size
		}
		switch a.Order {
		case engine.OrderKeyAsc:
			t["order"] = map[string]string{"_key": "asc"}
		case engine.OrderKeyDesc:
			t["order"] = map[string]string{"_key": "desc"}
		case engine.OrderCount:
			t["order"] = map[string]string{"_count": "desc"}
		}
		body["terms"] = t
	case engine.KindNested:
		body["nested"] = map[string]any{"path": a.Path}
	case engine.KindReverseNested:
		rn := map[string]any{}
		if a.Path != "" {
			rn["path"] = a.Path
		}
		body["reverse_nested"] = rn
	case engine.KindFilter:
		body["filter"] = queryDSL(a.Filter)
	case engine.KindStats:
		body["stats"] = map[string]any{"field": a.Field}
	}
	if len(a.Aggregations) > 0 {
		body["aggs"] = aggsDSL(a.Aggregations)
	}
	return body
}

func sortDSL(fields []engine.SortField) []map[string]any {
	out := make([]map[string]any, 0, len(fields)+1)
	for _, f := range fields {
		order := "asc"
		if f.Desc {
			order = "desc"
		}
		opts := map[string]any{"order": order}
		if f.Mode != "" {
			opts["mode"] = f.Mode
		}
		if f.Field != "_score" {
			opts["missing"] = "_last"
		}
		out = append(out, map[string]any{f.Field: opts})
	}
	return append(out, map[string]any{"_score": map[string]any{"order": "desc"}})
}
