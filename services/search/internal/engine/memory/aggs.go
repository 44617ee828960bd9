package memory

import (
	"math"
	"sort"

	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/engine"
)

const defaultTermsSize = 10

func aggregate(nodes []*node, aggs []*engine.Aggregation) engine.AggregationResults {
	if len(aggs) == 0 {
		return nil
	}
	out := make(engine.AggregationResults, len(aggs))
	for _, a := range aggs {
		out[a.Name] = aggregateOne(nodes, a)
	}
	return out
}

func aggregateOne(nodes []*node, a *engine.Aggregation) *engine.AggregationResult {
	switch a.Kind {
	case engine.KindNested:
		var children []*node
		for _, n := range nodes {
			children = append(children, n.children(a.Path)...)
		}
		return single(children, a)

	case engine.KindReverseNested:
		seen := make(map[*node]bool)
		var parents []*node
		for _, n := range nodes {
			p := n
			for p != nil && p.path != a.Path {
				p = p.parent
			}
			if p != nil && !seen[p] {
				seen[p] = true
				parents = append(parents, p)
			}
		}
		return single(parents, a)

	case engine.KindFilter:
		var kept []*node
		for _, n := range nodes {
			if ok, _ := match(n, a.Filter); ok {
				kept = append(kept, n)
			}
		}
		return single(kept, a)

	case engine.KindTerms:
		return terms(nodes, a)

	case engine.KindStats:
		st := &engine.Stats{Min: math.Inf(1), Max: math.Inf(-1)}
		for _, n := range nodes {
			for _, v := range n.values(a.Field) {
				f, ok := toFloat(v)
				if !ok {
					continue
				}
				st.Count++
				st.Sum += f
				st.Min = math.Min(st.Min, f)
				st.Max = math.Max(st.Max, f)
			}
		}
		if st.Count == 0 {
			st.Min, st.Max = 0, 0
		}
		return &engine.AggregationResult{DocCount: int64(len(nodes)), Stats: st}
	}
	return &engine.AggregationResult{}
}

func single(nodes []*node, a *engine.Aggregation) *engine.AggregationResult {
	return &engine.AggregationResult{
		DocCount:     int64(len(nodes)),
		Aggregations: aggregate(nodes, a.Aggregations),
	}
}

func terms(nodes []*node, a *engine.Aggregation) *engine.AggregationResult {
	var keys []string
	members := make(map[string][]*node)
	numeric := true
	for _, n := range nodes {
		seen := make(map[string]bool)
		for _, v := range n.values(a.Field) {
			if _, ok := v.(float64); !ok {
				numeric = false
			}
			k := toString(v)
			if seen[k] {
				continue
			}
			seen[k] = true
			if _, ok := members[k]; !ok {
				keys = append(keys, k)
			}
			members[k] = append(members[k], n)
		}
	}

	keyLess := func(x, y string) bool {
		if numeric {
			fx, _ := toFloat(x)
			fy, _ := toFloat(y)
			return fx < fy
		}
		return x < y
	}
	sort.SliceStable(keys, func(i, j int) bool {
		ki, kj := keys[i], keys[j]
		switch a.Order {
		case engine.OrderKeyAsc:
			return keyLess(ki, kj)
		case engine.OrderKeyDesc:
			return keyLess(kj, ki)
		default:
			if ci, cj := len(members[ki]), len(members[kj]); ci != cj {
				return ci > cj
			}
			return keyLess(ki, kj)
		}
	})

	size := a.Size
	if size <= 0 {
		size = defaultTermsSize
	}
	if len(keys) > size {
		keys = keys[:size]
	}

	res := &engine.AggregationResult{DocCount: int64(len(nodes)), Buckets: make([]engine.Bucket, 0, len(keys))}
	for _, k := range keys {
		res.Buckets = append(res.Buckets, engine.Bucket{
			Key:          k,
			DocCount:     int64(len(members[k])),
			Aggregations: aggregate(members[k], a.Aggregations),
		})
	}
	return res
}
