package memory

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/engine"
)

// match reports whether n matches q and its relevance score.
func match(n *node, q engine.Query) (bool, float64) {
	switch q := q.(type) {
	case nil, engine.MatchAll:
		return true, 1
	case engine.Term:
		for _, v := range n.values(q.Field) {
			s := toString(v)
			for _, want := range q.Values {
				if s == want {
					return true, 1
				}
			}
		}
		return false, 0
	case engine.Range:
		for _, v := range n.values(q.Field) {
			f, ok := toFloat(v)
			if !ok {
				continue
			}
			if q.Gte != nil && f < *q.Gte {
				continue
			}
			if q.Lte != nil && f > *q.Lte {
				continue
			}
			return true, 1
		}
		return false, 0
	case engine.Prefix:
		for _, v := range n.values(q.Field) {
			if strings.HasPrefix(toString(v), q.Value) {
				return true, 1
			}
		}
		return false, 0
	case engine.Bool:
		return matchBool(n, q)
	case engine.Nested:
		found, best := false, 0.0
		for _, c := range n.children(q.Path) {
			if ok, s := match(c, q.Query); ok {
				found = true
				best = math.Max(best, s)
			}
		}
		return found, best
	case engine.MultiMatch:
		return matchText(n, q)
	case engine.FunctionScore:
		return matchFunctionScore(n, q)
	}
	return false, 0
}

func matchBool(n *node, q engine.Bool) (bool, float64) {
	score := 0.0
	for _, sub := range q.Must {
		ok, s := match(n, sub)
		if !ok {
			return false, 0
		}
		score += s
	}
	for _, sub := range q.Filter {
		if ok, _ := match(n, sub); !ok {
			return false, 0
		}
	}
	for _, sub := range q.MustNot {
		if ok, _ := match(n, sub); ok {
			return false, 0
		}
	}
	msm := q.MinimumShouldMatch
	if msm == 0 && len(q.Must) == 0 && len(q.Filter) == 0 && len(q.Should) > 0 {
		msm = 1
	}
	matched := 0
	for _, sub := range q.Should {
		if ok, s := match(n, sub); ok {
			matched++
			score += s
		}
	}
	if matched < msm {
		return false, 0
	}
	if score == 0 {
		score = 1
	}
	return true, score
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func fuzzyDistance(fuzziness string, term string) int {
	switch strings.ToUpper(fuzziness) {
	case "":
		return 0
	case "AUTO":
		switch n := len([]rune(term)); {
		case n < 3:
			return 0
		case n < 6:
			return 1
		default:
			return 2
		}
	}
	d, err := strconv.Atoi(fuzziness)
	if err != nil {
		return 0
	}
	return min(d, 2)
}

// matchText scores each query term by the best boost of a field containing
// it. Operator "and" requires every term, anything else one term.
func matchText(n *node, q engine.MultiMatch) (bool, float64) {
	terms := tokenize(q.Query)
	if len(terms) == 0 {
		return true, 1
	}
	prefixLast := q.Type == "phrase_prefix"

	fieldTokens := make([][]string, len(q.Fields))
	for i, f := range q.Fields {
		for _, v := range n.values(f.Field) {
			fieldTokens[i] = append(fieldTokens[i], tokenize(toString(v))...)
		}
	}

	score, hits := 0.0, 0
	for ti, term := range terms {
		best := 0.0
		dist := fuzzyDistance(q.Fuzziness, term)
		for i, f := range q.Fields {
			boost := f.Boost
			if boost == 0 {
				boost = 1
			}
			for _, tok := range fieldTokens[i] {
				ok := tok == term ||
					(prefixLast && ti == len(terms)-1 && strings.HasPrefix(tok, term)) ||
					(dist > 0 && levenshtein(tok, term) <= dist)
				if ok {
					best = math.Max(best, boost)
					break
				}
			}
		}
		if best > 0 {
			hits++
			score += best
		}
	}
	if strings.EqualFold(q.Operator, "and") && hits < len(terms) {
		return false, 0
	}
	return hits > 0, score
}

func matchFunctionScore(n *node, q engine.FunctionScore) (bool, float64) {
	ok, score := match(n, q.Query)
	if !ok {
		return false, 0
	}
	var factors []float64
	for _, fn := range q.Functions {
		if fn.Filter != nil {
			if ok, _ := match(n, fn.Filter); !ok {
				continue
			}
		}
		factors = append(factors, functionValue(n, fn))
	}
	if len(factors) == 0 {
		return true, score
	}

	combined := factors[0]
	switch q.ScoreMode {
	case "sum":
		for _, f := range factors[1:] {
			combined += f
		}
	case "avg":
		for _, f := range factors[1:] {
			combined += f
		}
		combined /= float64(len(factors))
	case "max":
		for _, f := range factors[1:] {
			combined = math.Max(combined, f)
		}
	case "min":
		for _, f := range factors[1:] {
			combined = math.Min(combined, f)
		}
	case "first":
	default:
		for _, f := range factors[1:] {
			combined *= f
		}
	}

	switch q.BoostMode {
	case "replace":
		return true, combined
	case "sum":
		return true, score + combined
	case "avg":
		return true, (score + combined) / 2
	case "max":
		return true, math.Max(score, combined)
	case "min":
		return true, math.Min(score, combined)
	default:
		return true, score * combined
	}
}

func functionValue(n *node, fn engine.ScoreFunction) float64 {
	if fn.Field == "" {
		if fn.Weight == 0 {
			return 1
		}
		return fn.Weight
	}
	v := fn.Missing
	if values := n.values(fn.Field); len(values) > 0 {
		if f, ok := toFloat(values[0]); ok {
			v = f
		}
	}
	factor := fn.Factor
	if factor == 0 {
		factor = 1
	}
	v *= factor
	switch fn.Modifier {
	case "log":
		v = math.Log10(v)
	case "log1p":
		v = math.Log10(v + 1)
	case "log2p":
		v = math.Log10(v + 2)
	case "ln":
		v = math.Log(v)
	case "ln1p":
		v = math.Log1p(v)
	case "ln2p":
		v = math.Log(v + 2)
	case "square":
		v *= v
	case "sqrt":
		v = math.Sqrt(v)
	case "reciprocal":
		v = 1 / v
	}
	if fn.Weight != 0 {
		v *= fn.Weight
	}
	return v
}

// innerHits collects the matching nested objects of every nested query that
// asks for them.
func innerHits(n *node, q engine.Query) map[string]engine.HitGroup {
	out := make(map[string]engine.HitGroup)
	walkNested(q, func(nq engine.Nested) {
		if nq.InnerHits == nil {
			return
		}
		type child struct {
			n     *node
			score float64
		}
		var hits []child
		for _, c := range n.children(nq.Path) {
			if ok, s := match(c, nq.Query); ok {
				hits = append(hits, child{c, s})
			}
		}
		sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

		size := nq.InnerHits.Size
		if size < 0 {
			size = defaultInnerHitsSize
		}
		group := engine.HitGroup{Total: int64(len(hits))}
		for _, h := range hits[:min(size, len(hits))] {
			group.Hits = append(group.Hits, engine.Hit{ID: n.id, Score: h.score, Source: h.n.src})
		}
		out[nq.InnerHits.Name] = group
	})
	if len(out) == 0 {
		return nil
	}
	return out
}

func walkNested(q engine.Query, fn func(engine.Nested)) {
	switch q := q.(type) {
	case engine.Nested:
		fn(q)
	case engine.Bool:
		for _, list := range [][]engine.Query{q.Must, q.Should, q.Filter} {
			for _, sub := range list {
				walkNested(sub, fn)
			}
		}
	case engine.FunctionScore:
		walkNested(q.Query, fn)
	}
}

// matchedQueries returns the names of matching named text queries.
func matchedQueries(n *node, q engine.Query) []string {
	var out []string
	var walk func(engine.Query)
	walk = func(q engine.Query) {
		switch q := q.(type) {
		case engine.MultiMatch:
			if q.Name != "" {
				if ok, _ := matchText(n, q); ok {
					out = append(out, q.Name)
				}
			}
		case engine.Bool:
			for _, list := range [][]engine.Query{q.Must, q.Should, q.Filter} {
				for _, sub := range list {
					walk(sub)
				}
			}
		case engine.FunctionScore:
			walk(q.Query)
		}
	}
	walk(q)
	return out
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}
