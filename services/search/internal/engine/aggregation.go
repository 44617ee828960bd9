package engine

import "strings"

// AggregationKind is the type of an aggregation node.
type AggregationKind string

const (
	KindTerms         AggregationKind = "terms"
	KindNested        AggregationKind = "nested"
	KindReverseNested AggregationKind = "reverse_nested"
	KindFilter        AggregationKind = "filter"
	KindStats         AggregationKind = "stats"
)

// BucketOrder orders terms buckets.
type BucketOrder string

const (
	OrderCount   BucketOrder = "count"
	OrderKeyAsc  BucketOrder = "key_asc"
	OrderKeyDesc BucketOrder = "key_desc"
)

// Aggregation is one node of an aggregation tree. For reverse_nested an
// empty Path means the document root. Absolute subtrees keep their paths
// when the tree is moved into a nested scope.
type Aggregation struct {
	Name         string
	Kind         AggregationKind
	Field        string
	Path         string
	Size         int
	Order        BucketOrder
	Filter       Query
	Absolute     bool
	Aggregations []*Aggregation
}

// Sub returns the direct sub-aggregation with the given name.
func (a *Aggregation) Sub(name string) *Aggregation {
	for _, s := range a.Aggregations {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Add appends sub-aggregations and returns a.
func (a *Aggregation) Add(subs ...*Aggregation) *Aggregation {
	a.Aggregations = append(a.Aggregations, subs...)
	return a
}

// Prefixed returns a deep copy of a with every field, path and filter moved
// below prefix, except absolute subtrees.
func (a *Aggregation) Prefixed(prefix string) *Aggregation {
	if a == nil {
		return nil
	}
	if a.Absolute || prefix == "" {
		return a.clone()
	}
	out := *a
	if out.Field != "" {
		out.Field = prefix + "." + out.Field
	}
	if out.Path != "" {
		out.Path = prefix + "." + out.Path
	}
	out.Filter = PrefixFields(out.Filter, prefix)
	out.Aggregations = make([]*Aggregation, len(a.Aggregations))
	for i, s := range a.Aggregations {
		out.Aggregations[i] = s.Prefixed(prefix)
	}
	return &out
}

func (a *Aggregation) clone() *Aggregation {
	out := *a
	out.Aggregations = make([]*Aggregation, len(a.Aggregations))
	for i, s := range a.Aggregations {
		out.Aggregations[i] = s.clone()
	}
	return &out
}

// AggregationResults holds results by aggregation name.
type AggregationResults map[string]*AggregationResult

// AggregationResult is the result of one aggregation node. Single bucket
// kinds fill DocCount and Aggregations, terms fill Buckets, stats fill
// Stats.
type AggregationResult struct {
	DocCount     int64
	Buckets      []Bucket
	Stats        *Stats
	Aggregations AggregationResults
}

// Bucket is one terms bucket.
type Bucket struct {
	Key          string
	DocCount     int64
	Aggregations AggregationResults
}

// Stats summarises numeric values.
type Stats struct {
	Count int64
	Min   float64
	Max   float64
	Sum   float64
}

// Get returns the named result or nil.
func (r AggregationResults) Get(name string) *AggregationResult {
	if r == nil {
		return nil
	}
	return r[name]
}

// Path follows names through single-bucket results.
func (r AggregationResults) Path(names ...string) *AggregationResult {
	cur := r
	var res *AggregationResult
	for _, n := range names {
		res = cur.Get(n)
		if res == nil {
			return nil
		}
		cur = res.Aggregations
	}
	return res
}

// JoinPath joins non-empty path elements with dots.
func JoinPath(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ".")
}
