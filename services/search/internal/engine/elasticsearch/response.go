package elasticsearch

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/engine"
)

// searchResponse is the structure used to decode Elasticsearch search
// responses. Aggregations are decoded against the request tree because
// their shape depends on the aggregation kind.
type searchResponse struct {
	Took int64 `json:"took"`
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []esHit `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]json.RawMessage `json:"aggregations"`
}

type esHit struct {
	ID             string                     `json:"_id"`
	Index          string                     `json:"_index"`
	Score          *float64                   `json:"_score"`
	Source         map[string]any             `json:"_source"`
	InnerHits      map[string]esInnerHitGroup `json:"inner_hits"`
	MatchedQueries []string                   `json:"matched_queries"`
}

type esInnerHitGroup struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []esHit `json:"hits"`
	} `json:"hits"`
}

func (h esHit) toHit() engine.Hit {
	out := engine.Hit{
		ID:             h.ID,
		Index:          h.Index,
		Source:         h.Source,
		MatchedQueries: h.MatchedQueries,
	}
	if h.Score != nil {
		out.Score = *h.Score
	}
	if len(h.InnerHits) > 0 {
		out.InnerHits = make(map[string]engine.HitGroup, len(h.InnerHits))
		for name, g := range h.InnerHits {
			group := engine.HitGroup{Total: g.Hits.Total.Value}
			for _, ih := range g.Hits.Hits {
				group.Hits = append(group.Hits, ih.toHit())
			}
			out.InnerHits[name] = group
		}
	}
	return out
}

func (r *searchResponse) toResponse(aggs []*engine.Aggregation) (*engine.Response, error) {
	resp := &engine.Response{
		Total:      r.Hits.Total.Value,
		TookMillis: r.Took,
	}
	for _, h := range r.Hits.Hits {
		resp.Hits = append(resp.Hits, h.toHit())
	}
	if len(aggs) > 0 {
		parsed, err := parseAggregations(r.Aggregations, aggs)
		if err != nil {
			return nil, err
		}
		resp.Aggregations = parsed
	}
	return resp, nil
}

func parseAggregations(raw map[string]json.RawMessage, aggs []*engine.Aggregation) (engine.AggregationResults, error) {
	out := make(engine.AggregationResults, len(aggs))
	for _, a := range aggs {
		body, ok := raw[a.Name]
		if !ok {
			continue
		}
		res, err := parseAggregation(body, a)
		if err != nil {
			return nil, fmt.Errorf("aggregation %s: %w", a.Name, err)
		}
		out[a.Name] = res
	}
	return out, nil
}

func parseAggregation(body json.RawMessage, a *engine.Aggregation) (*engine.AggregationResult, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	res := &engine.AggregationResult{}

	switch a.Kind {
	case engine.KindTerms:
		var buckets []map[string]json.RawMessage
		if err := json.Unmarshal(fields["buckets"], &buckets); err != nil {
			return nil, fmt.Errorf("decode buckets: %w", err)
		}
		res.Buckets = make([]engine.Bucket, 0, len(buckets))
		for _, b := range buckets {
			bucket := engine.Bucket{Key: bucketKey(b)}
			if err := decodeDocCount(b["doc_count"], &bucket.DocCount); err != nil {
				return nil, err
			}
			res.DocCount += bucket.DocCount
			sub, err := parseAggregations(b, a.Aggregations)
			if err != nil {
				return nil, err
			}
			bucket.Aggregations = sub
			res.Buckets = append(res.Buckets, bucket)
		}
		return res, nil

	case engine.KindStats:
		var st struct {
			Count int64    `json:"count"`
			Min   *float64 `json:"min"`
			Max   *float64 `json:"max"`
			Sum   float64  `json:"sum"`
		}
		if err := json.Unmarshal(body, &st); err != nil {
			return nil, fmt.Errorf("decode stats: %w", err)
		}
		res.Stats = &engine.Stats{Count: st.Count, Sum: st.Sum}
		if st.Min != nil {
			res.Stats.Min = *st.Min
		}
		if st.Max != nil {
			res.Stats.Max = *st.Max
		}
		res.DocCount = st.Count
		return res, nil

	default:
		if err := decodeDocCount(fields["doc_count"], &res.DocCount); err != nil {
			return nil, err
		}
		sub, err := parseAggregations(fields, a.Aggregations)
		if err != nil {
			return nil, err
		}
		res.Aggregations = sub
		return res, nil
	}
}

func decodeDocCount(raw json.RawMessage, n *int64) error {
	if raw == nil {
		return nil
	}
	if err := json.Unmarshal(raw, n); err != nil {
		return fmt.Errorf("decode doc_count: %w", err)
	}
	return nil
}

// bucketKey prefers key_as_string and renders numeric keys without a
// trailing fraction.
func bucketKey(b map[string]json.RawMessage) string {
	if ks, ok := b["key_as_string"]; ok {
		var s string
		if json.Unmarshal(ks, &s) == nil {
			return s
		}
	}
	var s string
	if json.Unmarshal(b["key"], &s) == nil {
		return s
	}
	var f float64
	if json.Unmarshal(b["key"], &f) == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return string(b["key"])
}
