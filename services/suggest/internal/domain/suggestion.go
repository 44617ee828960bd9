package domain

import "strings"

// MatchGroup classifies a raw candidate by how it matched the query term.
type MatchGroup string

const (
	GroupExact     MatchGroup = "exact"
	GroupFuzzy1    MatchGroup = "fuzzy1"
	GroupFuzzy2    MatchGroup = "fuzzy2"
	GroupSharpened MatchGroup = "sharpened"
)

// Well-known payload keys.
const (
	PayloadLabel      = "label"
	PayloadType       = "type"
	PayloadWeight     = "weight"
	PayloadMatchGroup = "meta.matchGroup"
)

// Suggestion is a single autocomplete candidate.
type Suggestion struct {
	Label   string            `json:"label"`
	Type    string            `json:"type,omitempty"`
	Weight  int64             `json:"weight"`
	Payload map[string]string `json:"payload,omitempty"`
}

// MatchGroup returns the group recorded in the payload, if any.
func (s Suggestion) MatchGroup() MatchGroup {
	return MatchGroup(s.Payload[PayloadMatchGroup])
}

// Record is one entry of a suggest data source.
type Record struct {
	Label  string `json:"label" yaml:"label" validate:"required"`
	Weight int64  `json:"weight" yaml:"weight" validate:"gte=0"`
	// Sharpen lists query terms this record is the preferred answer for.
	Sharpen []string          `json:"sharpen,omitempty" yaml:"sharpen"`
	Tags    []string          `json:"tags,omitempty" yaml:"tags"`
	Payload map[string]string `json:"payload,omitempty" yaml:"payload"`
}

// HasAnyTag reports whether r carries at least one of tags. An empty tag
// filter matches every record.
func (r Record) HasAnyTag(tags []string) bool {
	if len(tags) == 0 {
		return true
	}
	for _, want := range tags {
		for _, have := range r.Tags {
			if strings.EqualFold(want, have) {
				return true
			}
		}
	}
	return false
}

// Suggestion converts r into a candidate of group g. The payload is copied.
func (r Record) Suggestion(g MatchGroup) Suggestion {
	payload := make(map[string]string, len(r.Payload)+1)
	for k, v := range r.Payload {
		payload[k] = v
	}
	payload[PayloadMatchGroup] = string(g)
	return Suggestion{Label: r.Label, Weight: r.Weight, Payload: payload}
}
