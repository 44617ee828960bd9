package querybuilder

import (
	"slices"
	"strings"

	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/domain"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/engine"
)

// DefaultQueryName names the text query used when no query configuration
// matches.
const DefaultQueryName = "default"

// TextQuery holds the text query on masters and, when variant fields are
// searchable, the one relative to a variant document.
type TextQuery struct {
	Name    string
	Master  *engine.MultiMatch
	Variant *engine.MultiMatch
}

// SelectQueryConfig returns the first configuration whose condition
// matches userQuery.
func SelectQueryConfig(userQuery string, configs []domain.QueryConfiguration) (domain.QueryConfiguration, bool) {
	for _, c := range configs {
		if c.Condition.Matches(userQuery) {
			return c, true
		}
	}
	return domain.QueryConfiguration{}, false
}

// BuildTextQuery builds the multi-match queries for userQuery. Fields of a
// query configuration that are not configured fall back to the master
// level.
func BuildTextQuery(userQuery string, configs []domain.QueryConfiguration, fields *domain.FieldIndex) TextQuery {
	cfg, ok := SelectQueryConfig(userQuery, configs)
	if !ok {
		cfg = defaultQueryConfig(fields)
	}

	names := make([]string, 0, len(cfg.Settings.Fields))
	for name := range cfg.Settings.Fields {
		names = append(names, name)
	}
	slices.Sort(names)

	var master, variant []engine.WeightedField
	for _, name := range names {
		boost := cfg.Settings.Fields[name]
		f, known := fields.Lookup(name)
		if !known || f.OnMaster() {
			master = append(master, engine.WeightedField{Field: dataField(domain.SearchData, name), Boost: boost})
		}
		if known && f.OnVariant() {
			variant = append(variant, engine.WeightedField{Field: dataField(domain.SearchData, name), Boost: boost})
		}
	}

	out := TextQuery{Name: cfg.Name}
	if len(master) > 0 {
		out.Master = multiMatch(userQuery, cfg, master)
	}
	if len(variant) > 0 {
		mm := engine.PrefixFields(*multiMatch(userQuery, cfg, variant), domain.Variants).(engine.MultiMatch)
		out.Variant = &mm
	}
	return out
}

func multiMatch(userQuery string, cfg domain.QueryConfiguration, fields []engine.WeightedField) *engine.MultiMatch {
	return &engine.MultiMatch{
		Query:     userQuery,
		Fields:    fields,
		Type:      string(cfg.Strategy),
		Operator:  strings.ToLower(cfg.Settings.Operator),
		Fuzziness: cfg.Settings.Fuzziness,
		Name:      cfg.Name,
	}
}

func defaultQueryConfig(fields *domain.FieldIndex) domain.QueryConfiguration {
	weights := map[string]float64{}
	for _, f := range fields.ByUsage(domain.UsageSearch) {
		weights[f.Name] = 1
	}
	return domain.QueryConfiguration{
		Name:     DefaultQueryName,
		Strategy: domain.StrategyBestFields,
		Settings: domain.QuerySettings{
			Fields:    weights,
			Fuzziness: "AUTO",
			Operator:  "and",
		},
	}
}
