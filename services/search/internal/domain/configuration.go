package domain

import (
	"regexp"
	"strings"
)

// QueryCondition selects a query configuration for a user query.
type QueryCondition struct {
	MinTermCount  int    `yaml:"minTermCount,omitempty" json:"minTermCount,omitempty" validate:"gte=0"`
	MaxTermCount  int    `yaml:"maxTermCount,omitempty" json:"maxTermCount,omitempty" validate:"gte=0"`
	MatchingRegex string `yaml:"matchingRegex,omitempty" json:"matchingRegex,omitempty"`
}

// Matches reports whether userQuery satisfies the condition. A zero bound
// is not checked; an invalid regex never matches.
func (c QueryCondition) Matches(userQuery string) bool {
	terms := len(strings.Fields(userQuery))
	if c.MinTermCount > 0 && terms < c.MinTermCount {
		return false
	}
	if c.MaxTermCount > 0 && terms > c.MaxTermCount {
		return false
	}
	if c.MatchingRegex != "" {
		re, err := regexp.Compile(c.MatchingRegex)
		if err != nil || !re.MatchString(userQuery) {
			return false
		}
	}
	return true
}

// QueryStrategy is the multi-match flavour of a query configuration.
type QueryStrategy string

const (
	StrategyBestFields   QueryStrategy = "best_fields"
	StrategyCrossFields  QueryStrategy = "cross_fields"
	StrategyMostFields   QueryStrategy = "most_fields"
	StrategyPhrase       QueryStrategy = "phrase"
	StrategyPhrasePrefix QueryStrategy = "phrase_prefix"
)

// QuerySettings parameterises the text query.
type QuerySettings struct {
	Fields    map[string]float64 `yaml:"fields,omitempty" json:"fields,omitempty"`
	Fuzziness string             `yaml:"fuzziness,omitempty" json:"fuzziness,omitempty"`
	Operator  string             `yaml:"operator,omitempty" json:"operator,omitempty" validate:"omitempty,oneof=and or AND OR"`
}

// QueryConfiguration is one named, conditional text query setup.
type QueryConfiguration struct {
	Name      string         `yaml:"name" json:"name" validate:"required"`
	Condition QueryCondition `yaml:"condition,omitempty" json:"condition,omitempty"`
	Strategy  QueryStrategy  `yaml:"strategy,omitempty" json:"strategy,omitempty" validate:"omitempty,oneof=best_fields cross_fields most_fields phrase phrase_prefix"`
	Settings  QuerySettings  `yaml:"settings,omitempty" json:"settings,omitempty"`
}

// ScoreType is the kind of a scoring function.
type ScoreType string

const (
	ScoreFieldValueFactor ScoreType = "field_value_factor"
	ScoreWeight           ScoreType = "weight"
)

// ScoringFunction boosts documents by a score field or a constant.
type ScoringFunction struct {
	Field    string    `yaml:"field,omitempty" json:"field,omitempty"`
	Type     ScoreType `yaml:"type" json:"type" validate:"required,oneof=field_value_factor weight"`
	Weight   float64   `yaml:"weight,omitempty" json:"weight,omitempty"`
	Factor   float64   `yaml:"factor,omitempty" json:"factor,omitempty"`
	Modifier string    `yaml:"modifier,omitempty" json:"modifier,omitempty" validate:"omitempty,oneof=none log log1p log2p ln ln1p ln2p square sqrt reciprocal"`
	Missing  float64   `yaml:"missing,omitempty" json:"missing,omitempty"`
}

// ScoringConfiguration wraps the text query into a function score.
type ScoringConfiguration struct {
	BoostMode string            `yaml:"boostMode,omitempty" json:"boostMode,omitempty" validate:"omitempty,oneof=multiply replace sum avg max min"`
	ScoreMode string            `yaml:"scoreMode,omitempty" json:"scoreMode,omitempty" validate:"omitempty,oneof=multiply sum avg first max min"`
	Functions []ScoringFunction `yaml:"functions,omitempty" json:"functions,omitempty" validate:"dive"`
}

// IsEmpty reports whether no function is configured.
func (c ScoringConfiguration) IsEmpty() bool { return len(c.Functions) == 0 }

// SortOptionConfiguration is one sort option offered to clients.
type SortOptionConfiguration struct {
	Field string    `yaml:"field" json:"field" validate:"required"`
	Order SortOrder `yaml:"order" json:"order" validate:"required,oneof=ASC DESC"`
	Label string    `yaml:"label,omitempty" json:"label,omitempty"`
}

// TenantConfig is the persisted search configuration of a tenant, or the
// defaults every tenant inherits from.
type TenantConfig struct {
	IndexName            string                    `yaml:"indexName,omitempty" json:"indexName,omitempty"`
	DisableFacets        bool                      `yaml:"disableFacets,omitempty" json:"disableFacets,omitempty"`
	DisableScorings      bool                      `yaml:"disableScorings,omitempty" json:"disableScorings,omitempty"`
	DisableQueryConfig   bool                      `yaml:"disableQueryConfig,omitempty" json:"disableQueryConfig,omitempty"`
	DisableSortingConfig bool                      `yaml:"disableSortingConfig,omitempty" json:"disableSortingConfig,omitempty"`
	VariantPicking       string                    `yaml:"variantPicking,omitempty" json:"variantPicking,omitempty" validate:"omitempty,oneof=pickIfSingleHit pickAlways pickIfBestScored pickIfDrilledDown"`
	FacetConfiguration   FacetConfiguration        `yaml:"facetConfiguration,omitempty" json:"facetConfiguration,omitempty"`
	ScoringConfiguration ScoringConfiguration      `yaml:"scoringConfiguration,omitempty" json:"scoringConfiguration,omitempty"`
	QueryConfigs         []QueryConfiguration      `yaml:"queryConfigs,omitempty" json:"queryConfigs,omitempty" validate:"dive"`
	SortConfigs          []SortOptionConfiguration `yaml:"sortConfigs,omitempty" json:"sortConfigs,omitempty" validate:"dive"`
}

// IndexConfig describes the fields of one index.
type IndexConfig struct {
	Fields []Field `yaml:"fields" json:"fields" validate:"dive"`
}

// Settings is the complete persisted configuration of the service.
type Settings struct {
	DefaultTenant TenantConfig            `yaml:"defaultTenant" json:"defaultTenant"`
	Tenants       map[string]TenantConfig `yaml:"tenants,omitempty" json:"tenants,omitempty" validate:"dive"`
	DefaultIndex  IndexConfig             `yaml:"defaultIndex" json:"defaultIndex"`
	Indexes       map[string]IndexConfig  `yaml:"indexes,omitempty" json:"indexes,omitempty" validate:"dive"`
}

// IndexFields returns the field configuration of index, falling back to the
// default index configuration.
func (s *Settings) IndexFields(index string) []Field {
	if ic, ok := s.Indexes[index]; ok && len(ic.Fields) > 0 {
		return ic.Fields
	}
	return s.DefaultIndex.Fields
}

// SearchConfiguration is the effective, merged configuration of one tenant.
// It is immutable after construction.
type SearchConfiguration struct {
	Tenant               string
	IndexName            string
	Fields               *FieldIndex
	VariantPicking       string
	FacetsDisabled       bool
	FacetConfiguration   FacetConfiguration
	ScoringConfiguration ScoringConfiguration
	QueryConfigs         []QueryConfiguration
	SortConfigs          []SortOptionConfiguration
}
