package domain

// ValueOrder controls the order of entries inside a facet.
type ValueOrder string

const (
	ValueOrderCount        ValueOrder = "COUNT"
	ValueOrderAlphanumAsc  ValueOrder = "ALPHANUM_ASC"
	ValueOrderAlphanumDesc ValueOrder = "ALPHANUM_DESC"
)

// FacetType names the kind of facet a creator produces.
type FacetType string

const (
	FacetTypeTerm         FacetType = "term"
	FacetTypeInterval     FacetType = "interval"
	FacetTypeHierarchical FacetType = "hierarchical"
	// FacetTypeIgnore suppresses facet creation for a field.
	FacetTypeIgnore FacetType = "ignore"
)

const (
	DefaultOptimalValueCount = 5
	DefaultFacetOrder        = 1000
	DefaultMaxFacets         = 5
)

// FacetConfig customises the facet built for one source field.
type FacetConfig struct {
	Label                 string         `yaml:"label,omitempty" json:"label,omitempty"`
	SourceField           string         `yaml:"sourceField" json:"sourceField" validate:"required"`
	Type                  FacetType      `yaml:"type,omitempty" json:"type,omitempty" validate:"omitempty,oneof=term interval hierarchical ignore"`
	MetaData              map[string]any `yaml:"metaData,omitempty" json:"metaData,omitempty"`
	OptimalValueCount     int            `yaml:"optimalValueCount,omitempty" json:"optimalValueCount,omitempty" validate:"gte=0"`
	ShowUnselectedOptions bool           `yaml:"showUnselectedOptions,omitempty" json:"showUnselectedOptions,omitempty"`
	IsMultiSelect         bool           `yaml:"multiSelect,omitempty" json:"multiSelect,omitempty"`
	Order                 int            `yaml:"order,omitempty" json:"order,omitempty"`
	ValueOrder            ValueOrder     `yaml:"valueOrder,omitempty" json:"valueOrder,omitempty" validate:"omitempty,oneof=COUNT ALPHANUM_ASC ALPHANUM_DESC"`
	ExcludeFromFacetLimit bool           `yaml:"excludeFromFacetLimit,omitempty" json:"excludeFromFacetLimit,omitempty"`
	PreferVariantOnFilter bool           `yaml:"preferVariantOnFilter,omitempty" json:"preferVariantOnFilter,omitempty"`
}

// WithDefaults fills zero values with the documented defaults.
func (c FacetConfig) WithDefaults() FacetConfig {
	if c.OptimalValueCount == 0 {
		c.OptimalValueCount = DefaultOptimalValueCount
	}
	if c.Order == 0 {
		c.Order = DefaultFacetOrder
	}
	if c.ValueOrder == "" {
		c.ValueOrder = ValueOrderCount
	}
	if c.Label == "" {
		c.Label = c.SourceField
	}
	return c
}

// FacetConfiguration holds the facet settings of one tenant.
type FacetConfiguration struct {
	Default   FacetConfig   `yaml:"default,omitempty" json:"default,omitempty" validate:"-"`
	Facets    []FacetConfig `yaml:"facets,omitempty" json:"facets,omitempty" validate:"dive"`
	MaxFacets int           `yaml:"maxFacets,omitempty" json:"maxFacets,omitempty" validate:"gte=0"`
}

// IsEmpty reports whether nothing was configured.
func (c FacetConfiguration) IsEmpty() bool {
	return len(c.Facets) == 0 && c.MaxFacets == 0 && c.Default.SourceField == "" && c.Default.Type == ""
}

// For returns the facet config for field, falling back to Default with the
// field as source and label.
func (c FacetConfiguration) For(field string) FacetConfig {
	for _, fc := range c.Facets {
		if fc.SourceField == field {
			return fc.WithDefaults()
		}
	}
	d := c.Default
	d.SourceField = field
	d.Label = ""
	return d.WithDefaults()
}

// Limit returns MaxFacets or its default.
func (c FacetConfiguration) Limit() int {
	if c.MaxFacets <= 0 {
		return DefaultMaxFacets
	}
	return c.MaxFacets
}

// FacetEntry is one of SimpleFacetEntry, HierarchialFacetEntry or
// IntervalFacetEntry.
type FacetEntry interface {
	Entry() *SimpleFacetEntry
}

// SimpleFacetEntry is a plain value with its document count.
type SimpleFacetEntry struct {
	Key      string `json:"key"`
	DocCount int64  `json:"docCount"`
	Link     string `json:"link,omitempty"`
	Selected bool   `json:"selected"`
}

// Entry returns the entry itself.
func (e *SimpleFacetEntry) Entry() *SimpleFacetEntry { return e }

// HierarchialFacetEntry is a node of a category tree. Children are unique
// per key and kept in insertion order.
type HierarchialFacetEntry struct {
	SimpleFacetEntry
	ID       string                   `json:"id,omitempty"`
	Path     string                   `json:"path,omitempty"`
	Children []*HierarchialFacetEntry `json:"children,omitempty"`
}

// Entry returns the embedded simple entry.
func (e *HierarchialFacetEntry) Entry() *SimpleFacetEntry { return &e.SimpleFacetEntry }

// Child returns the direct child with the given key.
func (e *HierarchialFacetEntry) Child(key string) *HierarchialFacetEntry {
	for _, c := range e.Children {
		if c.Key == key {
			return c
		}
	}
	return nil
}

// AddChild appends c unless a child with the same key exists, in which case
// the existing child is returned.
func (e *HierarchialFacetEntry) AddChild(c *HierarchialFacetEntry) *HierarchialFacetEntry {
	if existing := e.Child(c.Key); existing != nil {
		return existing
	}
	e.Children = append(e.Children, c)
	return c
}

// IntervalFacetEntry is a numeric range.
type IntervalFacetEntry struct {
	SimpleFacetEntry
	LowerBound float64 `json:"lowerBound"`
	UpperBound float64 `json:"upperBound"`
}

// Entry returns the embedded simple entry.
func (e *IntervalFacetEntry) Entry() *SimpleFacetEntry { return &e.SimpleFacetEntry }

// Facet is the computed facet of one field.
type Facet struct {
	FieldName             string         `json:"fieldName"`
	Type                  FacetType      `json:"type"`
	Meta                  map[string]any `json:"meta,omitempty"`
	AbsoluteFacetCoverage int64          `json:"absoluteFacetCoverage"`
	IsFiltered            bool           `json:"isFiltered"`
	Entries               []FacetEntry   `json:"entries"`

	order          int
	excludeFromMax bool
}

// NewFacet creates a facet whose metadata, order and limit behaviour come
// from cfg.
func NewFacet(field string, typ FacetType, cfg FacetConfig) Facet {
	meta := make(map[string]any, len(cfg.MetaData)+2)
	for k, v := range cfg.MetaData {
		meta[k] = v
	}
	meta["label"] = cfg.Label
	meta["multiSelect"] = cfg.IsMultiSelect
	return Facet{
		FieldName:      field,
		Type:           typ,
		Meta:           meta,
		Entries:        []FacetEntry{},
		order:          cfg.Order,
		excludeFromMax: cfg.ExcludeFromFacetLimit,
	}
}

// Order is the configured position of the facet.
func (f Facet) Order() int { return f.order }

// ExcludedFromLimit reports whether the facet does not count against
// MaxFacets.
func (f Facet) ExcludedFromLimit() bool { return f.excludeFromMax }
