package domain

import "fmt"

// FieldType is the declared type of an indexed field.
type FieldType string

const (
	FieldTypeID       FieldType = "id"
	FieldTypeString   FieldType = "string"
	FieldTypeNumber   FieldType = "number"
	FieldTypeCategory FieldType = "category"
	FieldTypeRaw      FieldType = "raw"
)

// FieldUsage tags what a field may be used for.
type FieldUsage string

const (
	UsageSearch FieldUsage = "search"
	UsageResult FieldUsage = "result"
	UsageSort   FieldUsage = "sort"
	UsageFacet  FieldUsage = "facet"
	UsageScore  FieldUsage = "score"
)

// FieldLevel says whether a field lives on masters, variants or both.
type FieldLevel string

const (
	LevelMaster  FieldLevel = "master"
	LevelVariant FieldLevel = "variant"
	LevelBoth    FieldLevel = "both"
)

// Field describes one configured data field.
type Field struct {
	Name        string       `yaml:"name" json:"name" validate:"required,identifier"`
	Type        FieldType    `yaml:"type" json:"type" validate:"omitempty,oneof=id string number category raw"`
	Usage       []FieldUsage `yaml:"usage" json:"usage" validate:"dive,oneof=search result sort facet score"`
	Level       FieldLevel   `yaml:"level" json:"level" validate:"omitempty,oneof=master variant both"`
	SourceNames []string     `yaml:"sourceNames,omitempty" json:"sourceNames,omitempty"`
}

// HasUsage reports whether u is one of the field's usages.
func (f Field) HasUsage(u FieldUsage) bool {
	for _, have := range f.Usage {
		if have == u {
			return true
		}
	}
	return false
}

// OnMaster reports whether master documents carry this field.
func (f Field) OnMaster() bool { return f.Level != LevelVariant }

// OnVariant reports whether variant documents carry this field.
func (f Field) OnVariant() bool { return f.Level == LevelVariant || f.Level == LevelBoth }

// FieldIndex looks fields up by name or by one of their source names.
// It is immutable once built.
type FieldIndex struct {
	fields   []Field
	byName   map[string]int
	bySource map[string]int
}

// NewFieldIndex builds an index over fields. Duplicate names are rejected.
// Fields without a level default to master, without a type to string.
func NewFieldIndex(fields []Field) (*FieldIndex, error) {
	idx := &FieldIndex{
		fields:   make([]Field, 0, len(fields)),
		byName:   make(map[string]int, len(fields)),
		bySource: make(map[string]int),
	}
	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("field without name")
		}
		if _, dup := idx.byName[f.Name]; dup {
			return nil, fmt.Errorf("duplicate field %q", f.Name)
		}
		if f.Level == "" {
			f.Level = LevelMaster
		}
		if f.Type == "" {
			f.Type = FieldTypeString
		}
		idx.byName[f.Name] = len(idx.fields)
		for _, src := range f.SourceNames {
			if _, taken := idx.bySource[src]; !taken {
				idx.bySource[src] = len(idx.fields)
			}
		}
		idx.fields = append(idx.fields, f)
	}
	return idx, nil
}

// MustFieldIndex is NewFieldIndex for static field lists; it panics on error.
func MustFieldIndex(fields ...Field) *FieldIndex {
	idx, err := NewFieldIndex(fields)
	if err != nil {
		panic(err)
	}
	return idx
}

// Lookup returns the field with the given name.
func (x *FieldIndex) Lookup(name string) (Field, bool) {
	if x == nil {
		return Field{}, false
	}
	i, ok := x.byName[name]
	if !ok {
		return Field{}, false
	}
	return x.fields[i], true
}

// Match resolves a raw data key to a field, trying the field name first and
// the configured source names second.
func (x *FieldIndex) Match(key string) (Field, bool) {
	if f, ok := x.Lookup(key); ok {
		return f, true
	}
	if x == nil {
		return Field{}, false
	}
	if i, ok := x.bySource[key]; ok {
		return x.fields[i], true
	}
	return Field{}, false
}

// ByUsage returns the fields tagged with u in configuration order.
func (x *FieldIndex) ByUsage(u FieldUsage) []Field {
	if x == nil {
		return nil
	}
	var out []Field
	for _, f := range x.fields {
		if f.HasUsage(u) {
			out = append(out, f)
		}
	}
	return out
}

// All returns every field in configuration order.
func (x *FieldIndex) All() []Field {
	if x == nil {
		return nil
	}
	out := make([]Field, len(x.fields))
	copy(out, x.fields)
	return out
}

// Len returns the number of fields.
func (x *FieldIndex) Len() int {
	if x == nil {
		return 0
	}
	return len(x.fields)
}
