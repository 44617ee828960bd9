package domain

// Top level keys of an index document. Masters and variants share the same
// layout; variants are nested below Variants.
const (
	IndexID         = "id"
	SearchData      = "searchData"
	ResultData      = "resultData"
	SortData        = "sortData"
	Scores          = "scores"
	TermFacetData   = "termFacetData"
	NumberFacetData = "numberFacetData"
	PathFacetData   = "pathFacetData"
	Variants        = "variants"

	// Keys of the facet data entries.
	FacetDataName  = "name"
	FacetDataValue = "value"
	FacetDataID    = "id"
)

// Names of the inner hit groups of a search hit.
const (
	// InnerHitsVariants holds the variants matching the query.
	InnerHitsVariants = "variants"
	// InnerHitsAll only carries the total number of variants.
	InnerHitsAll = "_all"
)
