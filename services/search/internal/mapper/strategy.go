package mapper

import (
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/engine"
)

// Names of the variant picking strategies as used in tenant configuration.
const (
	StrategyPickIfSingleHit   = "pickIfSingleHit"
	StrategyPickAlways        = "pickAlways"
	StrategyPickIfBestScored  = "pickIfBestScored"
	StrategyPickIfDrilledDown = "pickIfDrilledDown"
)

// VariantPickingStrategy chooses the variant whose data represents a
// master in a result.
type VariantPickingStrategy interface {
	// Pick gets the matching variants of one master and, if
	// NeedsTotalCount is true, the number of all its variants.
	Pick(variants engine.HitGroup, allVariants int64) (engine.Hit, bool)
	NeedsTotalCount() bool
}

// PickIfSingleHit picks the variant if it is the only matching one.
type PickIfSingleHit struct{}

func (PickIfSingleHit) Pick(variants engine.HitGroup, _ int64) (engine.Hit, bool) {
	if len(variants.Hits) == 1 && variants.Total <= 1 {
		return variants.Hits[0], true
	}
	return engine.Hit{}, false
}

func (PickIfSingleHit) NeedsTotalCount() bool { return false }

// PickAlways picks the best matching variant whenever there is one.
type PickAlways struct{}

func (PickAlways) Pick(variants engine.HitGroup, _ int64) (engine.Hit, bool) {
	if len(variants.Hits) == 0 {
		return engine.Hit{}, false
	}
	return variants.Hits[0], true
}

func (PickAlways) NeedsTotalCount() bool { return false }

// PickIfBestScored picks the first variant if it scores strictly better
// than the second one.
type PickIfBestScored struct{}

func (PickIfBestScored) Pick(variants engine.HitGroup, _ int64) (engine.Hit, bool) {
	switch {
	case len(variants.Hits) == 0:
		return engine.Hit{}, false
	case len(variants.Hits) == 1:
		return variants.Hits[0], true
	case variants.Hits[0].Score > variants.Hits[1].Score:
		return variants.Hits[0], true
	}
	return engine.Hit{}, false
}

func (PickIfBestScored) NeedsTotalCount() bool { return false }

// PickIfDrilledDown picks the first variant once filters or the query
// narrowed the master down to a subset of its variants.
type PickIfDrilledDown struct{}

func (PickIfDrilledDown) Pick(variants engine.HitGroup, allVariants int64) (engine.Hit, bool) {
	if len(variants.Hits) == 0 {
		return engine.Hit{}, false
	}
	matching := variants.Total
	if matching == 0 {
		matching = int64(len(variants.Hits))
	}
	if matching < allVariants {
		return variants.Hits[0], true
	}
	return engine.Hit{}, false
}

func (PickIfDrilledDown) NeedsTotalCount() bool { return true }

// StrategyByName returns the named strategy, PickIfSingleHit for unknown
// or empty names.
func StrategyByName(name string) VariantPickingStrategy {
	switch name {
	case StrategyPickAlways:
		return PickAlways{}
	case StrategyPickIfBestScored:
		return PickIfBestScored{}
	case StrategyPickIfDrilledDown:
		return PickIfDrilledDown{}
	default:
		return PickIfSingleHit{}
	}
}
