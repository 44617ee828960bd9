// Package ranking orders raw suggest candidates. Every function is pure and
// safe for concurrent use.
package ranking

import (
	"cmp"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/SrinivasareddyGatla/open-commerce-search/services/suggest/internal/domain"
)

// Comparator orders two suggestions for slices.SortStableFunc.
type Comparator func(a, b domain.Suggestion) int

func normalize(locale language.Tag, s string) string {
	// A Caser is stateful, so one is created per call.
	return cases.Lower(locale).String(strings.TrimSpace(s))
}

// CommonChars scores how many letters of target also occur in input, in
// [0,1]. Every letter occurrence of input can be consumed once. The score
// is directional: keep target fixed and vary input.
func CommonChars(locale language.Tag, input, target string) float64 {
	input = normalize(locale, input)
	target = normalize(locale, target)

	if input == "" || target == "" {
		return 0
	}
	if input == target {
		return 1
	}

	available := make(map[rune]int, len(input))
	inputLetters := 0
	for _, r := range input {
		if !unicode.IsLetter(r) {
			continue
		}
		inputLetters++
		available[r]++
	}

	targetLetters, matches := 0, 0
	for _, r := range target {
		if !unicode.IsLetter(r) {
			continue
		}
		targetLetters++
		if available[r] > 0 {
			available[r]--
			matches++
		}
	}

	denominator := max(inputLetters, targetLetters)
	if denominator == 0 {
		return 0
	}
	return float64(matches) / float64(denominator)
}

// FuzzyComparator prefers labels sharing more letters with term, then
// higher weight.
func FuzzyComparator(term string, locale language.Tag) Comparator {
	return func(a, b domain.Suggestion) int {
		if c := cmp.Compare(CommonChars(locale, b.Label, term), CommonChars(locale, a.Label, term)); c != 0 {
			return c
		}
		return cmp.Compare(b.Weight, a.Weight)
	}
}

// SharpenedComparator puts sharpened suggestions first, then orders by
// descending weight.
func SharpenedComparator() Comparator {
	return func(a, b domain.Suggestion) int {
		as := a.MatchGroup() == domain.GroupSharpened
		bs := b.MatchGroup() == domain.GroupSharpened
		if as != bs {
			if as {
				return -1
			}
			return 1
		}
		return cmp.Compare(b.Weight, a.Weight)
	}
}

// Rank merges the candidate groups into one list: sharpened and exact
// matches first, then one-edit and two-edit fuzzy matches. A label already
// taken by an earlier entry is skipped. limit <= 0 means no limit.
// The input slices are not modified.
func Rank(locale language.Tag, term string, groups map[domain.MatchGroup][]domain.Suggestion, limit int) []domain.Suggestion {
	head := slices.Concat(groups[domain.GroupSharpened], groups[domain.GroupExact])
	slices.SortStableFunc(head, SharpenedComparator())

	fuzzy := FuzzyComparator(term, locale)
	fuzzy1 := slices.Clone(groups[domain.GroupFuzzy1])
	slices.SortStableFunc(fuzzy1, fuzzy)
	fuzzy2 := slices.Clone(groups[domain.GroupFuzzy2])
	slices.SortStableFunc(fuzzy2, fuzzy)

	seen := make(map[string]struct{})
	var out []domain.Suggestion
	for _, group := range [][]domain.Suggestion{head, fuzzy1, fuzzy2} {
		for _, s := range group {
			if limit > 0 && len(out) >= limit {
				return out
			}
			key := normalize(locale, s.Label)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
