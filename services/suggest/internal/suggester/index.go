package suggester

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/SrinivasareddyGatla/open-commerce-search/services/suggest/internal/domain"
)

// Index is the candidate store behind a suggester. Lookup returns raw
// candidates per match group, at most limit per group (limit <= 0: all).
type Index interface {
	Lookup(ctx context.Context, term string, tags []string, limit int) (map[domain.MatchGroup][]domain.Suggestion, error)
	Close() error
}

// Minimum term lengths, in runes, for fuzzy matching.
const (
	minFuzzy1Length = 3
	minFuzzy2Length = 5
)

type entry struct {
	record  domain.Record
	label   string
	words   []string
	sharpen []string
}

// MemoryIndex matches terms against label prefixes held in memory. A term
// is an exact match when the label or one of its words starts with it, and
// a fuzzy match when a word prefix is one or two edits away.
type MemoryIndex struct {
	locale  language.Tag
	entries []entry
	closed  atomic.Bool
}

// ErrClosed is returned by lookups on a closed index.
var ErrClosed = errors.New("suggest index closed")

var _ Index = (*MemoryIndex)(nil)

// NewMemoryIndex indexes records. Records are ordered by descending weight.
func NewMemoryIndex(records []domain.Record, locale language.Tag) *MemoryIndex {
	idx := &MemoryIndex{locale: locale, entries: make([]entry, 0, len(records))}
	for _, r := range records {
		label := idx.normalize(r.Label)
		if label == "" {
			continue
		}
		e := entry{record: r, label: label, words: strings.Fields(label)}
		for _, s := range r.Sharpen {
			if s = idx.normalize(s); s != "" {
				e.sharpen = append(e.sharpen, s)
			}
		}
		idx.entries = append(idx.entries, e)
	}
	slices.SortStableFunc(idx.entries, func(a, b entry) int {
		return cmp.Compare(b.record.Weight, a.record.Weight)
	})
	return idx
}

func (idx *MemoryIndex) normalize(s string) string {
	return strings.Join(strings.Fields(cases.Lower(idx.locale).String(s)), " ")
}

// Len returns the number of indexed records.
func (idx *MemoryIndex) Len() int {
	return len(idx.entries)
}

// Lookup implements Index.
func (idx *MemoryIndex) Lookup(ctx context.Context, term string, tags []string, limit int) (map[domain.MatchGroup][]domain.Suggestion, error) {
	if idx.closed.Load() {
		return nil, ErrClosed
	}
	term = idx.normalize(term)
	groups := make(map[domain.MatchGroup][]domain.Suggestion)
	if term == "" {
		return groups, nil
	}

	full := func(g domain.MatchGroup) bool {
		return limit > 0 && len(groups[g]) >= limit
	}
	for i, e := range idx.entries {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if !e.record.HasAnyTag(tags) {
			continue
		}
		g, ok := e.match(term)
		if !ok || full(g) {
			continue
		}
		groups[g] = append(groups[g], e.record.Suggestion(g))
	}
	return groups, nil
}

func (e entry) match(term string) (domain.MatchGroup, bool) {
	if slices.Contains(e.sharpen, term) {
		return domain.GroupSharpened, true
	}
	if strings.HasPrefix(e.label, term) {
		return domain.GroupExact, true
	}
	termWords := strings.Fields(term)
	if len(termWords) == 1 {
		for _, w := range e.words {
			if strings.HasPrefix(w, term) {
				return domain.GroupExact, true
			}
		}
	}

	n := utf8.RuneCountInString(term)
	if n < minFuzzy1Length {
		return "", false
	}
	best := -1
	candidates := []string{e.label}
	if len(termWords) == 1 {
		candidates = append(candidates, e.words...)
	}
	for _, c := range candidates {
		d := levenshtein(term, runePrefix(c, n))
		if best < 0 || d < best {
			best = d
		}
	}
	switch {
	case best == 1:
		return domain.GroupFuzzy1, true
	case best == 2 && n >= minFuzzy2Length:
		return domain.GroupFuzzy2, true
	}
	return "", false
}

// Close implements Index.
func (idx *MemoryIndex) Close() error {
	idx.closed.Store(true)
	return nil
}

func runePrefix(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}
