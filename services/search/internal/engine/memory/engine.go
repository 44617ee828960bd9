// Package memory is an in-process engine.Engine. It evaluates the query and
// aggregation tree directly over JSON-normalised documents.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	apperrors "github.com/SrinivasareddyGatla/open-commerce-search/pkg/errors"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/engine"
)

const defaultInnerHitsSize = 3

type index struct {
	docs  map[string]map[string]any
	order []string
}

func newIndex() *index {
	return &index{docs: make(map[string]map[string]any)}
}

// Engine is an in-memory implementation of engine.Engine.
// Thread-safe via sync.RWMutex.
type Engine struct {
	mu      sync.RWMutex
	indices map[string]*index
	aliases map[string]string
}

var _ engine.Engine = (*Engine)(nil)

// New creates an empty engine.
func New() *Engine {
	return &Engine{
		indices: make(map[string]*index),
		aliases: make(map[string]string),
	}
}

func (e *Engine) resolve(name string) (string, *index, error) {
	if target, ok := e.aliases[name]; ok {
		name = target
	}
	idx, ok := e.indices[name]
	if !ok {
		return "", nil, apperrors.NotFound("index", name)
	}
	return name, idx, nil
}

// CreateIndex creates an empty index.
func (e *Engine) CreateIndex(_ context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.indices[name]; ok {
		return fmt.Errorf("memory create index: index %s already exists", name)
	}
	if _, ok := e.aliases[name]; ok {
		return fmt.Errorf("memory create index: %s is an alias", name)
	}
	e.indices[name] = newIndex()
	return nil
}

// DeleteIndex removes an index and every alias pointing at it. Deleting a
// missing index is not an error.
func (e *Engine) DeleteIndex(_ context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.indices, name)
	for alias, target := range e.aliases {
		if target == name {
			delete(e.aliases, alias)
		}
	}
	return nil
}

// Indices lists index names with the given prefix in lexical order.
func (e *Engine) Indices(_ context.Context, prefix string) ([]string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []string
	for name := range e.indices {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

// AliasTargets returns the index alias points to.
func (e *Engine) AliasTargets(_ context.Context, alias string) ([]string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if target, ok := e.aliases[alias]; ok {
		return []string{target}, nil
	}
	return nil, nil
}

// SwapAlias points alias at index.
func (e *Engine) SwapAlias(_ context.Context, alias, index string) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.indices[index]; !ok {
		return nil, apperrors.NotFound("index", index)
	}
	if _, ok := e.indices[alias]; ok {
		return nil, fmt.Errorf("memory swap alias: %s is an index", alias)
	}
	var replaced []string
	if prev, ok := e.aliases[alias]; ok && prev != index {
		replaced = append(replaced, prev)
	}
	e.aliases[alias] = index
	return replaced, nil
}

// Index adds or replaces documents.
func (e *Engine) Index(_ context.Context, name string, docs []engine.IndexDocument) error {
	normalized := make([]map[string]any, len(docs))
	for i, d := range docs {
		n, err := normalize(d.Source)
		if err != nil {
			return fmt.Errorf("memory index %s: %w", d.ID, err)
		}
		normalized[i] = n
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	_, idx, err := e.resolve(name)
	if err != nil {
		return err
	}
	for i, d := range docs {
		if _, exists := idx.docs[d.ID]; !exists {
			idx.order = append(idx.order, d.ID)
		}
		idx.docs[d.ID] = normalized[i]
	}
	return nil
}

// Delete removes documents by id.
func (e *Engine) Delete(_ context.Context, name string, ids []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, idx, err := e.resolve(name)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, ok := idx.docs[id]; !ok {
			continue
		}
		delete(idx.docs, id)
		for i, o := range idx.order {
			if o == id {
				idx.order = append(idx.order[:i], idx.order[i+1:]...)
				break
			}
		}
	}
	return nil
}

// Get returns a copy of one document source.
func (e *Engine) Get(_ context.Context, name, id string) (map[string]any, bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	_, idx, err := e.resolve(name)
	if err != nil {
		return nil, false, err
	}
	doc, ok := idx.docs[id]
	if !ok {
		return nil, false, nil
	}
	cp, err := normalize(doc)
	if err != nil {
		return nil, false, err
	}
	return cp, true, nil
}

// Ping always succeeds.
func (e *Engine) Ping(context.Context) error { return nil }

type scored struct {
	pos   int
	node  *node
	score float64
}

// Search evaluates req. Aggregations see every match; the post filter only
// restricts the returned hits.
func (e *Engine) Search(_ context.Context, name string, req *engine.Request) (*engine.Response, error) {
	start := time.Now()

	e.mu.RLock()
	defer e.mu.RUnlock()

	concrete, idx, err := e.resolve(name)
	if err != nil {
		return nil, err
	}

	var matched []scored
	for pos, id := range idx.order {
		n := &node{id: id, src: idx.docs[id]}
		ok, score := match(n, req.Query)
		if ok {
			matched = append(matched, scored{pos: pos, node: n, score: score})
		}
	}

	resp := &engine.Response{}
	if len(req.Aggregations) > 0 {
		nodes := make([]*node, len(matched))
		for i, m := range matched {
			nodes[i] = m.node
		}
		resp.Aggregations = aggregate(nodes, req.Aggregations)
	}

	if req.PostFilter != nil {
		kept := matched[:0:0]
		for _, m := range matched {
			if ok, _ := match(m.node, req.PostFilter); ok {
				kept = append(kept, m)
			}
		}
		matched = kept
	}

	sortHits(matched, req.Sort)
	resp.Total = int64(len(matched))

	from := min(max(req.From, 0), len(matched))
	end := min(from+max(req.Size, 0), len(matched))
	for _, m := range matched[from:end] {
		resp.Hits = append(resp.Hits, engine.Hit{
			ID:             m.node.id,
			Index:          concrete,
			Score:          m.score,
			Source:         m.node.src,
			InnerHits:      innerHits(m.node, req.Query),
			MatchedQueries: matchedQueries(m.node, req.Query),
		})
	}

	resp.TookMillis = time.Since(start).Milliseconds()
	return resp, nil
}

func sortHits(hits []scored, fields []engine.SortField) {
	sort.SliceStable(hits, func(i, j int) bool {
		for _, f := range fields {
			a, aok := sortValue(hits[i].node, f)
			b, bok := sortValue(hits[j].node, f)
			switch {
			case aok && !bok:
				return true
			case !aok && bok:
				return false
			case !aok && !bok:
				continue
			}
			if c := compareValues(a, b); c != 0 {
				if f.Desc {
					return c > 0
				}
				return c < 0
			}
		}
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].pos < hits[j].pos
	})
}

func sortValue(n *node, f engine.SortField) (any, bool) {
	if f.Field == "_score" {
		return nil, false
	}
	values := n.values(f.Field)
	if len(values) == 0 {
		return nil, false
	}
	best := values[0]
	useMax := f.Mode == "max" || (f.Mode == "" && f.Desc)
	for _, v := range values[1:] {
		c := compareValues(v, best)
		if (useMax && c > 0) || (!useMax && c < 0) {
			best = v
		}
	}
	return best, true
}

func compareValues(a, b any) int {
	af, aNum := toFloat(a)
	bf, bNum := toFloat(b)
	if aNum && bNum {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	return strings.Compare(strings.ToLower(toString(a)), strings.ToLower(toString(b)))
}

func normalize(src map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(src)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}
