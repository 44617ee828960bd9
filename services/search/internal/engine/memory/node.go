package memory

import (
	"encoding/json"
	"strconv"
	"strings"
)

// node is a document or one nested object inside it. path is the absolute
// nested path of the object, empty for the root document.
type node struct {
	id     string
	src    map[string]any
	path   string
	parent *node
}

func (n *node) relative(field string) (string, bool) {
	if n.path == "" {
		return field, true
	}
	if !strings.HasPrefix(field, n.path+".") {
		return "", false
	}
	return field[len(n.path)+1:], true
}

// values returns the leaf values at field, flattening arrays.
func (n *node) values(field string) []any {
	rel, ok := n.relative(field)
	if !ok {
		return nil
	}
	return collect(n.src, strings.Split(rel, "."))
}

// children returns the objects at the nested path. Every object level on
// the way becomes a node so reverse nesting can stop at any of them.
func (n *node) children(path string) []*node {
	rel, ok := n.relative(path)
	if !ok {
		return nil
	}
	level := []*node{n}
	base := n.path
	for _, seg := range strings.Split(rel, ".") {
		if base == "" {
			base = seg
		} else {
			base += "." + seg
		}
		var next []*node
		for _, p := range level {
			for _, v := range collect(p.src, []string{seg}) {
				if m, ok := v.(map[string]any); ok {
					next = append(next, &node{id: n.id, src: m, path: base, parent: p})
				}
			}
		}
		level = next
	}
	return level
}

func collect(v any, parts []string) []any {
	switch t := v.(type) {
	case []any:
		var out []any
		for _, e := range t {
			out = append(out, collect(e, parts)...)
		}
		return out
	case map[string]any:
		if len(parts) == 0 {
			return []any{t}
		}
		next, ok := t[parts[0]]
		if !ok || next == nil {
			return nil
		}
		return collect(next, parts[1:])
	case nil:
		return nil
	default:
		if len(parts) > 0 {
			return nil
		}
		return []any{t}
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	}
	return 0, false
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		raw, _ := json.Marshal(t)
		return string(raw)
	}
}
