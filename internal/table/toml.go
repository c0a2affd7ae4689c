package table

import (
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"
)

// FromTOML decodes a TOML document. Ordering comes from the decoder's
// metadata, which lists keys in the order they appear in the document.
func FromTOML(data []byte) (*Table, error) {
	var raw map[string]any
	md, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	root := New()
	for _, key := range md.Keys() {
		root.insertPath(key, raw)
	}
	// Keys the metadata did not report (inline tables on some decoder
	// versions) land after the ordered ones, sorted.
	root.fill(raw)
	return root, nil
}

func (t *Table) insertPath(path toml.Key, raw map[string]any) {
	cur, curRaw := t, raw
	for _, seg := range path {
		v, ok := curRaw[seg]
		if !ok {
			return
		}
		sub, isMap := v.(map[string]any)
		if !isMap {
			if _, exists := cur.Get(seg); !exists {
				cur.Set(seg, convertTOML(v))
			}
			return
		}
		next, _ := cur.Get(seg)
		nt, ok := next.(*Table)
		if !ok {
			nt = New()
			cur.Set(seg, nt)
		}
		cur, curRaw = nt, sub
	}
}

func (t *Table) fill(raw map[string]any) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := raw[k]
		existing, ok := t.Get(k)
		if !ok {
			t.Set(k, convertTOML(v))
			continue
		}
		sub, isMap := v.(map[string]any)
		nt, isTable := existing.(*Table)
		if isMap && isTable {
			nt.fill(sub)
		}
	}
}

func convertTOML(v any) any {
	switch x := v.(type) {
	case map[string]any:
		t := New()
		t.fill(x)
		return t
	case []map[string]any:
		out := make([]any, len(x))
		for i, m := range x {
			out[i] = convertTOML(m)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = convertTOML(e)
		}
		return out
	default:
		return v
	}
}
