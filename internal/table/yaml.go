package table

import (
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

// FromYAML decodes a YAML document. Mapping order is taken from the node
// tree, so it always matches the document.
func FromYAML(data []byte) (*Table, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	node := &doc
	if node.Kind == 0 {
		return New(), nil
	}
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return New(), nil
		}
		node = node.Content[0]
	}
	v, err := fromNode(node)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return New(), nil
	}
	t, ok := v.(*Table)
	if !ok {
		return nil, fmt.Errorf("%w: document root is %s, not a table", ErrDecode, KindOf(v))
	}
	return t, nil
}

func fromNode(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.MappingNode:
		t := New()
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := n.Content[i]
			if k.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("%w: line %d: mapping key is not a scalar", ErrDecode, k.Line)
			}
			if _, dup := t.Get(k.Value); dup {
				return nil, fmt.Errorf("%w: line %d: duplicate key %q", ErrDecode, k.Line, k.Value)
			}
			v, err := fromNode(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			t.Set(k.Value, v)
		}
		return t, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := fromNode(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.AliasNode:
		return fromNode(n.Alias)
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrDecode, n.Line, err)
		}
		return normalizeScalar(v, n.Line)
	default:
		return nil, fmt.Errorf("%w: line %d: unsupported node kind %d", ErrDecode, n.Line, n.Kind)
	}
}

func normalizeScalar(v any, line int) (any, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int64:
		return x, nil
	case uint64:
		if x > math.MaxInt64 {
			return nil, fmt.Errorf("%w: line %d: integer %d overflows int64", ErrDecode, line, x)
		}
		return int64(x), nil
	case float64, string, bool, nil:
		return x, nil
	default:
		return fmt.Sprint(x), nil
	}
}
