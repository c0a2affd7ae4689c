// Package table holds the ordered, untyped key/value tree that schema
// documents are decoded into before validation.
//
// Values stored in a Table are one of: string, int64, float64, bool,
// []any, *Table, or nil. Key order is the order keys appeared in the source
// document; message ids depend on it.
package table

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	ErrDecode        = errors.New("table: decode failed")
	ErrUnknownFormat = errors.New("table: unknown document format")
)

// Format names a document syntax.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// Entry is one key/value pair of a Table.
type Entry struct {
	Key   string
	Value any
}

// Table is an insertion-ordered map.
type Table struct {
	entries []Entry
	index   map[string]int
}

func New() *Table {
	return &Table{index: make(map[string]int)}
}

// Set stores v under key. Replacing an existing key keeps its position.
func (t *Table) Set(key string, v any) {
	if i, ok := t.index[key]; ok {
		t.entries[i].Value = v
		return
	}
	t.index[key] = len(t.entries)
	t.entries = append(t.entries, Entry{Key: key, Value: v})
}

func (t *Table) Get(key string) (any, bool) {
	i, ok := t.index[key]
	if !ok {
		return nil, false
	}
	return t.entries[i].Value, true
}

func (t *Table) Len() int {
	return len(t.entries)
}

// Keys returns keys in document order.
func (t *Table) Keys() []string {
	keys := make([]string, len(t.entries))
	for i, e := range t.entries {
		keys[i] = e.Key
	}
	return keys
}

// Entries returns a copy of the entries in document order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// KindOf names the kind of a table value for error messages.
func KindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case int64:
		return "integer"
	case float64:
		return "float"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case *Table:
		return "table"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// ParseFormat resolves a user supplied format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "toml":
		return FormatTOML, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// FormatFromPath guesses the format from a file extension, defaulting to TOML.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// Load decodes data in the given format.
func Load(data []byte, format Format) (*Table, error) {
	switch format {
	case FormatTOML, "":
		return FromTOML(data)
	case FormatYAML:
		return FromYAML(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
