package protocol

import (
	"bytes"
	"strconv"

	"github.com/danmuck/msggen/internal/protocol/schema"
)

// Value is one field value. Int holds every integer kind, Float the f32
// kind and Bytes the fixed-length chars kind.
type Value struct {
	Kind  schema.Kind
	Int   int64
	Float float32
	Bytes []byte
}

func (v Value) String() string {
	switch {
	case v.Kind.IsInteger():
		return strconv.FormatInt(v.Int, 10)
	case v.Kind == schema.KindF32:
		return strconv.FormatFloat(float64(v.Float), 'g', -1, 32)
	case v.Kind == schema.KindChars:
		return strconv.Quote(string(bytes.TrimRight(v.Bytes, "\x00")))
	default:
		return "<invalid>"
	}
}

// Equal compares kind and content.
func (v Value) Equal(o Value) bool {
	return v.Kind == o.Kind && v.Int == o.Int && v.Float == o.Float && bytes.Equal(v.Bytes, o.Bytes)
}

func zeroValue(t schema.Type) Value {
	if t.Kind == schema.KindChars {
		return Value{Kind: t.Kind, Bytes: make([]byte, t.Length)}
	}
	return Value{Kind: t.Kind}
}

// coerce converts raw into a clamped value for t. Integers and floats are
// clamped to the declared bounds, f32 in double precision before rounding.
// Chars are truncated or zero padded to the declared length.
func coerce(t schema.Type, raw any) (Value, bool) {
	switch {
	case t.Kind.IsInteger():
		n, ok := asInt(raw)
		if !ok {
			return Value{}, false
		}
		return Value{Kind: t.Kind, Int: t.Int.Clamp(n)}, true
	case t.Kind == schema.KindF32:
		f, ok := asFloat(raw)
		if !ok {
			return Value{}, false
		}
		return Value{Kind: t.Kind, Float: float32(t.Float.Clamp(f))}, true
	case t.Kind == schema.KindChars:
		var src []byte
		switch s := raw.(type) {
		case string:
			src = []byte(s)
		case []byte:
			src = s
		case Value:
			if s.Kind != schema.KindChars {
				return Value{}, false
			}
			src = s.Bytes
		default:
			return Value{}, false
		}
		buf := make([]byte, t.Length)
		copy(buf, src)
		return Value{Kind: t.Kind, Bytes: buf}, true
	}
	return Value{}, false
}

func asInt(raw any) (int64, bool) {
	switch n := raw.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case Value:
		if n.Kind.IsInteger() {
			return n.Int, true
		}
	}
	return 0, false
}

func asFloat(raw any) (float64, bool) {
	switch f := raw.(type) {
	case float32:
		return float64(f), true
	case float64:
		return f, true
	case Value:
		if f.Kind == schema.KindF32 {
			return float64(f.Float), true
		}
	}
	if n, ok := asInt(raw); ok {
		return float64(n), true
	}
	return 0, false
}
