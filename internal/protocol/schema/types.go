package schema

import (
	"fmt"
	"math"
	"strconv"

	"github.com/danmuck/msggen/internal/table"
)

// DefaultCharsLength applies to the bare "chars" keyword.
const DefaultCharsLength = 10

// MaxCharsLength keeps a single array inside the one-byte payload length.
const MaxCharsLength = 255

// Kind is the closed set of field types.
type Kind uint8

const (
	KindI8 Kind = iota + 1
	KindI16
	KindI32
	KindU8
	KindU16
	KindU32
	KindF32
	KindChars
)

var kindNames = map[string]Kind{
	"i8":    KindI8,
	"i16":   KindI16,
	"i32":   KindI32,
	"u8":    KindU8,
	"u16":   KindU16,
	"u32":   KindU32,
	"f32":   KindF32,
	"chars": KindChars,
}

func (k Kind) String() string {
	switch k {
	case KindI8:
		return "i8"
	case KindI16:
		return "i16"
	case KindI32:
		return "i32"
	case KindU8:
		return "u8"
	case KindU16:
		return "u16"
	case KindU32:
		return "u32"
	case KindF32:
		return "f32"
	case KindChars:
		return "chars"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

func (k Kind) IsInteger() bool {
	return k >= KindI8 && k <= KindU32
}

func (k Kind) IsSigned() bool {
	return k == KindI8 || k == KindI16 || k == KindI32
}

// Width is the encoded size of a scalar kind in bytes, 0 for chars.
func (k Kind) Width() int {
	switch k {
	case KindI8, KindU8:
		return 1
	case KindI16, KindU16:
		return 2
	case KindI32, KindU32, KindF32:
		return 4
	default:
		return 0
	}
}

// Bounds is an inclusive [Min, Max] range used for clamping on write.
type Bounds[T int64 | float64] struct {
	Min T
	Max T
}

func (b Bounds[T]) Valid() bool {
	return b.Min < b.Max
}

func (b Bounds[T]) Within(outer Bounds[T]) bool {
	return b.Min >= outer.Min && b.Max <= outer.Max
}

// Clamp pulls v into the range. NaN passes through unchanged.
func (b Bounds[T]) Clamp(v T) T {
	if v < b.Min {
		return b.Min
	}
	if b.Max < v {
		return b.Max
	}
	return v
}

// NativeInt returns the representable range of an integer kind.
func NativeInt(k Kind) Bounds[int64] {
	switch k {
	case KindI8:
		return Bounds[int64]{Min: math.MinInt8, Max: math.MaxInt8}
	case KindI16:
		return Bounds[int64]{Min: math.MinInt16, Max: math.MaxInt16}
	case KindI32:
		return Bounds[int64]{Min: math.MinInt32, Max: math.MaxInt32}
	case KindU8:
		return Bounds[int64]{Min: 0, Max: math.MaxUint8}
	case KindU16:
		return Bounds[int64]{Min: 0, Max: math.MaxUint16}
	case KindU32:
		return Bounds[int64]{Min: 0, Max: math.MaxUint32}
	default:
		return Bounds[int64]{}
	}
}

// NativeFloat is the finite range of a 32-bit float.
func NativeFloat() Bounds[float64] {
	return Bounds[float64]{Min: -math.MaxFloat32, Max: math.MaxFloat32}
}

// Type is a field type. Int is meaningful for integer kinds, Float for f32
// and Length for chars.
type Type struct {
	Kind   Kind
	Int    Bounds[int64]
	Float  Bounds[float64]
	Length int
}

// Scalar returns a scalar type with its native bounds.
func Scalar(k Kind) Type {
	if k == KindF32 {
		return Type{Kind: k, Float: NativeFloat()}
	}
	return Type{Kind: k, Int: NativeInt(k)}
}

func Chars(n int) Type {
	return Type{Kind: KindChars, Length: n}
}

// Size is the number of payload bytes the type occupies.
func (t Type) Size() int {
	if t.Kind == KindChars {
		return t.Length
	}
	return t.Kind.Width()
}

// Narrowed reports whether the bounds differ from the native range.
func (t Type) Narrowed() bool {
	switch {
	case t.Kind.IsInteger():
		return t.Int != NativeInt(t.Kind)
	case t.Kind == KindF32:
		return t.Float != NativeFloat()
	default:
		return false
	}
}

func (t Type) String() string {
	switch {
	case t.Kind == KindChars:
		return fmt.Sprintf("chars[%d]", t.Length)
	case !t.Narrowed():
		return t.Kind.String()
	case t.Kind == KindF32:
		return fmt.Sprintf("f32[%s, %s]", FormatFloat(t.Float.Min), FormatFloat(t.Float.Max))
	default:
		return fmt.Sprintf("%s[%d, %d]", t.Kind, t.Int.Min, t.Int.Max)
	}
}

// FormatFloat renders a bound with the shortest text that round-trips.
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	for _, c := range s {
		if c == '.' || c == 'e' || c == 'E' || c == 'n' || c == 'N' || c == 'I' {
			return s
		}
	}
	return s + ".0"
}

// ParseType maps a declaration to a Type. raw is either a bare keyword or a
// table holding "type" and optional "min", "max" and "size" keys.
func ParseType(raw any) (Type, error) {
	switch v := raw.(type) {
	case string:
		return typeFromName(v)
	case *table.Table:
		return typeFromTable(v)
	default:
		return Type{}, fmt.Errorf("%w: declaration is %s", ErrTypeInvalid, table.KindOf(raw))
	}
}

func typeFromName(name string) (Type, error) {
	k, ok := kindNames[name]
	if !ok {
		return Type{}, fmt.Errorf("%w: unknown type %q", ErrTypeInvalid, name)
	}
	if k == KindChars {
		return Chars(DefaultCharsLength), nil
	}
	return Scalar(k), nil
}

func typeFromTable(t *table.Table) (Type, error) {
	rawName, ok := t.Get("type")
	if !ok {
		return Type{}, ErrTypeNotFound
	}
	name, ok := rawName.(string)
	if !ok {
		return Type{}, fmt.Errorf("%w: type is %s", ErrTypeInvalid, table.KindOf(rawName))
	}
	typ, err := typeFromName(name)
	if err != nil {
		return Type{}, err
	}

	switch {
	case typ.Kind == KindChars:
		return charsFromTable(t)
	case typ.Kind == KindF32:
		b, err := floatBounds(t, typ.Float)
		if err != nil {
			return Type{}, err
		}
		typ.Float = b
	default:
		b, err := intBounds(t, typ.Int)
		if err != nil {
			return Type{}, err
		}
		typ.Int = b
	}
	return typ, nil
}

func charsFromTable(t *table.Table) (Type, error) {
	rawSize, ok := t.Get("size")
	if !ok {
		return Type{}, ErrSizeNotFound
	}
	size, ok := rawSize.(int64)
	if !ok {
		return Type{}, fmt.Errorf("%w: size is %s", ErrCharSizeInvalid, table.KindOf(rawSize))
	}
	if size <= 0 || size > MaxCharsLength {
		return Type{}, fmt.Errorf("%w: size %d outside [1, %d]", ErrCharSizeInvalid, size, MaxCharsLength)
	}
	return Chars(int(size)), nil
}

func intBounds(t *table.Table, native Bounds[int64]) (Bounds[int64], error) {
	b := native
	for _, key := range []string{"min", "max"} {
		raw, ok := t.Get(key)
		if !ok {
			continue
		}
		v, ok := raw.(int64)
		if !ok {
			return Bounds[int64]{}, fmt.Errorf("%w: %s is %s, want integer", ErrBoundsInvalid, key, table.KindOf(raw))
		}
		if key == "min" {
			b.Min = v
		} else {
			b.Max = v
		}
	}
	if !b.Within(native) {
		return Bounds[int64]{}, fmt.Errorf("%w: [%d, %d] exceeds native range [%d, %d]",
			ErrBoundsInvalid, b.Min, b.Max, native.Min, native.Max)
	}
	if !b.Valid() {
		return Bounds[int64]{}, fmt.Errorf("%w: min %d not below max %d", ErrBoundsInvalid, b.Min, b.Max)
	}
	return b, nil
}

func floatBounds(t *table.Table, native Bounds[float64]) (Bounds[float64], error) {
	b := native
	for _, key := range []string{"min", "max"} {
		raw, ok := t.Get(key)
		if !ok {
			continue
		}
		v, ok := raw.(float64)
		if !ok {
			return Bounds[float64]{}, fmt.Errorf("%w: %s is %s, want float", ErrBoundsInvalid, key, table.KindOf(raw))
		}
		if math.IsNaN(v) {
			return Bounds[float64]{}, fmt.Errorf("%w: %s is NaN", ErrBoundsInvalid, key)
		}
		if key == "min" {
			b.Min = v
		} else {
			b.Max = v
		}
	}
	if !b.Within(native) {
		return Bounds[float64]{}, fmt.Errorf("%w: [%s, %s] exceeds native f32 range",
			ErrBoundsInvalid, FormatFloat(b.Min), FormatFloat(b.Max))
	}
	if !b.Valid() {
		return Bounds[float64]{}, fmt.Errorf("%w: min %s not below max %s",
			ErrBoundsInvalid, FormatFloat(b.Min), FormatFloat(b.Max))
	}
	return b, nil
}
