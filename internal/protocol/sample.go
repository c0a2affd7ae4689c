package protocol

import (
	"strings"

	"github.com/danmuck/msggen/internal/protocol/schema"
)

// Vector is one cross-language test case: the raw inputs handed to the
// setters, the values stored after clamping and the frame that results.
type Vector struct {
	Label  string
	Inputs []any
	Values []Value
	Frame  []byte
}

// Vectors returns the test cases for spec. Every message gets a nominal
// case with in-range inputs; messages with narrowed bounds or chars fields
// also get a case whose inputs must be clamped or truncated.
func Vectors(spec schema.MsgSpec) ([]Vector, error) {
	nominal := make([]any, len(spec.Fields))
	for i, f := range spec.Fields {
		nominal[i] = nominalInput(i, f)
	}
	out := []Vector{}
	v, err := buildVector("nominal", spec, nominal)
	if err != nil {
		return nil, err
	}
	out = append(out, v)

	clamped := make([]any, len(spec.Fields))
	needed := false
	for i, f := range spec.Fields {
		in, ok := outOfRangeInput(f)
		if ok {
			needed = true
		} else {
			in = nominal[i]
		}
		clamped[i] = in
	}
	if needed {
		v, err := buildVector("clamped", spec, clamped)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// SampleMessage is the message of the nominal vector.
func SampleMessage(spec schema.MsgSpec) *Message {
	m := NewMessage(spec)
	for i, f := range spec.Fields {
		// nominal inputs always fit their field
		_ = m.Set(f.Name, nominalInput(i, f))
	}
	return m
}

func buildVector(label string, spec schema.MsgSpec, inputs []any) (Vector, error) {
	m := NewMessage(spec)
	for i, f := range spec.Fields {
		if err := m.Set(f.Name, inputs[i]); err != nil {
			return Vector{}, err
		}
	}
	buf, err := Encode(m)
	if err != nil {
		return Vector{}, err
	}
	return Vector{Label: label, Inputs: inputs, Values: m.Values(), Frame: buf}, nil
}

func nominalInput(idx int, f schema.Field) any {
	t := f.Type
	switch {
	case t.Kind.IsInteger():
		return t.Int.Min + (t.Int.Max-t.Int.Min)*2/3
	case t.Kind == schema.KindF32:
		if !t.Narrowed() {
			return 0.15625 * float64(idx+1)
		}
		return t.Float.Min + (t.Float.Max-t.Float.Min)*0.625
	default:
		return strings.ToUpper(f.Name)
	}
}

func outOfRangeInput(f schema.Field) (any, bool) {
	t := f.Type
	switch {
	case t.Kind.IsInteger():
		native := schema.NativeInt(t.Kind)
		if t.Int.Max < native.Max {
			return t.Int.Max + 1 + (native.Max-t.Int.Max)/2, true
		}
		if t.Int.Min > native.Min {
			return t.Int.Min - 1 - (t.Int.Min-native.Min)/2, true
		}
	case t.Kind == schema.KindF32:
		if t.Narrowed() {
			return t.Float.Max + (t.Float.Max - t.Float.Min), true
		}
	case t.Kind == schema.KindChars:
		return strings.Repeat(f.Name+"-", t.Length/(len(f.Name)+1)+2), true
	}
	return nil, false
}
