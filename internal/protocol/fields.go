package protocol

import (
	"fmt"
	"strings"

	"github.com/danmuck/msggen/internal/protocol/schema"
)

// Message is an instance of a MsgSpec holding one value per field.
type Message struct {
	Spec   schema.MsgSpec
	values []Value
}

// NewMessage returns a message with every field zeroed.
func NewMessage(spec schema.MsgSpec) *Message {
	m := &Message{Spec: spec, values: make([]Value, len(spec.Fields))}
	for i, f := range spec.Fields {
		m.values[i] = zeroValue(f.Type)
	}
	return m
}

// Set stores raw into the named field. Out-of-range numbers are clamped
// and chars are fitted to the declared length; only a value of the wrong
// kind is an error.
func (m *Message) Set(name string, raw any) error {
	f, idx, ok := m.Spec.Field(name)
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, m.Spec.Name, name)
	}
	v, ok := coerce(f.Type, raw)
	if !ok {
		return fmt.Errorf("%w: %s.%s is %s, got %T", ErrValueType, m.Spec.Name, name, f.Type, raw)
	}
	m.values[idx] = v
	return nil
}

func (m *Message) Get(name string) (Value, error) {
	_, idx, ok := m.Spec.Field(name)
	if !ok {
		return Value{}, fmt.Errorf("%w: %s.%s", ErrUnknownField, m.Spec.Name, name)
	}
	return m.values[idx], nil
}

// Values returns the field values in declaration order.
func (m *Message) Values() []Value {
	out := make([]Value, len(m.values))
	copy(out, m.values)
	return out
}

func (m *Message) String() string {
	var b strings.Builder
	b.WriteString(m.Spec.Name)
	b.WriteString("(")
	for i, f := range m.Spec.Fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.Name)
		b.WriteString("=")
		b.WriteString(m.values[i].String())
	}
	b.WriteString(")")
	return b.String()
}
