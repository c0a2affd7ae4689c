package schema

import (
	"fmt"
	"math"

	"github.com/danmuck/msggen/internal/table"
	"github.com/rs/zerolog/log"
)

// Wire limits the model must respect: the id and the payload length are
// each carried in a single byte.
const (
	MaxPayloadSize = math.MaxUint8
	MaxMessages    = math.MaxUint8 + 1
)

// Handshake message prepended when requested. Peers exchange the build
// identifier through it, so it always takes id 0.
const (
	HandshakeClass   = "interMCU"
	HandshakeMessage = "uid"
	HandshakeField   = "uid"
)

type Field struct {
	Name string
	Type Type
}

// MsgSpec is one message. Fields are laid out on the wire in slice order.
type MsgSpec struct {
	Name   string
	Class  string
	ID     uint8
	Fields []Field
}

// PayloadSize is the sum of the field sizes.
func (m MsgSpec) PayloadSize() int {
	n := 0
	for _, f := range m.Fields {
		n += f.Type.Size()
	}
	return n
}

// Field looks up a field by name and returns its position.
func (m MsgSpec) Field(name string) (Field, int, bool) {
	for i, f := range m.Fields {
		if f.Name == name {
			return f, i, true
		}
	}
	return Field{}, -1, false
}

// UIDMessage is the built-in handshake message.
func UIDMessage() MsgSpec {
	return MsgSpec{
		Name:   ClassCase(HandshakeClass) + ClassCase(HandshakeMessage),
		Class:  HandshakeClass,
		Fields: []Field{{Name: HandshakeField, Type: Scalar(KindU32)}},
	}
}

type parseConfig struct {
	handshake bool
}

// Option tunes Parse.
type Option func(*parseConfig)

// WithHandshake prepends UIDMessage to the parsed messages.
func WithHandshake() Option {
	return func(c *parseConfig) { c.handshake = true }
}

// Parse validates the class tables under root and returns the messages with
// ids assigned. Schema errors are collected across every field and message
// and returned together as an ErrorList; no messages are returned then. A
// class or message that is not a table stops parsing with ErrStructure.
func Parse(root *table.Table, opts ...Option) ([]MsgSpec, error) {
	var cfg parseConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	var (
		msgs []MsgSpec
		errs ErrorList
		seen = make(map[string]string)
	)
	if cfg.handshake {
		uid := UIDMessage()
		msgs = append(msgs, uid)
		seen[uid.Name] = "built-in handshake"
	}

	for _, class := range root.Entries() {
		classTable, ok := class.Value.(*table.Table)
		if !ok {
			return nil, fmt.Errorf("%w: class %q is %s, want table",
				ErrStructure, class.Key, table.KindOf(class.Value))
		}
		for _, entry := range classTable.Entries() {
			fields, ok := entry.Value.(*table.Table)
			if !ok {
				return nil, fmt.Errorf("%w: message %q.%q is %s, want table",
					ErrStructure, class.Key, entry.Key, table.KindOf(entry.Value))
			}
			msg, msgErrs := parseMessage(class.Key, entry.Key, fields)
			errs = append(errs, msgErrs...)

			source := class.Key + "." + entry.Key
			if prev, dup := seen[msg.Name]; dup && msg.Name != "" {
				errs = append(errs, MessageError{
					Message: msg.Name,
					Err:     fmt.Errorf("%w: %s collides with %s", ErrDuplicateName, source, prev),
				})
			} else {
				seen[msg.Name] = source
			}
			msgs = append(msgs, msg)
		}
	}

	if len(msgs) > MaxMessages {
		errs = append(errs, fmt.Errorf("%w: %d declared, at most %d", ErrTooManyMessages, len(msgs), MaxMessages))
	}
	if len(errs) > 0 {
		log.Debug().Int("errors", len(errs)).Msg("schema: parse failed")
		return nil, errs
	}
	AssignIDs(msgs)
	log.Debug().Int("messages", len(msgs)).Msg("schema: parsed")
	return msgs, nil
}

func parseMessage(class, message string, fields *table.Table) (MsgSpec, ErrorList) {
	msg := MsgSpec{
		Name:   ClassCase(class) + ClassCase(message),
		Class:  class,
		Fields: make([]Field, 0, fields.Len()),
	}
	var errs ErrorList
	label := msg.Name
	if !IsIdentifier(msg.Name) || ClassCase(class) == "" || ClassCase(message) == "" {
		label = class + "." + message
		errs = append(errs, MessageError{
			Message: label,
			Err:     fmt.Errorf("%w: %q does not canonicalize to a type name", ErrNameInvalid, label),
		})
		msg.Name = ""
	} else if lang, taken := RuntimeType(msg.Name); taken {
		errs = append(errs, MessageError{
			Message: label,
			Err:     fmt.Errorf("%w: %s is defined by the generated %s runtime", ErrNameInvalid, msg.Name, lang),
		})
	}

	for _, entry := range fields.Entries() {
		if !IsIdentifier(entry.Key) {
			errs = append(errs, FieldError{
				Message: label,
				Field:   entry.Key,
				Err:     fmt.Errorf("%w: not an identifier or reserved", ErrNameInvalid),
			})
			continue
		}
		typ, err := ParseType(entry.Value)
		if err != nil {
			errs = append(errs, FieldError{Message: label, Field: entry.Key, Err: err})
			continue
		}
		msg.Fields = append(msg.Fields, Field{Name: entry.Key, Type: typ})
	}

	if size := msg.PayloadSize(); size > MaxPayloadSize {
		errs = append(errs, MessageError{
			Message: label,
			Err:     fmt.Errorf("%w: %d bytes, at most %d", ErrPayloadTooLarge, size, MaxPayloadSize),
		})
	}
	return msg, errs
}

// AssignIDs numbers messages by position. Callers must keep the slice in
// declaration order: the ids are wire values.
func AssignIDs(msgs []MsgSpec) []MsgSpec {
	for i := range msgs {
		msgs[i].ID = uint8(i)
	}
	return msgs
}
