// Package cgen emits a C99 header and source pair for the message model.
package cgen

import (
	"errors"
	"fmt"

	"github.com/danmuck/msggen/internal/emit"
	"github.com/danmuck/msggen/internal/protocol/frame"
	"github.com/danmuck/msggen/internal/protocol/schema"
)

const (
	HeaderFile = "messages.h"
	SourceFile = "messages.c"
)

// ErrSymbolClash reports two generated C identifiers with the same spelling.
var ErrSymbolClash = errors.New("cgen: generated symbol defined twice")

type Backend struct{}

func New() *Backend { return &Backend{} }

func (*Backend) Language() string { return "c" }

func (*Backend) Emit(msgs []schema.MsgSpec, buildID uint32) ([]emit.File, error) {
	layouts := make([]frame.Layout, len(msgs))
	for i, m := range msgs {
		layouts[i] = frame.LayoutOf(m)
	}
	if err := checkSymbols(layouts); err != nil {
		return nil, err
	}
	return []emit.File{
		{Name: HeaderFile, Text: header(layouts, buildID)},
		{Name: SourceFile, Text: source(layouts, buildID)},
	}, nil
}

func ctype(t schema.Type) string {
	switch t.Kind {
	case schema.KindI8:
		return "int8_t"
	case schema.KindI16:
		return "int16_t"
	case schema.KindI32:
		return "int32_t"
	case schema.KindU8:
		return "uint8_t"
	case schema.KindU16:
		return "uint16_t"
	case schema.KindU32:
		return "uint32_t"
	case schema.KindF32:
		return "float"
	default:
		return "char"
	}
}

// MessageMacro names a per-message macro, e.g. "DriveSpeed_FRAME_SIZE".
// Message names never contain an underscore, so the first underscore
// always ends the message part and macros of distinct messages and fields
// cannot collide.
func MessageMacro(message, suffix string) string {
	return message + "_" + suffix
}

// FieldMacro names a per-field macro, e.g. "DriveSpeed_left_MAX".
func FieldMacro(message, field, suffix string) string {
	return message + "_" + field + "_" + suffix
}

func macro(l frame.Layout, suffix string) string {
	return MessageMacro(l.Message.Name, suffix)
}

func fieldMacro(l frame.Layout, f schema.Field, suffix string) string {
	return FieldMacro(l.Message.Name, f.Name, suffix)
}

// symbols lists the file-scope identifiers emitted for one message.
func symbols(l frame.Layout) []string {
	name := l.Message.Name
	out := []string{
		name,
		macro(l, "ID"),
		macro(l, "PAYLOAD_SIZE"),
		macro(l, "FRAME_SIZE"),
		name + "_init",
		name + "_serialize",
		name + "_deserialize",
	}
	for _, f := range l.Message.Fields {
		out = append(out, name+"_get_"+f.Name, name+"_set_"+f.Name)
		if f.Type.Kind == schema.KindChars {
			out = append(out, fieldMacro(l, f, "LEN"))
			continue
		}
		out = append(out, fieldMacro(l, f, "MIN"), fieldMacro(l, f, "MAX"))
	}
	return out
}

// checkSymbols fails when a field name makes one message's identifiers
// spell another, e.g. a field "set" with a range next to a field "MIN".
func checkSymbols(layouts []frame.Layout) error {
	owner := make(map[string]string)
	for _, l := range layouts {
		for _, sym := range symbols(l) {
			if prev, ok := owner[sym]; ok {
				return fmt.Errorf("%w: %s (messages %s and %s)", ErrSymbolClash, sym, prev, l.Message.Name)
			}
			owner[sym] = l.Message.Name
		}
	}
	return nil
}

func intLiteral(v int64) string {
	if v < 0 {
		return fmt.Sprintf("(%dLL)", v)
	}
	return fmt.Sprintf("%dLL", v)
}

func floatLiteral(v float64) string {
	if v < 0 {
		return "(" + schema.FormatFloat(v) + ")"
	}
	return schema.FormatFloat(v)
}

func maxFrame(layouts []frame.Layout) int {
	n := frame.Overhead
	for _, l := range layouts {
		if l.FrameSize > n {
			n = l.FrameSize
		}
	}
	return n
}

func header(layouts []frame.Layout, buildID uint32) string {
	w := emit.NewWriter("    ")
	w.Line("/* %s */", emit.Banner(buildID))
	w.Line("#ifndef MSGGEN_MESSAGES_H")
	w.Line("#define MSGGEN_MESSAGES_H")
	w.Line("")
	w.Line("#include <stddef.h>")
	w.Line("#include <stdint.h>")
	w.Line("")
	w.Line("#ifdef __cplusplus")
	w.Line(`extern "C" {`)
	w.Line("#endif")
	w.Line("")
	w.Line("#define MSG_BUILD_ID %su", emit.BuildIDHex(buildID))
	w.Line("#define MSG_SYNC_BYTE 0xFFu")
	w.Line("#define MSG_HEADER_SIZE %du", frame.HeaderLen)
	w.Line("#define MSG_OVERHEAD %du", frame.Overhead)
	w.Line("#define MSG_COUNT %du", len(layouts))
	w.Line("#define MSG_MAX_FRAME_SIZE %du", maxFrame(layouts))
	w.Line("#define MSG_STREAM_BUFFER_SIZE %du", frame.MaxFrameLen)

	for _, l := range layouts {
		m := l.Message
		w.Line("")
		w.Line("/* %s: id %d, payload %d bytes, frame %d bytes */", m.Name, m.ID, l.PayloadSize, l.FrameSize)
		w.Line("#define %s %du", macro(l, "ID"), m.ID)
		w.Line("#define %s %du", macro(l, "PAYLOAD_SIZE"), l.PayloadSize)
		w.Line("#define %s %du", macro(l, "FRAME_SIZE"), l.FrameSize)
		for _, f := range m.Fields {
			switch {
			case f.Type.Kind == schema.KindChars:
				w.Line("#define %s %du", fieldMacro(l, f, "LEN"), f.Type.Length)
			case f.Type.Kind == schema.KindF32:
				w.Line("#define %s %s", fieldMacro(l, f, "MIN"), floatLiteral(f.Type.Float.Min))
				w.Line("#define %s %s", fieldMacro(l, f, "MAX"), floatLiteral(f.Type.Float.Max))
			default:
				w.Line("#define %s %s", fieldMacro(l, f, "MIN"), intLiteral(f.Type.Int.Min))
				w.Line("#define %s %s", fieldMacro(l, f, "MAX"), intLiteral(f.Type.Int.Max))
			}
		}
		w.Line("")
		w.Block("typedef struct {", "} "+m.Name+";", func() {
			if len(m.Fields) == 0 {
				w.Line("uint8_t _unused;")
			}
			for _, f := range m.Fields {
				if f.Type.Kind == schema.KindChars {
					w.Line("char %s[%s];", f.Name, fieldMacro(l, f, "LEN"))
					continue
				}
				w.Line("%s %s;", ctype(f.Type), f.Name)
			}
		})
		w.Line("")
		w.Line("void %s_init(%s *m);", m.Name, m.Name)
		for _, f := range m.Fields {
			switch f.Type.Kind {
			case schema.KindChars:
				w.Line("const char *%s_get_%s(const %s *m);", m.Name, f.Name, m.Name)
				w.Line("void %s_set_%s(%s *m, const char *data, size_t len);", m.Name, f.Name, m.Name)
			case schema.KindF32:
				w.Line("float %s_get_%s(const %s *m);", m.Name, f.Name, m.Name)
				w.Line("void %s_set_%s(%s *m, double value);", m.Name, f.Name, m.Name)
			default:
				w.Line("%s %s_get_%s(const %s *m);", ctype(f.Type), m.Name, f.Name, m.Name)
				w.Line("void %s_set_%s(%s *m, int64_t value);", m.Name, f.Name, m.Name)
			}
		}
		w.Line("size_t %s_serialize(const %s *m, uint8_t *buf, size_t len);", m.Name, m.Name)
		w.Line("int %s_deserialize(%s *m, const uint8_t *frame, size_t len);", m.Name, m.Name)
	}

	w.Line("")
	w.Block("typedef struct {", "} MsgAny;", func() {
		w.Line("uint8_t id;")
		w.Block("union {", "} u;", func() {
			if len(layouts) == 0 {
				w.Line("uint8_t _none;")
			}
			for _, l := range layouts {
				w.Line("%s as_%s;", l.Message.Name, l.Message.Name)
			}
		})
	})
	w.Line("")
	w.Block("typedef struct {", "} MsgParser;", func() {
		w.Line("uint8_t state;")
		w.Line("uint16_t pos;")
		w.Line("uint16_t need;")
		w.Line("uint8_t buf[MSG_STREAM_BUFFER_SIZE];")
	})
	w.Line("")
	w.Line("uint16_t msg_checksum(const uint8_t *data, size_t len);")
	w.Line("size_t msg_frame_size(uint8_t id);")
	w.Line("const char *msg_name(uint8_t id);")
	w.Line("int msg_dispatch(MsgAny *out, const uint8_t *frame, size_t len);")
	w.Line("void msg_parser_init(MsgParser *p);")
	w.Line("int msg_parser_feed(MsgParser *p, uint8_t byte, MsgAny *out);")
	w.Line("")
	w.Line("#ifdef __cplusplus")
	w.Line("}")
	w.Line("#endif")
	w.Line("")
	w.Line("#endif /* MSGGEN_MESSAGES_H */")
	return w.String()
}
