// Package pygen emits a self-contained Python 3 module for the message model.
package pygen

import (
	"fmt"
	"strings"

	"github.com/danmuck/msggen/internal/emit"
	"github.com/danmuck/msggen/internal/protocol/frame"
	"github.com/danmuck/msggen/internal/protocol/schema"
)

const ModuleFile = "messages.py"

type Backend struct{}

func New() *Backend { return &Backend{} }

func (*Backend) Language() string { return "python" }

func (*Backend) Emit(msgs []schema.MsgSpec, buildID uint32) ([]emit.File, error) {
	w := emit.NewWriter("    ")
	w.Line("# %s", emit.Banner(buildID))
	w.Line(`"""Message records for the msggen frame protocol."""`)
	w.Line("")
	w.Line("import struct")
	w.Line("")
	w.Line("BUILD_ID = %s", emit.BuildIDHex(buildID))
	w.Line("SYNC_BYTE = 0xFF")
	w.Line("HEADER_SIZE = %d", frame.HeaderLen)
	w.Line("OVERHEAD = %d", frame.Overhead)
	w.Raw(prelude)

	for _, m := range msgs {
		w.Line("")
		w.Line("")
		class(w, frame.LayoutOf(m))
	}

	w.Line("")
	w.Line("")
	if len(msgs) == 0 {
		w.Line("MESSAGES = {}")
	} else {
		w.Block("MESSAGES = {", "}", func() {
			for _, m := range msgs {
				w.Line("%s.ID: %s,", m.Name, m.Name)
			}
		})
	}
	w.Raw(dispatch)
	return []emit.File{{Name: ModuleFile, Text: w.String()}}, nil
}

const prelude = `

class FrameError(ValueError):
    """Raised when a frame fails validation."""


def clamp(low, value, high):
    return max(min(value, high), low)


def checksum(data):
    a = 0
    b = 0
    for byte in data:
        a = (a + byte) & 0xFF
        b = (b + a) & 0xFF
    return (a << 8) | b


def _f32(value):
    return struct.unpack("<f", struct.pack("<f", value))[0]


def _chars(value, size):
    if isinstance(value, str):
        value = value.encode("utf-8")
    return bytes(value[:size]).ljust(size, b"\x00")


def _check_frame(frame, msg_id, payload_size):
    if len(frame) != payload_size + OVERHEAD:
        raise FrameError("frame is %d bytes, want %d" % (len(frame), payload_size + OVERHEAD))
    if frame[0] != SYNC_BYTE or frame[1] != SYNC_BYTE:
        raise FrameError("missing sync bytes")
    if frame[2] != msg_id or frame[3] != payload_size:
        raise FrameError("header does not match message %d" % msg_id)
    end = HEADER_SIZE + payload_size
    (expected,) = struct.unpack_from("<H", frame, end)
    if checksum(frame[2:end]) != expected:
        raise FrameError("checksum mismatch")
`

const dispatch = `

def dispatch(frame):
    """Decode a complete frame into the message its id byte names."""
    if len(frame) < OVERHEAD:
        raise FrameError("short frame")
    cls = MESSAGES.get(frame[2])
    if cls is None:
        raise FrameError("unknown message id %d" % frame[2])
    return cls.deserialize(frame)


class Parser:
    """Incremental stream decoder that resynchronizes on the sync bytes."""

    def __init__(self):
        self.dropped = 0
        self._state = 0
        self._need = 0
        self._frame = bytearray()

    def feed(self, data):
        """Consume bytes and return the messages they complete."""
        out = []
        for byte in bytes(data):
            if self._state == 0:
                self._state = 1 if byte == SYNC_BYTE else 0
            elif self._state == 1:
                self._state = 2 if byte == SYNC_BYTE else 0
            elif self._state == 2:
                self._frame = bytearray((SYNC_BYTE, SYNC_BYTE, byte))
                self._state = 3
            elif self._state == 3:
                self._frame.append(byte)
                self._need = byte + OVERHEAD
                self._state = 4
            else:
                self._frame.append(byte)
                if len(self._frame) < self._need:
                    continue
                self._state = 0
                try:
                    out.append(dispatch(bytes(self._frame)))
                except FrameError:
                    self.dropped += 1
        return out
`

// structCode is the struct module format character for a field.
func structCode(t schema.Type) string {
	switch t.Kind {
	case schema.KindI8:
		return "b"
	case schema.KindI16:
		return "h"
	case schema.KindI32:
		return "i"
	case schema.KindU8:
		return "B"
	case schema.KindU16:
		return "H"
	case schema.KindU32:
		return "I"
	case schema.KindF32:
		return "f"
	default:
		return fmt.Sprintf("%ds", t.Length)
	}
}

func floatLiteral(v float64) string {
	return schema.FormatFloat(v)
}

func zero(t schema.Type) string {
	switch {
	case t.Kind == schema.KindChars:
		return fmt.Sprintf(`b"\x00" * %d`, t.Length)
	case t.Kind == schema.KindF32:
		return "0.0"
	default:
		return "0"
	}
}

func class(w *emit.Writer, l frame.Layout) {
	m := l.Message
	var format strings.Builder
	format.WriteString("<")
	for _, f := range m.Fields {
		format.WriteString(structCode(f.Type))
	}

	w.Line("class %s:", m.Name)
	w.Indent()
	w.Line(`"""%s message: id %d, payload %d bytes, frame %d bytes."""`, m.Name, m.ID, l.PayloadSize, l.FrameSize)
	w.Line("")
	w.Line("ID = %d", m.ID)
	w.Line("NAME = %q", m.Name)
	w.Line("PAYLOAD_SIZE = %d", l.PayloadSize)
	w.Line("FRAME_SIZE = %d", l.FrameSize)
	w.Line("FORMAT = %q", format.String())
	w.Line("")
	w.Line(`__slots__ = ("_values",)`)
	w.Line("")
	w.Block("def __init__(self):", "", func() {
		zeros := make([]string, len(m.Fields))
		for i, f := range m.Fields {
			zeros[i] = zero(f.Type)
		}
		w.Line("self._values = [%s]", strings.Join(zeros, ", "))
	})

	for i, f := range m.Fields {
		w.Line("")
		w.Line("@property")
		w.Block(fmt.Sprintf("def %s(self):", f.Name), "", func() {
			w.Line("return self._values[%d]", i)
		})
		w.Line("")
		w.Line("@%s.setter", f.Name)
		w.Block(fmt.Sprintf("def %s(self, value):", f.Name), "", func() {
			switch f.Type.Kind {
			case schema.KindChars:
				w.Line("self._values[%d] = _chars(value, %d)", i, f.Type.Length)
			case schema.KindF32:
				w.Line("self._values[%d] = _f32(clamp(%s, float(value), %s))",
					i, floatLiteral(f.Type.Float.Min), floatLiteral(f.Type.Float.Max))
			default:
				w.Line("self._values[%d] = clamp(%d, int(value), %d)", i, f.Type.Int.Min, f.Type.Int.Max)
			}
		})
	}

	w.Line("")
	w.Block("def serialize(self):", "", func() {
		w.Line(`"""Return the complete frame."""`)
		w.Line("buf = bytearray(self.FRAME_SIZE)")
		w.Line("buf[0] = SYNC_BYTE")
		w.Line("buf[1] = SYNC_BYTE")
		w.Line("buf[2] = self.ID")
		w.Line("buf[3] = self.PAYLOAD_SIZE")
		w.Line("struct.pack_into(self.FORMAT, buf, HEADER_SIZE, *self._values)")
		w.Line("end = HEADER_SIZE + self.PAYLOAD_SIZE")
		w.Line(`struct.pack_into("<H", buf, end, checksum(buf[2:end]))`)
		w.Line("return bytes(buf)")
	})
	w.Line("")
	w.Line("@classmethod")
	w.Block("def deserialize(cls, frame):", "", func() {
		w.Line(`"""Decode a complete frame; raises FrameError when it does not validate."""`)
		w.Line("_check_frame(frame, cls.ID, cls.PAYLOAD_SIZE)")
		w.Line("msg = cls()")
		w.Line("msg._values = list(struct.unpack_from(cls.FORMAT, frame, HEADER_SIZE))")
		w.Line("return msg")
	})
	w.Line("")
	w.Block("def __eq__(self, other):", "", func() {
		w.Line("return type(other) is type(self) and other._values == self._values")
	})
	w.Line("")
	w.Block("def __repr__(self):", "", func() {
		parts := make([]string, len(m.Fields))
		for i, f := range m.Fields {
			parts[i] = f.Name + "=%r"
		}
		if len(m.Fields) == 0 {
			w.Line("return %q", m.Name+"()")
			return
		}
		w.Line("return %q %% tuple(self._values)", m.Name+"("+strings.Join(parts, ", ")+")")
	})
	w.Dedent()
}
