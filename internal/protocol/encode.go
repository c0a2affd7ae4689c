package protocol

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/danmuck/msggen/internal/protocol/frame"
	"github.com/danmuck/msggen/internal/protocol/schema"
)

// EncodePayload lays the values out in declaration order, little-endian,
// signed kinds in two's complement.
func EncodePayload(m *Message) []byte {
	buf := make([]byte, m.Spec.PayloadSize())
	off := 0
	for i, f := range m.Spec.Fields {
		off += putValue(buf[off:], f.Type, m.values[i])
	}
	return buf
}

func putValue(dst []byte, t schema.Type, v Value) int {
	switch t.Kind {
	case schema.KindI8, schema.KindU8:
		dst[0] = byte(v.Int)
	case schema.KindI16, schema.KindU16:
		binary.LittleEndian.PutUint16(dst, uint16(v.Int))
	case schema.KindI32, schema.KindU32:
		binary.LittleEndian.PutUint32(dst, uint32(v.Int))
	case schema.KindF32:
		binary.LittleEndian.PutUint32(dst, math.Float32bits(v.Float))
	case schema.KindChars:
		copy(dst[:t.Length], v.Bytes)
	}
	return t.Size()
}

// Encode returns the full frame for m.
func Encode(m *Message) ([]byte, error) {
	return frame.Encode(m.Spec.ID, EncodePayload(m))
}

// Write writes the full frame for m to w.
func Write(w io.Writer, m *Message) error {
	return frame.WriteFrame(w, frame.Frame{ID: m.Spec.ID, Payload: EncodePayload(m)})
}
