package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/danmuck/msggen/internal/protocol/frame"
	"github.com/danmuck/msggen/internal/protocol/schema"
)

// DecodePayload reads field values from payload. Values are taken as they
// are on the wire, without clamping.
func DecodePayload(spec schema.MsgSpec, payload []byte) (*Message, error) {
	if len(payload) != spec.PayloadSize() {
		return nil, fmt.Errorf("%w: %s wants %d bytes, got %d",
			ErrPayloadSize, spec.Name, spec.PayloadSize(), len(payload))
	}
	m := &Message{Spec: spec, values: make([]Value, len(spec.Fields))}
	off := 0
	for i, f := range spec.Fields {
		m.values[i] = readValue(payload[off:], f.Type)
		off += f.Type.Size()
	}
	return m, nil
}

func readValue(src []byte, t schema.Type) Value {
	v := Value{Kind: t.Kind}
	switch t.Kind {
	case schema.KindI8:
		v.Int = int64(int8(src[0]))
	case schema.KindU8:
		v.Int = int64(src[0])
	case schema.KindI16:
		v.Int = int64(int16(binary.LittleEndian.Uint16(src)))
	case schema.KindU16:
		v.Int = int64(binary.LittleEndian.Uint16(src))
	case schema.KindI32:
		v.Int = int64(int32(binary.LittleEndian.Uint32(src)))
	case schema.KindU32:
		v.Int = int64(binary.LittleEndian.Uint32(src))
	case schema.KindF32:
		v.Float = math.Float32frombits(binary.LittleEndian.Uint32(src))
	case schema.KindChars:
		v.Bytes = append([]byte(nil), src[:t.Length]...)
	}
	return v
}

// Catalog maps message ids to their specs for dispatch.
type Catalog struct {
	byID map[uint8]schema.MsgSpec
}

func NewCatalog(msgs []schema.MsgSpec) *Catalog {
	c := &Catalog{byID: make(map[uint8]schema.MsgSpec, len(msgs))}
	for _, m := range msgs {
		c.byID[m.ID] = m
	}
	return c
}

func (c *Catalog) Lookup(id uint8) (schema.MsgSpec, bool) {
	spec, ok := c.byID[id]
	return spec, ok
}

// Decode validates a complete frame and decodes the message its id byte
// names.
func (c *Catalog) Decode(buf []byte) (*Message, error) {
	f, err := frame.Decode(buf)
	if err != nil {
		return nil, err
	}
	return c.dispatch(f)
}

// Read takes the next valid frame from r and decodes it.
func (c *Catalog) Read(r io.ByteReader) (*Message, error) {
	f, err := frame.ReadFrame(r)
	if err != nil {
		return nil, err
	}
	return c.dispatch(f)
}

func (c *Catalog) dispatch(f frame.Frame) (*Message, error) {
	spec, ok := c.byID[f.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMessage, f.ID)
	}
	return DecodePayload(spec, f.Payload)
}
