package frame

import "github.com/danmuck/msggen/internal/protocol/schema"

// Slot places one field inside a frame. Offset counts from the first sync
// byte.
type Slot struct {
	Field  schema.Field
	Offset int
	Size   int
}

// PayloadOffset is the slot position relative to the payload start.
func (s Slot) PayloadOffset() int {
	return s.Offset - HeaderLen
}

// Layout is the byte map of one message. Emitters share it so every
// backend agrees on offsets.
type Layout struct {
	Message        schema.MsgSpec
	Slots          []Slot
	PayloadSize    int
	FrameSize      int
	ChecksumOffset int
}

func LayoutOf(msg schema.MsgSpec) Layout {
	l := Layout{Message: msg, Slots: make([]Slot, 0, len(msg.Fields))}
	off := HeaderLen
	for _, f := range msg.Fields {
		size := f.Type.Size()
		l.Slots = append(l.Slots, Slot{Field: f, Offset: off, Size: size})
		off += size
	}
	l.PayloadSize = off - HeaderLen
	l.ChecksumOffset = off
	l.FrameSize = off + ChecksumLen
	return l
}

// SizeOf is the full frame size of msg.
func SizeOf(msg schema.MsgSpec) int {
	return msg.PayloadSize() + Overhead
}
