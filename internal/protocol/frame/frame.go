package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/msggen/internal/protocol/schema"
)

const (
	SyncByte      byte = 0xFF
	HeaderLen          = 4
	ChecksumLen        = 2
	Overhead           = HeaderLen + ChecksumLen
	MaxPayloadLen      = schema.MaxPayloadSize
	MaxFrameLen        = MaxPayloadLen + Overhead

	offsetID     = 2
	offsetLength = 3
)

var (
	ErrShortFrame      = errors.New("frame: short frame")
	ErrBadSync         = errors.New("frame: missing sync bytes")
	ErrChecksum        = errors.New("frame: checksum mismatch")
	ErrLengthMismatch  = errors.New("frame: buffer length does not match frame size")
	ErrPayloadTooLarge = errors.New("frame: payload too large")
)

// Frame is one decoded wire message.
type Frame struct {
	ID      uint8
	Payload []byte
}

// Size is the number of bytes the frame occupies on the wire.
func (f Frame) Size() int {
	return len(f.Payload) + Overhead
}

// Checksum folds b into two 8-bit running sums: a += byte, b += a. The
// result is a in the high byte and b in the low byte. Callers pass the id,
// length and payload bytes, never the sync bytes.
func Checksum(data []byte) uint16 {
	var a, b uint8
	for _, c := range data {
		a += c
		b += a
	}
	return uint16(a)<<8 | uint16(b)
}

// Encode returns the complete frame for id and payload.
func Encode(id uint8, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}
	buf := make([]byte, len(payload)+Overhead)
	if _, err := EncodeInto(buf, id, payload); err != nil {
		return nil, err
	}
	return buf, nil
}

// EncodeInto writes the frame into dst, which must be exactly the frame
// size.
func EncodeInto(dst []byte, id uint8, payload []byte) (int, error) {
	if len(payload) > MaxPayloadLen {
		return 0, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}
	size := len(payload) + Overhead
	if len(dst) != size {
		return 0, fmt.Errorf("%w: have %d, want %d", ErrLengthMismatch, len(dst), size)
	}
	dst[0] = SyncByte
	dst[1] = SyncByte
	dst[offsetID] = id
	dst[offsetLength] = uint8(len(payload))
	copy(dst[HeaderLen:], payload)
	end := HeaderLen + len(payload)
	binary.LittleEndian.PutUint16(dst[end:], Checksum(dst[offsetID:end]))
	return size, nil
}

// Decode validates a complete frame. The returned payload aliases b.
func Decode(b []byte) (Frame, error) {
	if len(b) < Overhead {
		return Frame{}, ErrShortFrame
	}
	if b[0] != SyncByte || b[1] != SyncByte {
		return Frame{}, ErrBadSync
	}
	size := int(b[offsetLength]) + Overhead
	if len(b) != size {
		return Frame{}, fmt.Errorf("%w: have %d, header says %d", ErrLengthMismatch, len(b), size)
	}
	end := HeaderLen + int(b[offsetLength])
	want := binary.LittleEndian.Uint16(b[end:])
	if got := Checksum(b[offsetID:end]); got != want {
		return Frame{}, fmt.Errorf("%w: computed %#04x, frame carries %#04x", ErrChecksum, got, want)
	}
	return Frame{ID: b[offsetID], Payload: b[HeaderLen:end]}, nil
}

// ReadFrame scans r for the next sync pair and reads one frame after it.
// Bytes before the sync pair are skipped. A frame whose checksum does not
// match is consumed and reported with ErrChecksum, so the caller may keep
// reading from the same stream.
func ReadFrame(r io.ByteReader) (Frame, error) {
	synced := 0
	for synced < 2 {
		c, err := r.ReadByte()
		if err != nil {
			return Frame{}, err
		}
		if c == SyncByte {
			synced++
		} else {
			synced = 0
		}
	}

	var head [2]byte
	for i := range head {
		c, err := r.ReadByte()
		if err != nil {
			return Frame{}, unexpected(err)
		}
		head[i] = c
	}
	body := make([]byte, int(head[1])+ChecksumLen)
	for i := range body {
		c, err := r.ReadByte()
		if err != nil {
			return Frame{}, unexpected(err)
		}
		body[i] = c
	}

	payload := body[:head[1]]
	sum := make([]byte, 0, len(payload)+2)
	sum = append(sum, head[:]...)
	sum = append(sum, payload...)
	want := binary.LittleEndian.Uint16(body[head[1]:])
	if got := Checksum(sum); got != want {
		return Frame{}, fmt.Errorf("%w: id %d computed %#04x, frame carries %#04x", ErrChecksum, head[0], got, want)
	}
	return Frame{ID: head[0], Payload: payload}, nil
}

// WriteFrame encodes f and writes it to w in one call.
func WriteFrame(w io.Writer, f Frame) error {
	buf, err := Encode(f.ID, f.Payload)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
