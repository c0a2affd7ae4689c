package frame

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/danmuck/msggen/internal/protocol/schema"
	"github.com/danmuck/msggen/internal/testutil/testlog"
)

func TestChecksumKnownValues(t *testing.T) {
	testlog.Start(t)
	if got := Checksum(nil); got != 0 {
		t.Fatalf("empty checksum = %#04x", got)
	}
	// a: 1, 3, 6  b: 1, 4, 10
	if got := Checksum([]byte{1, 2, 3}); got != 0x060A {
		t.Fatalf("checksum(1,2,3) = %#04x, want 0x060a", got)
	}
	// both sums wrap modulo 256
	if got := Checksum([]byte{0xFF, 0x02}); got != 0x0100 {
		t.Fatalf("checksum(ff,02) = %#04x, want 0x0100", got)
	}
}

func TestChecksumReproducible(t *testing.T) {
	testlog.Start(t)
	data := []byte{7, 5, 0xDE, 0xAD, 0xBE, 0xEF, 0x10}
	if Checksum(data) != Checksum(append([]byte(nil), data...)) {
		t.Fatalf("checksum not reproducible")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	testlog.Start(t)
	payload := []byte{0x01, 0x02, 0x03, 0x04, 0xFF}
	buf, err := Encode(9, payload)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(buf) != len(payload)+Overhead {
		t.Fatalf("frame size = %d", len(buf))
	}
	if buf[0] != 0xFF || buf[1] != 0xFF || buf[2] != 9 || buf[3] != 5 {
		t.Fatalf("bad header % x", buf[:4])
	}
	sum := Checksum(buf[2 : 4+len(payload)])
	if buf[len(buf)-2] != byte(sum) || buf[len(buf)-1] != byte(sum>>8) {
		t.Fatalf("checksum not little-endian: % x vs %#04x", buf[len(buf)-2:], sum)
	}

	f, err := Decode(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if f.ID != 9 || !bytes.Equal(f.Payload, payload) {
		t.Fatalf("round trip mismatch: %+v", f)
	}
}

func TestDecodeErrors(t *testing.T) {
	testlog.Start(t)
	good, err := Encode(1, []byte{1, 2})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	if _, err := Decode(good[:3]); !errors.Is(err, ErrShortFrame) {
		t.Fatalf("expected ErrShortFrame, got %v", err)
	}

	badSync := append([]byte(nil), good...)
	badSync[1] = 0x00
	if _, err := Decode(badSync); !errors.Is(err, ErrBadSync) {
		t.Fatalf("expected ErrBadSync, got %v", err)
	}

	if _, err := Decode(append(append([]byte(nil), good...), 0)); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}

	corrupt := append([]byte(nil), good...)
	corrupt[4] ^= 0x40
	if _, err := Decode(corrupt); !errors.Is(err, ErrChecksum) {
		t.Fatalf("expected ErrChecksum, got %v", err)
	}
}

func TestEncodeIntoRequiresExactBuffer(t *testing.T) {
	testlog.Start(t)
	if _, err := EncodeInto(make([]byte, 10), 0, []byte{1}); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
	if _, err := Encode(0, make([]byte, MaxPayloadLen+1)); !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
	if _, err := Encode(0, make([]byte, MaxPayloadLen)); err != nil {
		t.Fatalf("max payload should encode: %v", err)
	}
}

func TestReadFrameResynchronizes(t *testing.T) {
	testlog.Start(t)
	first, _ := Encode(3, []byte("abc"))
	second, _ := Encode(4, nil)
	corrupt, _ := Encode(5, []byte{9})
	corrupt[4] ^= 0x01

	var stream bytes.Buffer
	stream.Write([]byte{0x00, 0xFF, 0x13})
	stream.Write(first)
	stream.Write(corrupt)
	stream.Write([]byte{0x42})
	stream.Write(second)
	r := bufio.NewReader(&stream)

	f, err := ReadFrame(r)
	if err != nil || f.ID != 3 || string(f.Payload) != "abc" {
		t.Fatalf("first frame = %+v, %v", f, err)
	}
	if _, err := ReadFrame(r); !errors.Is(err, ErrChecksum) {
		t.Fatalf("expected ErrChecksum, got %v", err)
	}
	f, err = ReadFrame(r)
	if err != nil || f.ID != 4 || len(f.Payload) != 0 {
		t.Fatalf("second frame = %+v, %v", f, err)
	}
	if _, err := ReadFrame(r); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestReadFrameTruncated(t *testing.T) {
	testlog.Start(t)
	buf, _ := Encode(1, []byte{1, 2, 3, 4})
	_, err := ReadFrame(bufio.NewReader(bytes.NewReader(buf[:6])))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected ErrUnexpectedEOF, got %v", err)
	}
}

func TestWriteFrame(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	if err := WriteFrame(&buf, Frame{ID: 2, Payload: []byte{0x10}}); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	f, err := Decode(buf.Bytes())
	if err != nil || f.ID != 2 || f.Size() != 7 {
		t.Fatalf("decoded %+v, %v", f, err)
	}
}

func TestLayoutOf(t *testing.T) {
	testlog.Start(t)
	msg := schema.MsgSpec{
		Name: "LinkHello",
		Fields: []schema.Field{
			{Name: "uid", Type: schema.Scalar(schema.KindU32)},
			{Name: "name", Type: schema.Chars(8)},
			{Name: "level", Type: schema.Scalar(schema.KindI8)},
		},
	}
	l := LayoutOf(msg)
	if l.PayloadSize != 13 || l.FrameSize != 19 || SizeOf(msg) != 19 {
		t.Fatalf("sizes = %d/%d/%d", l.PayloadSize, l.FrameSize, SizeOf(msg))
	}
	wantOffsets := []int{4, 8, 16}
	for i, s := range l.Slots {
		if s.Offset != wantOffsets[i] {
			t.Fatalf("slot %s offset = %d, want %d", s.Field.Name, s.Offset, wantOffsets[i])
		}
	}
	if l.Slots[1].PayloadOffset() != 4 || l.ChecksumOffset != 17 {
		t.Fatalf("payload offset %d checksum offset %d", l.Slots[1].PayloadOffset(), l.ChecksumOffset)
	}
}
