package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/danmuck/msggen/internal/protocol/frame"
	"github.com/danmuck/msggen/internal/protocol/schema"
	"github.com/danmuck/msggen/internal/testutil/testlog"
)

func helloSpec() schema.MsgSpec {
	return schema.MsgSpec{
		Name: "LinkHello",
		ID:   3,
		Fields: []schema.Field{
			{Name: "uid", Type: schema.Scalar(schema.KindU32)},
			{Name: "name", Type: schema.Chars(8)},
			{Name: "level", Type: schema.Scalar(schema.KindI8)},
		},
	}
}

func driveSpec() schema.MsgSpec {
	speed := schema.Scalar(schema.KindI16)
	speed.Int = schema.Bounds[int64]{Min: -1000, Max: 1000}
	gain := schema.Scalar(schema.KindF32)
	gain.Float = schema.Bounds[float64]{Min: 0, Max: 2.5}
	return schema.MsgSpec{
		Name: "DriveSpeed",
		ID:   7,
		Fields: []schema.Field{
			{Name: "left", Type: speed},
			{Name: "gain", Type: gain},
			{Name: "count", Type: schema.Scalar(schema.KindU16)},
		},
	}
}

func TestEncodeLayout(t *testing.T) {
	testlog.Start(t)
	m := NewMessage(helloSpec())
	if err := m.Set("uid", int64(0x01020304)); err != nil {
		t.Fatalf("set uid: %v", err)
	}
	if err := m.Set("name", "bot"); err != nil {
		t.Fatalf("set name: %v", err)
	}
	if err := m.Set("level", -2); err != nil {
		t.Fatalf("set level: %v", err)
	}
	buf, err := Encode(m)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(buf) != 19 {
		t.Fatalf("frame size = %d, want 19", len(buf))
	}
	want := []byte{
		0xFF, 0xFF, 3, 13,
		0x04, 0x03, 0x02, 0x01,
		'b', 'o', 't', 0, 0, 0, 0, 0,
		0xFE,
	}
	if !bytes.Equal(buf[:17], want) {
		t.Fatalf("frame prefix = % x, want % x", buf[:17], want)
	}
	sum := frame.Checksum(buf[2:17])
	if buf[17] != byte(sum) || buf[18] != byte(sum>>8) {
		t.Fatalf("checksum bytes % x, want %#04x little-endian", buf[17:], sum)
	}
}

func TestRoundTripThroughCatalog(t *testing.T) {
	testlog.Start(t)
	specs := []schema.MsgSpec{helloSpec(), driveSpec()}
	cat := NewCatalog(specs)
	for _, spec := range specs {
		in := SampleMessage(spec)
		buf, err := Encode(in)
		if err != nil {
			t.Fatalf("encode %s: %v", spec.Name, err)
		}
		out, err := cat.Decode(buf)
		if err != nil {
			t.Fatalf("decode %s: %v", spec.Name, err)
		}
		if out.Spec.Name != spec.Name {
			t.Fatalf("dispatched to %s, want %s", out.Spec.Name, spec.Name)
		}
		for i, v := range in.Values() {
			if !v.Equal(out.Values()[i]) {
				t.Fatalf("%s field %d: %v != %v", spec.Name, i, v, out.Values()[i])
			}
		}
		again, err := Encode(out)
		if err != nil || !bytes.Equal(again, buf) {
			t.Fatalf("re-encode mismatch: %v", err)
		}
	}
}

func TestCatalogRead(t *testing.T) {
	testlog.Start(t)
	cat := NewCatalog([]schema.MsgSpec{driveSpec()})
	var stream bytes.Buffer
	stream.Write([]byte{0x01, 0x02})
	if err := Write(&stream, SampleMessage(driveSpec())); err != nil {
		t.Fatalf("write: %v", err)
	}
	m, err := cat.Read(bufio.NewReader(&stream))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if m.Spec.ID != 7 {
		t.Fatalf("id = %d", m.Spec.ID)
	}
}

func TestDecodeUnknownID(t *testing.T) {
	testlog.Start(t)
	cat := NewCatalog([]schema.MsgSpec{helloSpec()})
	buf, _ := frame.Encode(99, nil)
	if _, err := cat.Decode(buf); !errors.Is(err, ErrUnknownMessage) {
		t.Fatalf("expected ErrUnknownMessage, got %v", err)
	}
	buf, _ = frame.Encode(3, []byte{1, 2})
	if _, err := cat.Decode(buf); !errors.Is(err, ErrPayloadSize) {
		t.Fatalf("expected ErrPayloadSize, got %v", err)
	}
}

func TestSetClampsAndIsIdempotent(t *testing.T) {
	testlog.Start(t)
	m := NewMessage(driveSpec())
	cases := []struct {
		field string
		in    any
		want  Value
	}{
		{"left", 5000, Value{Kind: schema.KindI16, Int: 1000}},
		{"left", int64(-70000), Value{Kind: schema.KindI16, Int: -1000}},
		{"left", int16(12), Value{Kind: schema.KindI16, Int: 12}},
		{"gain", 9.0, Value{Kind: schema.KindF32, Float: 2.5}},
		{"gain", -1.0, Value{Kind: schema.KindF32, Float: 0}},
		{"gain", 1, Value{Kind: schema.KindF32, Float: 1}},
		{"count", -1, Value{Kind: schema.KindU16, Int: 0}},
		{"count", 1 << 20, Value{Kind: schema.KindU16, Int: math.MaxUint16}},
	}
	for _, tc := range cases {
		if err := m.Set(tc.field, tc.in); err != nil {
			t.Fatalf("set %s=%v: %v", tc.field, tc.in, err)
		}
		got, _ := m.Get(tc.field)
		if !got.Equal(tc.want) {
			t.Fatalf("set %s=%v stored %v, want %v", tc.field, tc.in, got, tc.want)
		}
		if err := m.Set(tc.field, got); err != nil {
			t.Fatalf("re-set %s: %v", tc.field, err)
		}
		again, _ := m.Get(tc.field)
		if !again.Equal(got) {
			t.Fatalf("clamp not idempotent for %s: %v then %v", tc.field, got, again)
		}
	}
}

func TestSetFloatRoundsAfterClamp(t *testing.T) {
	testlog.Start(t)
	m := NewMessage(driveSpec())
	if err := m.Set("gain", 0.1); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, _ := m.Get("gain")
	if got.Float != float32(0.1) {
		t.Fatalf("gain = %v, want f32(0.1)", got.Float)
	}
}

func TestSetCharsFitsLength(t *testing.T) {
	testlog.Start(t)
	m := NewMessage(helloSpec())
	if err := m.Set("name", "a-very-long-name"); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, _ := m.Get("name")
	if string(got.Bytes) != "a-very-l" {
		t.Fatalf("truncated to %q", got.Bytes)
	}
	if err := m.Set("name", []byte("ab")); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, _ = m.Get("name")
	if !bytes.Equal(got.Bytes, []byte{'a', 'b', 0, 0, 0, 0, 0, 0}) {
		t.Fatalf("padded to % x", got.Bytes)
	}
	if got.String() != `"ab"` {
		t.Fatalf("string = %s", got.String())
	}
}

func TestSetErrors(t *testing.T) {
	testlog.Start(t)
	m := NewMessage(helloSpec())
	if err := m.Set("missing", 1); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
	if err := m.Set("uid", "text"); !errors.Is(err, ErrValueType) {
		t.Fatalf("expected ErrValueType, got %v", err)
	}
	if err := m.Set("level", 1.5); !errors.Is(err, ErrValueType) {
		t.Fatalf("float into integer field should fail, got %v", err)
	}
	if _, err := m.Get("missing"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestVectors(t *testing.T) {
	testlog.Start(t)
	vecs, err := Vectors(driveSpec())
	if err != nil {
		t.Fatalf("vectors: %v", err)
	}
	if len(vecs) != 2 || vecs[0].Label != "nominal" || vecs[1].Label != "clamped" {
		t.Fatalf("unexpected vectors: %+v", vecs)
	}
	clamped := vecs[1]
	if clamped.Values[0].Int != 1000 || clamped.Values[1].Float != 2.5 {
		t.Fatalf("clamped values = %v", clamped.Values)
	}
	if _, err := frame.Decode(clamped.Frame); err != nil {
		t.Fatalf("vector frame invalid: %v", err)
	}

	plain := schema.MsgSpec{Name: "Tick", Fields: []schema.Field{{Name: "n", Type: schema.Scalar(schema.KindU8)}}}
	vecs, err = Vectors(plain)
	if err != nil || len(vecs) != 1 {
		t.Fatalf("native-only message should have one vector: %v %v", vecs, err)
	}
	if vecs[0].Values[0].Int != 170 {
		t.Fatalf("nominal u8 = %d, want 170", vecs[0].Values[0].Int)
	}
}

func TestMessageString(t *testing.T) {
	testlog.Start(t)
	m := NewMessage(helloSpec())
	_ = m.Set("uid", 7)
	_ = m.Set("name", "x")
	if got := m.String(); got != `LinkHello(uid=7, name="x", level=0)` {
		t.Fatalf("string = %s", got)
	}
}
