// Package jsongen emits a machine-readable manifest of the message model,
// including reference test vectors produced by the Go codec.
package jsongen

import (
	"encoding/hex"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/danmuck/msggen/internal/emit"
	"github.com/danmuck/msggen/internal/protocol"
	"github.com/danmuck/msggen/internal/protocol/frame"
	"github.com/danmuck/msggen/internal/protocol/schema"
)

const ManifestFile = "messages.json"

type Manifest struct {
	Generator   string    `json:"generator"`
	BuildID     string    `json:"build_id"`
	Fingerprint string    `json:"fingerprint"`
	Protocol    Protocol  `json:"protocol"`
	Messages    []Message `json:"messages"`
}

type Protocol struct {
	SyncByte      uint8  `json:"sync_byte"`
	HeaderSize    int    `json:"header_size"`
	Overhead      int    `json:"overhead"`
	MaxPayload    int    `json:"max_payload"`
	Checksum      string `json:"checksum"`
	ChecksumOrder string `json:"checksum_order"`
}

type Message struct {
	ID          uint8    `json:"id"`
	Name        string   `json:"name"`
	Class       string   `json:"class"`
	PayloadSize int      `json:"payload_size"`
	FrameSize   int      `json:"frame_size"`
	Fields      []Field  `json:"fields"`
	Vectors     []Vector `json:"vectors"`
}

type Field struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Offset int    `json:"offset"`
	Size   int    `json:"size"`
	Min    any    `json:"min,omitempty"`
	Max    any    `json:"max,omitempty"`
}

type Vector struct {
	Label  string `json:"label"`
	Inputs []any  `json:"inputs"`
	Values []any  `json:"values"`
	Frame  string `json:"frame"`
}

type Backend struct{}

func New() *Backend { return &Backend{} }

func (*Backend) Language() string { return "json" }

func (*Backend) Emit(msgs []schema.MsgSpec, buildID uint32) ([]emit.File, error) {
	man, err := Build(msgs, buildID)
	if err != nil {
		return nil, err
	}
	text, err := json.MarshalIndent(man, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("jsongen: marshal manifest: %w", err)
	}
	return []emit.File{{Name: ManifestFile, Text: string(text) + "\n"}}, nil
}

// Build assembles the manifest without serializing it.
func Build(msgs []schema.MsgSpec, buildID uint32) (Manifest, error) {
	man := Manifest{
		Generator:   "msggen",
		BuildID:     emit.BuildIDHex(buildID),
		Fingerprint: schema.Fingerprint(msgs),
		Protocol: Protocol{
			SyncByte:      frame.SyncByte,
			HeaderSize:    frame.HeaderLen,
			Overhead:      frame.Overhead,
			MaxPayload:    frame.MaxPayloadLen,
			Checksum:      "a+=byte; b+=a (mod 256) over id, length and payload; (a<<8)|b",
			ChecksumOrder: "little-endian",
		},
		Messages: make([]Message, 0, len(msgs)),
	}
	for _, m := range msgs {
		msg, err := message(m)
		if err != nil {
			return Manifest{}, err
		}
		man.Messages = append(man.Messages, msg)
	}
	return man, nil
}

// Parse reads a manifest back, for tools that consume the vectors.
func Parse(text []byte) (Manifest, error) {
	var man Manifest
	err := json.Unmarshal(text, &man)
	return man, err
}

func message(m schema.MsgSpec) (Message, error) {
	l := frame.LayoutOf(m)
	out := Message{
		ID:          m.ID,
		Name:        m.Name,
		Class:       m.Class,
		PayloadSize: l.PayloadSize,
		FrameSize:   l.FrameSize,
		Fields:      make([]Field, 0, len(l.Slots)),
		Vectors:     []Vector{},
	}
	for _, s := range l.Slots {
		f := Field{Name: s.Field.Name, Type: s.Field.Type.String(), Offset: s.Offset, Size: s.Size}
		switch t := s.Field.Type; {
		case t.Kind.IsInteger():
			f.Min, f.Max = t.Int.Min, t.Int.Max
		case t.Kind == schema.KindF32:
			f.Min, f.Max = t.Float.Min, t.Float.Max
		}
		out.Fields = append(out.Fields, f)
	}

	vecs, err := protocol.Vectors(m)
	if err != nil {
		return Message{}, fmt.Errorf("jsongen: vectors for %s: %w", m.Name, err)
	}
	for _, v := range vecs {
		values := make([]any, len(v.Values))
		for i, val := range v.Values {
			switch {
			case val.Kind == schema.KindF32:
				values[i] = val.Float
			case val.Kind == schema.KindChars:
				values[i] = hex.EncodeToString(val.Bytes)
			default:
				values[i] = val.Int
			}
		}
		out.Vectors = append(out.Vectors, Vector{
			Label:  v.Label,
			Inputs: v.Inputs,
			Values: values,
			Frame:  hex.EncodeToString(v.Frame),
		})
	}
	return out, nil
}
