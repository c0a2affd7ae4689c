package conformance

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/danmuck/msggen/internal/emit"
	"github.com/danmuck/msggen/internal/emit/cgen"
	"github.com/danmuck/msggen/internal/protocol"
	"github.com/danmuck/msggen/internal/protocol/frame"
	"github.com/danmuck/msggen/internal/protocol/schema"
)

const pythonDriver = `import json
import struct
import sys

import messages


def encode(msg_id, payload):
    body = bytes((msg_id, len(payload))) + payload
    return b"\xff\xff" + body + struct.pack("<H", messages.checksum(body))


def rejects(frame, unused):
    payload = frame[messages.HEADER_SIZE:-2]
    out = [
        ("checksum", frame[:-1] + bytes((frame[-1] ^ 0x01,))),
        ("length", encode(frame[2], payload[:-1] if payload else b"\x00")),
    ]
    if unused is not None:
        out.append(("id", encode(unused, payload)))
    return out


def check(spec, vec, unused):
    cls = getattr(messages, spec["name"])
    names = [f["name"] for f in spec["fields"]]
    frame = bytes.fromhex(vec["frame"])
    msg = cls()
    for name, value in zip(names, vec["inputs"]):
        setattr(msg, name, value)
    got = msg.serialize()
    if got != frame:
        return "serialize: got %s want %s" % (got.hex(), vec["frame"])
    back = messages.dispatch(frame)
    if back != msg:
        return "dispatch: got %r want %r" % (back, msg)
    parser = messages.Parser()
    out = parser.feed(b"\x00\x01" + frame)
    if out != [msg]:
        return "parser: got %r" % (out,)
    for name, value in zip(names, vec["inputs"]):
        setattr(msg, name, value)
    for f in spec["fields"]:
        if not f["type"].startswith("chars"):
            setattr(msg, f["name"], getattr(msg, f["name"]))
    if msg.serialize() != frame:
        return "reapply: got %s" % msg.serialize().hex()
    for kind, bad in rejects(frame, unused):
        try:
            messages.dispatch(bad)
        except messages.FrameError:
            pass
        else:
            return "dispatch accepted bad %s" % kind
        parser = messages.Parser()
        if parser.feed(b"\x00\x01" + bad) != [] or parser.dropped != 1:
            return "parser accepted bad %s" % kind
    return None


def main(path):
    with open(path) as fh:
        manifest = json.load(fh)
    unused = next((i for i in range(256) if i not in messages.MESSAGES), None)
    checked = 0
    failures = 0
    for spec in manifest["messages"]:
        for vec in spec["vectors"]:
            checked += 1
            problem = check(spec, vec, unused)
            if problem is not None:
                failures += 1
                print("FAIL %s/%s %s" % (spec["name"], vec["label"], problem))
    print("checked %d vectors, %d failures" % (checked, failures))
    return 1 if failures else 0


if __name__ == "__main__":
    sys.exit(main(sys.argv[1]))
`

func cDouble(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// setterArgs renders the argument list a generated setter takes for input.
func setterArgs(f schema.Field, input any) (string, error) {
	switch v := input.(type) {
	case int64:
		return fmt.Sprintf("INT64_C(%d)", v), nil
	case int:
		return fmt.Sprintf("INT64_C(%d)", v), nil
	case float64:
		return cDouble(v), nil
	case string:
		return fmt.Sprintf("%s, %d", emit.CString(v), len(v)), nil
	}
	return "", fmt.Errorf("conformance: %s: unsupported input %T", f.Name, input)
}

func byteList(b []byte) string {
	parts := make([]string, len(b))
	for i, c := range b {
		parts[i] = fmt.Sprintf("0x%02X", c)
	}
	return strings.Join(parts, ", ")
}

type driverCase struct {
	fn      string
	spec    schema.MsgSpec
	vector  protocol.Vector
	rejects []badFrame
}

// badFrame is a frame every decoder must refuse.
type badFrame struct {
	kind  string
	frame []byte
}

// unusedID is the lowest id no message claims.
func unusedID(msgs []schema.MsgSpec) (uint8, bool) {
	var taken [256]bool
	for _, m := range msgs {
		taken[m.ID] = true
	}
	for id := range taken {
		if !taken[id] {
			return uint8(id), true
		}
	}
	return 0, false
}

// badFrames derives the rejected variants of a valid frame: a flipped
// checksum byte, a payload one byte off the declared size, and the same
// payload under an unused id.
func badFrames(valid []byte, unused uint8, haveUnused bool) ([]badFrame, error) {
	corrupt := bytes.Clone(valid)
	corrupt[len(corrupt)-1] ^= 0x01
	out := []badFrame{{kind: "checksum", frame: corrupt}}

	payload := valid[frame.HeaderLen : len(valid)-frame.ChecksumLen]
	resized := []byte{0x00}
	if len(payload) > 0 {
		resized = payload[:len(payload)-1]
	}
	b, err := frame.Encode(valid[2], resized)
	if err != nil {
		return nil, err
	}
	out = append(out, badFrame{kind: "length", frame: b})

	if haveUnused {
		b, err := frame.Encode(unused, payload)
		if err != nil {
			return nil, err
		}
		out = append(out, badFrame{kind: "id", frame: b})
	}
	return out, nil
}

func collect(msgs []schema.MsgSpec) ([]driverCase, error) {
	unused, haveUnused := unusedID(msgs)
	var out []driverCase
	for _, m := range msgs {
		vecs, err := protocol.Vectors(m)
		if err != nil {
			return nil, fmt.Errorf("conformance: %s: %w", m.Name, err)
		}
		for _, v := range vecs {
			rejects, err := badFrames(v.Frame, unused, haveUnused)
			if err != nil {
				return nil, fmt.Errorf("conformance: %s/%s: %w", m.Name, v.Label, err)
			}
			out = append(out, driverCase{
				fn:      fmt.Sprintf("check_%s_%s", m.Name, v.Label),
				spec:    m,
				vector:  v,
				rejects: rejects,
			})
		}
	}
	return out, nil
}

// reapplyCalls sets every input a second time, then writes each numeric
// field back through its own getter.
func reapplyCalls(calls []string, m schema.MsgSpec, setter func(f schema.Field) string) []string {
	out := append([]string(nil), calls...)
	for _, f := range m.Fields {
		if f.Type.Kind == schema.KindChars {
			continue
		}
		out = append(out, setter(f))
	}
	return out
}

// cDriver renders a C99 program that checks every vector against the
// emitted C codec and parser.
func cDriver(msgs []schema.MsgSpec) (string, int, error) {
	cases, err := collect(msgs)
	if err != nil {
		return "", 0, err
	}
	w := emit.NewWriter("    ")
	w.Line(`#include "messages.h"`)
	w.Line("")
	w.Line("#include <stdint.h>")
	w.Line("#include <stdio.h>")
	w.Line("#include <string.h>")
	w.Line("")
	w.Func("static int feed_all(const uint8_t *frame, size_t len, MsgAny *out)", func() {
		w.Line("MsgParser p;")
		w.Line("size_t i;")
		w.Line("int rc = 0;")
		w.Line("msg_parser_init(&p);")
		w.Line("msg_parser_feed(&p, 0x00, out);")
		w.Line("msg_parser_feed(&p, 0x01, out);")
		w.Block("for (i = 0; i < len; i++) {", "}", func() {
			w.Line("rc = msg_parser_feed(&p, frame[i], out);")
		})
		w.Line("return rc;")
	})

	for _, c := range cases {
		m := c.spec
		id := cgen.MessageMacro(m.Name, "ID")
		var calls []string
		for i, f := range m.Fields {
			args, err := setterArgs(f, c.vector.Inputs[i])
			if err != nil {
				return "", 0, err
			}
			calls = append(calls, fmt.Sprintf("%s_set_%s(&m, %s);", m.Name, f.Name, args))
		}
		again := reapplyCalls(calls, m, func(f schema.Field) string {
			return fmt.Sprintf("%s_set_%s(&m, %s_get_%s(&m));", m.Name, f.Name, m.Name, f.Name)
		})
		fail := func(what string) {
			w.Line(`printf("FAIL %s/%s %s\n");`, m.Name, c.vector.Label, what)
			w.Line("return 1;")
		}
		w.Line("")
		w.Func("static int "+c.fn+"(void)", func() {
			w.Line("static const uint8_t want[] = {%s};", byteList(c.vector.Frame))
			for i, bad := range c.rejects {
				w.Line("static const uint8_t bad%d[] = {%s};", i, byteList(bad.frame))
			}
			w.Line("%s m;", m.Name)
			w.Line("MsgAny any;")
			w.Line("uint8_t buf[%s];", cgen.MessageMacro(m.Name, "FRAME_SIZE"))
			w.Line("%s_init(&m);", m.Name)
			for _, call := range calls {
				w.Line("%s", call)
			}
			w.Block("if (sizeof buf != sizeof want || "+m.Name+"_serialize(&m, buf, sizeof buf) != sizeof buf || memcmp(buf, want, sizeof want) != 0) {", "}", func() {
				fail("serialize")
			})
			w.Block("if (msg_dispatch(&any, want, sizeof want) != 0 || any.id != "+id+") {", "}", func() {
				fail("dispatch")
			})
			w.Line("memset(buf, 0, sizeof buf);")
			w.Block("if ("+m.Name+"_serialize(&any.u.as_"+m.Name+", buf, sizeof buf) != sizeof buf || memcmp(buf, want, sizeof want) != 0) {", "}", func() {
				fail("reserialize")
			})
			w.Block("if (feed_all(want, sizeof want, &any) != 1 || any.id != "+id+") {", "}", func() {
				fail("parser")
			})
			for _, call := range again {
				w.Line("%s", call)
			}
			w.Line("memset(buf, 0, sizeof buf);")
			w.Block("if ("+m.Name+"_serialize(&m, buf, sizeof buf) != sizeof buf || memcmp(buf, want, sizeof want) != 0) {", "}", func() {
				fail("reapply")
			})
			for i, bad := range c.rejects {
				w.Block(fmt.Sprintf("if (msg_dispatch(&any, bad%d, sizeof bad%d) != -1) {", i, i), "}", func() {
					fail("dispatch accepted bad " + bad.kind)
				})
				w.Block(fmt.Sprintf("if (feed_all(bad%d, sizeof bad%d, &any) != -1) {", i, i), "}", func() {
					fail("parser accepted bad " + bad.kind)
				})
			}
			w.Line("return 0;")
		})
	}

	w.Line("")
	w.Func("int main(void)", func() {
		w.Line("int failures = 0;")
		for _, c := range cases {
			w.Line("failures += %s();", c.fn)
		}
		w.Line(`printf("checked %d vectors, %%d failures\n", failures);`, len(cases))
		w.Line("return failures == 0 ? 0 : 1;")
	})
	return w.String(), len(cases), nil
}

// cppDriver renders a C++11 program that checks every vector against the
// emitted header-only codec.
func cppDriver(msgs []schema.MsgSpec, namespace string) (string, int, error) {
	cases, err := collect(msgs)
	if err != nil {
		return "", 0, err
	}
	w := emit.NewWriter("    ")
	w.Line(`#include "messages.hpp"`)
	w.Line("")
	w.Line("#include <cstdint>")
	w.Line("#include <cstdio>")
	w.Line("#include <cstring>")
	w.Line("")
	w.Line("using namespace %s;", namespace)

	for _, c := range cases {
		m := c.spec
		var calls []string
		for i, f := range m.Fields {
			args, err := setterArgs(f, c.vector.Inputs[i])
			if err != nil {
				return "", 0, err
			}
			calls = append(calls, fmt.Sprintf("m.set_%s(%s);", f.Name, args))
		}
		again := reapplyCalls(calls, m, func(f schema.Field) string {
			return fmt.Sprintf("m.set_%s(m.get_%s());", f.Name, f.Name)
		})
		fail := func(what string) {
			w.Line(`std::printf("FAIL %s/%s %s\n");`, m.Name, c.vector.Label, what)
			w.Line("return 1;")
		}
		w.Line("")
		w.Func("static int "+c.fn+"()", func() {
			w.Line("static const std::uint8_t want[] = {%s};", byteList(c.vector.Frame))
			for i, bad := range c.rejects {
				w.Line("static const std::uint8_t bad%d[] = {%s};", i, byteList(bad.frame))
			}
			w.Line("%s m;", m.Name)
			w.Line("std::uint8_t buf[%s::kFrameSize];", m.Name)
			for _, call := range calls {
				w.Line("%s", call)
			}
			w.Block("if (sizeof buf != sizeof want || m.serialize(buf, sizeof buf) != sizeof buf || std::memcmp(buf, want, sizeof want) != 0) {", "}", func() {
				fail("serialize")
			})
			w.Line("auto back = msg_dispatch(want, sizeof want);")
			w.Block("if (!back || back->msg_id() != "+m.Name+"::kId) {", "}", func() {
				fail("dispatch")
			})
			w.Line("std::memset(buf, 0, sizeof buf);")
			w.Block("if (back->serialize(buf, sizeof buf) != sizeof buf || std::memcmp(buf, want, sizeof want) != 0) {", "}", func() {
				fail("reserialize")
			})
			for _, call := range again {
				w.Line("%s", call)
			}
			w.Line("std::memset(buf, 0, sizeof buf);")
			w.Block("if (m.serialize(buf, sizeof buf) != sizeof buf || std::memcmp(buf, want, sizeof want) != 0) {", "}", func() {
				fail("reapply")
			})
			for i, bad := range c.rejects {
				w.Block(fmt.Sprintf("if (msg_dispatch(bad%d, sizeof bad%d)) {", i, i), "}", func() {
					fail("dispatch accepted bad " + bad.kind)
				})
			}
			w.Line("return 0;")
		})
	}

	w.Line("")
	w.Func("int main()", func() {
		w.Line("int failures = 0;")
		for _, c := range cases {
			w.Line("failures += %s();", c.fn)
		}
		w.Line(`std::printf("checked %d vectors, %%d failures\n", failures);`, len(cases))
		w.Line("return failures == 0 ? 0 : 1;")
	})
	return w.String(), len(cases), nil
}

// vectorCount is the number of cases the Python driver reads from the
// manifest.
func vectorCount(msgs []schema.MsgSpec) (int, error) {
	cases, err := collect(msgs)
	return len(cases), err
}
