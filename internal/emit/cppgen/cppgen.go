// Package cppgen emits a header-only C++11 rendition of the message model.
package cppgen

import (
	"fmt"

	"github.com/danmuck/msggen/internal/emit"
	"github.com/danmuck/msggen/internal/protocol/frame"
	"github.com/danmuck/msggen/internal/protocol/schema"
)

const HeaderFile = "messages.hpp"

type Backend struct {
	// Namespace wraps every emitted declaration.
	Namespace string
}

func New() *Backend { return &Backend{Namespace: "msggen"} }

func (*Backend) Language() string { return "cpp" }

func (b *Backend) Emit(msgs []schema.MsgSpec, buildID uint32) ([]emit.File, error) {
	ns := b.Namespace
	if ns == "" {
		ns = "msggen"
	}
	w := emit.NewWriter("    ")
	w.Line("// %s", emit.Banner(buildID))
	w.Line("#pragma once")
	w.Line("")
	w.Line("#include <cstddef>")
	w.Line("#include <cstdint>")
	w.Line("#include <cstring>")
	w.Line("#include <memory>")
	w.Line("")
	w.Line("namespace %s {", ns)
	w.Line("")
	w.Line("constexpr std::uint32_t kBuildId = %su;", emit.BuildIDHex(buildID))
	w.Line("constexpr std::uint8_t kSyncByte = 0xFF;")
	w.Line("constexpr std::size_t kHeaderSize = %d;", frame.HeaderLen)
	w.Line("constexpr std::size_t kOverhead = %d;", frame.Overhead)
	w.Raw(prelude)

	for _, m := range msgs {
		w.Line("")
		class(w, frame.LayoutOf(m))
	}

	w.Line("")
	w.Line("// Returns nullptr for unknown ids and frames that fail validation.")
	w.Func("inline std::unique_ptr<MsgBase> msg_dispatch(const std::uint8_t *frame, std::size_t len)", func() {
		w.Block("if (frame == nullptr || len < kOverhead) {", "}", func() {
			w.Line("return nullptr;")
		})
		w.Line("std::unique_ptr<MsgBase> msg;")
		w.Block("switch (frame[2]) {", "}", func() {
			for _, m := range msgs {
				w.Line("case %s::kId:", m.Name)
				w.Line("    msg.reset(new %s());", m.Name)
				w.Line("    break;")
			}
			w.Line("default:")
			w.Line("    return nullptr;")
		})
		w.Block("if (!msg->deserialize(frame, len)) {", "}", func() {
			w.Line("return nullptr;")
		})
		w.Line("return msg;")
	})
	w.Line("")
	w.Line("}  // namespace %s", ns)
	return []emit.File{{Name: HeaderFile, Text: w.String()}}, nil
}

const prelude = `
template <typename T>
constexpr T clamp(T low, T value, T high)
{
    return value < low ? low : (high < value ? high : value);
}

inline std::uint16_t checksum(const std::uint8_t *data, std::size_t len)
{
    std::uint8_t a = 0;
    std::uint8_t b = 0;
    for (std::size_t i = 0; i < len; ++i) {
        a = static_cast<std::uint8_t>(a + data[i]);
        b = static_cast<std::uint8_t>(b + a);
    }
    return static_cast<std::uint16_t>((a << 8) | b);
}

namespace detail {

inline void put_u16(std::uint8_t *dst, std::uint16_t v)
{
    dst[0] = static_cast<std::uint8_t>(v & 0xFF);
    dst[1] = static_cast<std::uint8_t>(v >> 8);
}

inline void put_u32(std::uint8_t *dst, std::uint32_t v)
{
    for (int i = 0; i < 4; ++i) {
        dst[i] = static_cast<std::uint8_t>((v >> (8 * i)) & 0xFF);
    }
}

inline void put_f32(std::uint8_t *dst, float v)
{
    std::uint32_t bits;
    std::memcpy(&bits, &v, sizeof bits);
    put_u32(dst, bits);
}

inline std::uint16_t get_u16(const std::uint8_t *src)
{
    return static_cast<std::uint16_t>(src[0] | (src[1] << 8));
}

inline std::uint32_t get_u32(const std::uint8_t *src)
{
    return static_cast<std::uint32_t>(src[0]) | (static_cast<std::uint32_t>(src[1]) << 8) |
           (static_cast<std::uint32_t>(src[2]) << 16) | (static_cast<std::uint32_t>(src[3]) << 24);
}

inline float get_f32(const std::uint8_t *src)
{
    std::uint32_t bits = get_u32(src);
    float v;
    std::memcpy(&v, &bits, sizeof v);
    return v;
}

inline bool check_frame(const std::uint8_t *frame, std::size_t len, std::uint8_t id, std::size_t payload)
{
    if (frame == nullptr || len != payload + kOverhead) {
        return false;
    }
    if (frame[0] != kSyncByte || frame[1] != kSyncByte || frame[2] != id || frame[3] != payload) {
        return false;
    }
    return get_u16(frame + kHeaderSize + payload) == checksum(frame + 2, payload + 2);
}

}  // namespace detail

class MsgBase {
public:
    virtual ~MsgBase() = default;
    virtual std::uint8_t msg_id() const = 0;
    virtual const char *msg_name() const = 0;
    virtual std::size_t frame_size() const = 0;
    // Writes the full frame; returns frame_size() or 0 when len differs.
    virtual std::size_t serialize(std::uint8_t *buf, std::size_t len) const = 0;
    virtual bool deserialize(const std::uint8_t *frame, std::size_t len) = 0;
};
`

func cppType(t schema.Type) string {
	switch t.Kind {
	case schema.KindI8:
		return "std::int8_t"
	case schema.KindI16:
		return "std::int16_t"
	case schema.KindI32:
		return "std::int32_t"
	case schema.KindU8:
		return "std::uint8_t"
	case schema.KindU16:
		return "std::uint16_t"
	case schema.KindU32:
		return "std::uint32_t"
	case schema.KindF32:
		return "float"
	default:
		return "char"
	}
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

func class(w *emit.Writer, l frame.Layout) {
	m := l.Message
	w.Line("// id %d, payload %d bytes, frame %d bytes", m.ID, l.PayloadSize, l.FrameSize)
	w.Line("class %s final : public MsgBase {", m.Name)
	w.Line("public:")
	w.Indent()
	w.Line("static constexpr std::uint8_t kId = %d;", m.ID)
	w.Line("static constexpr std::size_t kPayloadSize = %d;", l.PayloadSize)
	w.Line("static constexpr std::size_t kFrameSize = %d;", l.FrameSize)
	w.Line("")
	w.Line("std::uint8_t msg_id() const override { return kId; }")
	w.Line("const char *msg_name() const override { return %s; }", emit.CString(m.Name))
	w.Line("std::size_t frame_size() const override { return kFrameSize; }")

	for _, f := range m.Fields {
		w.Line("")
		switch f.Type.Kind {
		case schema.KindChars:
			w.Line("static constexpr std::size_t k_%s_len = %d;", f.Name, f.Type.Length)
			w.Line("const char *get_%s() const { return %s_; }", f.Name, f.Name)
			w.Func("void set_"+f.Name+"(const char *data, std::size_t len)", func() {
				w.Block(fmt.Sprintf("if (len > %d) {", f.Type.Length), "}", func() {
					w.Line("len = %d;", f.Type.Length)
				})
				w.Line("std::memset(%s_, 0, sizeof %s_);", f.Name, f.Name)
				w.Block("if (data != nullptr && len > 0) {", "}", func() {
					w.Line("std::memcpy(%s_, data, len);", f.Name)
				})
			})
		case schema.KindF32:
			w.Line("float get_%s() const { return %s_; }", f.Name, f.Name)
			w.Func("void set_"+f.Name+"(double value)", func() {
				w.Line("%s_ = static_cast<float>(clamp<double>(%s, value, %s));",
					f.Name, floatLiteral(f.Type.Float.Min), floatLiteral(f.Type.Float.Max))
			})
		default:
			ct := cppType(f.Type)
			w.Line("%s get_%s() const { return %s_; }", ct, f.Name, f.Name)
			w.Func("void set_"+f.Name+"(std::int64_t value)", func() {
				w.Line("%s_ = static_cast<%s>(clamp<std::int64_t>(%s, value, %s));",
					f.Name, ct, intLiteral(f.Type.Int.Min), intLiteral(f.Type.Int.Max))
			})
		}
	}

	w.Line("")
	w.Func("std::size_t serialize(std::uint8_t *buf, std::size_t len) const override", func() {
		w.Block("if (buf == nullptr || len != kFrameSize) {", "}", func() {
			w.Line("return 0;")
		})
		w.Line("buf[0] = kSyncByte;")
		w.Line("buf[1] = kSyncByte;")
		w.Line("buf[2] = kId;")
		w.Line("buf[3] = static_cast<std::uint8_t>(kPayloadSize);")
		for _, s := range l.Slots {
			f := s.Field
			switch {
			case f.Type.Kind == schema.KindChars:
				w.Line("std::memcpy(buf + %d, %s_, sizeof %s_);", s.Offset, f.Name, f.Name)
			case f.Type.Kind == schema.KindF32:
				w.Line("detail::put_f32(buf + %d, %s_);", s.Offset, f.Name)
			case f.Type.Kind.Width() == 1:
				w.Line("buf[%d] = static_cast<std::uint8_t>(%s_);", s.Offset, f.Name)
			case f.Type.Kind.Width() == 2:
				w.Line("detail::put_u16(buf + %d, static_cast<std::uint16_t>(%s_));", s.Offset, f.Name)
			default:
				w.Line("detail::put_u32(buf + %d, static_cast<std::uint32_t>(%s_));", s.Offset, f.Name)
			}
		}
		w.Line("detail::put_u16(buf + %d, checksum(buf + 2, %d));", l.ChecksumOffset, l.ChecksumOffset-2)
		w.Line("return kFrameSize;")
	})
	w.Line("")
	w.Func("bool deserialize(const std::uint8_t *frame, std::size_t len) override", func() {
		w.Block("if (!detail::check_frame(frame, len, kId, kPayloadSize)) {", "}", func() {
			w.Line("return false;")
		})
		for _, s := range l.Slots {
			f := s.Field
			switch {
			case f.Type.Kind == schema.KindChars:
				w.Line("std::memcpy(%s_, frame + %d, sizeof %s_);", f.Name, s.Offset, f.Name)
			case f.Type.Kind == schema.KindF32:
				w.Line("%s_ = detail::get_f32(frame + %d);", f.Name, s.Offset)
			case f.Type.Kind.Width() == 1:
				w.Line("%s_ = static_cast<%s>(frame[%d]);", f.Name, cppType(f.Type), s.Offset)
			case f.Type.Kind.Width() == 2:
				w.Line("%s_ = static_cast<%s>(detail::get_u16(frame + %d));", f.Name, cppType(f.Type), s.Offset)
			default:
				w.Line("%s_ = static_cast<%s>(detail::get_u32(frame + %d));", f.Name, cppType(f.Type), s.Offset)
			}
		}
		w.Line("return true;")
	})
	w.Dedent()

	if len(m.Fields) > 0 {
		w.Line("")
		w.Line("private:")
		w.Indent()
		for _, f := range m.Fields {
			if f.Type.Kind == schema.KindChars {
				w.Line("char %s_[%d] = {};", f.Name, f.Type.Length)
				continue
			}
			w.Line("%s %s_ = 0;", cppType(f.Type), f.Name)
		}
		w.Dedent()
	}
	w.Line("};")
}
