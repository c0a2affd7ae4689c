package cgen

import (
	"github.com/danmuck/msggen/internal/emit"
	"github.com/danmuck/msggen/internal/protocol/frame"
	"github.com/danmuck/msggen/internal/protocol/schema"
)

const helpers = `static inline void msg_put_u16(uint8_t *dst, uint16_t v)
{
    dst[0] = (uint8_t)(v & 0xFFu);
    dst[1] = (uint8_t)(v >> 8);
}

static inline void msg_put_u32(uint8_t *dst, uint32_t v)
{
    dst[0] = (uint8_t)(v & 0xFFu);
    dst[1] = (uint8_t)((v >> 8) & 0xFFu);
    dst[2] = (uint8_t)((v >> 16) & 0xFFu);
    dst[3] = (uint8_t)(v >> 24);
}

static inline void msg_put_f32(uint8_t *dst, float v)
{
    uint32_t bits;
    memcpy(&bits, &v, sizeof bits);
    msg_put_u32(dst, bits);
}

static inline uint16_t msg_get_u16(const uint8_t *src)
{
    return (uint16_t)(src[0] | (src[1] << 8));
}

static inline uint32_t msg_get_u32(const uint8_t *src)
{
    return (uint32_t)src[0] | ((uint32_t)src[1] << 8) |
           ((uint32_t)src[2] << 16) | ((uint32_t)src[3] << 24);
}

static inline float msg_get_f32(const uint8_t *src)
{
    uint32_t bits = msg_get_u32(src);
    float v;
    memcpy(&v, &bits, sizeof v);
    return v;
}

static inline int64_t msg_clamp_i64(int64_t v, int64_t lo, int64_t hi)
{
    return v < lo ? lo : (v > hi ? hi : v);
}

/* NaN passes through unchanged. */
static inline double msg_clamp_f64(double v, double lo, double hi)
{
    return v < lo ? lo : (v > hi ? hi : v);
}

static inline int msg_check_frame(const uint8_t *frame, size_t len, uint8_t id, size_t payload)
{
    if (frame == NULL || len != payload + MSG_OVERHEAD) {
        return -1;
    }
    if (frame[0] != MSG_SYNC_BYTE || frame[1] != MSG_SYNC_BYTE) {
        return -1;
    }
    if (frame[2] != id || frame[3] != payload) {
        return -1;
    }
    if (msg_get_u16(frame + MSG_HEADER_SIZE + payload) != msg_checksum(frame + 2, payload + 2)) {
        return -1;
    }
    return 0;
}

uint16_t msg_checksum(const uint8_t *data, size_t len)
{
    uint8_t a = 0;
    uint8_t b = 0;
    size_t i;
    for (i = 0; i < len; i++) {
        a = (uint8_t)(a + data[i]);
        b = (uint8_t)(b + a);
    }
    return (uint16_t)(((uint16_t)a << 8) | b);
}
`

const parser = `enum {
    MSG_PARSE_IDLE = 0,
    MSG_PARSE_SYNC,
    MSG_PARSE_ID,
    MSG_PARSE_LEN,
    MSG_PARSE_BODY
};

void msg_parser_init(MsgParser *p)
{
    memset(p, 0, sizeof *p);
}

/* Returns 1 when byte completes a valid known frame (out is filled), -1 when
 * it completes a frame that fails validation, 0 otherwise. */
int msg_parser_feed(MsgParser *p, uint8_t byte, MsgAny *out)
{
    switch (p->state) {
    case MSG_PARSE_IDLE:
        if (byte == MSG_SYNC_BYTE) {
            p->state = MSG_PARSE_SYNC;
        }
        return 0;
    case MSG_PARSE_SYNC:
        p->state = byte == MSG_SYNC_BYTE ? MSG_PARSE_ID : MSG_PARSE_IDLE;
        return 0;
    case MSG_PARSE_ID:
        p->buf[0] = MSG_SYNC_BYTE;
        p->buf[1] = MSG_SYNC_BYTE;
        p->buf[2] = byte;
        p->state = MSG_PARSE_LEN;
        return 0;
    case MSG_PARSE_LEN:
        p->buf[3] = byte;
        p->pos = MSG_HEADER_SIZE;
        p->need = (uint16_t)(byte + MSG_OVERHEAD);
        p->state = MSG_PARSE_BODY;
        return 0;
    default:
        p->buf[p->pos++] = byte;
        if (p->pos < p->need) {
            return 0;
        }
        p->state = MSG_PARSE_IDLE;
        return msg_dispatch(out, p->buf, p->need) == 0 ? 1 : -1;
    }
}
`

func source(layouts []frame.Layout, buildID uint32) string {
	w := emit.NewWriter("    ")
	w.Line("/* %s */", emit.Banner(buildID))
	w.Line(`#include "%s"`, HeaderFile)
	w.Line("")
	w.Line("#include <string.h>")
	w.Line("")
	w.Raw(helpers)

	for _, l := range layouts {
		messageFuncs(w, l)
	}

	w.Line("")
	w.Func("size_t msg_frame_size(uint8_t id)", func() {
		w.Block("switch (id) {", "}", func() {
			for _, l := range layouts {
				w.Line("case %s:", macro(l, "ID"))
				w.Line("    return %s;", macro(l, "FRAME_SIZE"))
			}
			w.Line("default:")
			w.Line("    return 0;")
		})
	})
	w.Line("")
	w.Func("const char *msg_name(uint8_t id)", func() {
		w.Block("switch (id) {", "}", func() {
			for _, l := range layouts {
				w.Line("case %s:", macro(l, "ID"))
				w.Line("    return %s;", emit.CString(l.Message.Name))
			}
			w.Line("default:")
			w.Line("    return NULL;")
		})
	})
	w.Line("")
	w.Func("int msg_dispatch(MsgAny *out, const uint8_t *frame, size_t len)", func() {
		w.Block("if (out == NULL || frame == NULL || len < MSG_OVERHEAD) {", "}", func() {
			w.Line("return -1;")
		})
		w.Block("switch (frame[2]) {", "}", func() {
			for _, l := range layouts {
				w.Line("case %s:", macro(l, "ID"))
				w.Line("    out->id = %s;", macro(l, "ID"))
				w.Line("    return %s_deserialize(&out->u.as_%s, frame, len);", l.Message.Name, l.Message.Name)
			}
			w.Line("default:")
			w.Line("    return -1;")
		})
	})
	w.Line("")
	w.Raw(parser)
	return w.String()
}

func messageFuncs(w *emit.Writer, l frame.Layout) {
	m := l.Message
	w.Line("")
	w.Line("/* %s */", m.Name)
	w.Line("")
	w.Func("void "+m.Name+"_init("+m.Name+" *m)", func() {
		w.Line("memset(m, 0, sizeof *m);")
	})

	for _, f := range m.Fields {
		w.Line("")
		switch f.Type.Kind {
		case schema.KindChars:
			n := fieldMacro(l, f, "LEN")
			w.Func("const char *"+m.Name+"_get_"+f.Name+"(const "+m.Name+" *m)", func() {
				w.Line("return m->%s;", f.Name)
			})
			w.Line("")
			w.Func("void "+m.Name+"_set_"+f.Name+"("+m.Name+" *m, const char *data, size_t len)", func() {
				w.Block("if (len > "+n+") {", "}", func() {
					w.Line("len = %s;", n)
				})
				w.Line("memset(m->%s, 0, %s);", f.Name, n)
				w.Block("if (data != NULL && len > 0) {", "}", func() {
					w.Line("memcpy(m->%s, data, len);", f.Name)
				})
			})
		case schema.KindF32:
			w.Func("float "+m.Name+"_get_"+f.Name+"(const "+m.Name+" *m)", func() {
				w.Line("return m->%s;", f.Name)
			})
			w.Line("")
			w.Func("void "+m.Name+"_set_"+f.Name+"("+m.Name+" *m, double value)", func() {
				w.Line("m->%s = (float)msg_clamp_f64(value, %s, %s);",
					f.Name, fieldMacro(l, f, "MIN"), fieldMacro(l, f, "MAX"))
			})
		default:
			ct := ctype(f.Type)
			w.Func(ct+" "+m.Name+"_get_"+f.Name+"(const "+m.Name+" *m)", func() {
				w.Line("return m->%s;", f.Name)
			})
			w.Line("")
			w.Func("void "+m.Name+"_set_"+f.Name+"("+m.Name+" *m, int64_t value)", func() {
				w.Line("m->%s = (%s)msg_clamp_i64(value, %s, %s);",
					f.Name, ct, fieldMacro(l, f, "MIN"), fieldMacro(l, f, "MAX"))
			})
		}
	}

	w.Line("")
	w.Func("size_t "+m.Name+"_serialize(const "+m.Name+" *m, uint8_t *buf, size_t len)", func() {
		w.Block("if (m == NULL || buf == NULL || len != "+macro(l, "FRAME_SIZE")+") {", "}", func() {
			w.Line("return 0;")
		})
		w.Line("buf[0] = MSG_SYNC_BYTE;")
		w.Line("buf[1] = MSG_SYNC_BYTE;")
		w.Line("buf[2] = %s;", macro(l, "ID"))
		w.Line("buf[3] = %s;", macro(l, "PAYLOAD_SIZE"))
		for _, s := range l.Slots {
			f := s.Field
			switch {
			case f.Type.Kind == schema.KindChars:
				w.Line("memcpy(buf + %d, m->%s, %s);", s.Offset, f.Name, fieldMacro(l, f, "LEN"))
			case f.Type.Kind == schema.KindF32:
				w.Line("msg_put_f32(buf + %d, m->%s);", s.Offset, f.Name)
			case f.Type.Kind.Width() == 1:
				w.Line("buf[%d] = (uint8_t)m->%s;", s.Offset, f.Name)
			case f.Type.Kind.Width() == 2:
				w.Line("msg_put_u16(buf + %d, (uint16_t)m->%s);", s.Offset, f.Name)
			default:
				w.Line("msg_put_u32(buf + %d, (uint32_t)m->%s);", s.Offset, f.Name)
			}
		}
		w.Line("msg_put_u16(buf + %d, msg_checksum(buf + 2, %d));", l.ChecksumOffset, l.ChecksumOffset-2)
		w.Line("return %s;", macro(l, "FRAME_SIZE"))
	})

	w.Line("")
	w.Func("int "+m.Name+"_deserialize("+m.Name+" *m, const uint8_t *frame, size_t len)", func() {
		w.Block("if (m == NULL || msg_check_frame(frame, len, "+macro(l, "ID")+", "+macro(l, "PAYLOAD_SIZE")+") != 0) {", "}", func() {
			w.Line("return -1;")
		})
		for _, s := range l.Slots {
			f := s.Field
			switch {
			case f.Type.Kind == schema.KindChars:
				w.Line("memcpy(m->%s, frame + %d, %s);", f.Name, s.Offset, fieldMacro(l, f, "LEN"))
			case f.Type.Kind == schema.KindF32:
				w.Line("m->%s = msg_get_f32(frame + %d);", f.Name, s.Offset)
			case f.Type.Kind.Width() == 1:
				w.Line("m->%s = (%s)frame[%d];", f.Name, ctype(f.Type), s.Offset)
			case f.Type.Kind.Width() == 2:
				w.Line("m->%s = (%s)msg_get_u16(frame + %d);", f.Name, ctype(f.Type), s.Offset)
			default:
				w.Line("m->%s = (%s)msg_get_u32(frame + %d);", f.Name, ctype(f.Type), s.Offset)
			}
		}
		w.Line("return 0;")
	})
}
