package emit

import (
	"fmt"
	"strings"
)

// Writer accumulates generated source with a fixed indent unit.
type Writer struct {
	b      strings.Builder
	unit   string
	indent int
}

func NewWriter(unit string) *Writer {
	return &Writer{unit: unit}
}

// Line writes one indented line formatted as by fmt.Sprintf. An empty
// format writes a blank line. Text that may hold a '%' goes through "%s".
func (w *Writer) Line(format string, args ...any) {
	if format == "" {
		w.b.WriteByte('\n')
		return
	}
	w.b.WriteString(strings.Repeat(w.unit, w.indent))
	fmt.Fprintf(&w.b, format, args...)
	w.b.WriteByte('\n')
}

// Raw appends s verbatim, ignoring the indent.
func (w *Writer) Raw(s string) {
	w.b.WriteString(s)
}

func (w *Writer) Indent() { w.indent++ }

func (w *Writer) Dedent() {
	if w.indent > 0 {
		w.indent--
	}
}

// Block writes open, runs body one level deeper, then writes close.
func (w *Writer) Block(open, close string, body func()) {
	w.Line("%s", open)
	w.Indent()
	body()
	w.Dedent()
	if close != "" {
		w.Line("%s", close)
	}
}

// Func writes a signature with its braced body on the following lines.
func (w *Writer) Func(signature string, body func()) {
	w.Line("%s", signature)
	w.Block("{", "}", body)
}

func (w *Writer) String() string {
	return w.b.String()
}

// CString quotes s as a C string literal using only printable ASCII.
func CString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"' || c == '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c >= 0x20 && c < 0x7F:
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "\\%03o", c)
		}
	}
	b.WriteByte('"')
	return b.String()
}
