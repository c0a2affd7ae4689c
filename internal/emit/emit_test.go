package emit

import (
	"testing"

	"github.com/danmuck/msggen/internal/protocol/schema"
	"github.com/stretchr/testify/require"
)

type stubBackend string

func (s stubBackend) Language() string { return string(s) }

func (s stubBackend) Emit([]schema.MsgSpec, uint32) ([]File, error) {
	return []File{{Name: string(s) + ".txt", Text: "x"}}, nil
}

func TestRegistryRegisterResolve(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(stubBackend("python")))
	require.NoError(t, r.Register(stubBackend("c")))
	require.ErrorIs(t, r.Register(stubBackend("c")), ErrBackendExists)
	require.ErrorIs(t, r.Register(nil), ErrBackendNil)
	require.ErrorIs(t, r.Register(stubBackend("Go")), ErrUnknownBackend)

	b, err := r.Resolve(" Python ")
	require.NoError(t, err)
	require.Equal(t, "python", b.Language())

	_, err = r.Resolve("rust")
	require.ErrorIs(t, err, ErrUnknownBackend)
	require.Contains(t, err.Error(), "c, python")
	require.Equal(t, []string{"c", "python"}, r.Languages())
}

func TestWriter(t *testing.T) {
	w := NewWriter("  ")
	w.Block("outer {", "}", func() {
		w.Line("value = %d;", 3)
		w.Line("")
		w.Line("100%%")
	})
	w.Raw("raw\n")
	require.Equal(t, "outer {\n  value = 3;\n\n  100%\n}\nraw\n", w.String())
}

func TestWriterKeepsPercentInBlocks(t *testing.T) {
	w := NewWriter("    ")
	w.Func("def ratio(a, b):  # 50%d", func() {
		w.Block("if a % b:", "", func() {
			w.Line("%s", "return '%s' % a")
		})
	})
	require.Equal(t, "def ratio(a, b):  # 50%d\n{\n    if a % b:\n        return '%s' % a\n}\n", w.String())
}

func TestCString(t *testing.T) {
	require.Equal(t, `"Drive\"Speed\\"`, CString(`Drive"Speed\`))
	require.Equal(t, `"a\001b"`, CString("a\x01b"))
}

func TestBanner(t *testing.T) {
	require.Equal(t, "0x00C0FFEE", BuildIDHex(0xC0FFEE))
	require.Contains(t, Banner(0xC0FFEE), "0x00C0FFEE")
	require.Contains(t, Banner(1), "DO NOT EDIT")
}
