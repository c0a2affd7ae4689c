package pygen

import (
	"strings"
	"testing"

	"github.com/danmuck/msggen/internal/protocol/schema"
	"github.com/danmuck/msggen/internal/table"
	"github.com/stretchr/testify/require"
)

const fixture = `
[drive.speed]
left = { type = "i16", min = -1000, max = 1000 }
gain = { type = "f32", min = 0.0, max = 2.5 }
label = { type = "chars", size = 6 }

[link.ping]
`

func parse(t *testing.T) []schema.MsgSpec {
	t.Helper()
	root, err := table.FromTOML([]byte(fixture))
	require.NoError(t, err)
	msgs, err := schema.Parse(root)
	require.NoError(t, err)
	return msgs
}

func TestEmitModule(t *testing.T) {
	files, err := New().Emit(parse(t), 0x10)
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, ModuleFile, files[0].Name)
	text := files[0].Text

	for _, want := range []string{
		"BUILD_ID = 0x00000010",
		"def clamp(low, value, high):\n    return max(min(value, high), low)",
		"class DriveSpeed:",
		"    ID = 0",
		`    NAME = "DriveSpeed"`,
		"    FRAME_SIZE = 18",
		`    FORMAT = "<hf6s"`,
		`        self._values = [0, 0.0, b"\x00" * 6]`,
		"    @left.setter\n    def left(self, value):\n        self._values[0] = clamp(-1000, int(value), 1000)",
		"        self._values[1] = _f32(clamp(0.0, float(value), 2.5))",
		"        self._values[2] = _chars(value, 6)",
		`        return "DriveSpeed(left=%r, gain=%r, label=%r)" % tuple(self._values)`,
		"class LinkPing:",
		`    FORMAT = "<"`,
		"        self._values = []",
		`        return "LinkPing()"`,
		"    DriveSpeed.ID: DriveSpeed,",
		"def dispatch(frame):",
		"class Parser:",
	} {
		require.Contains(t, text, want)
	}
	require.False(t, strings.Contains(text, "\t"), "python output must indent with spaces")
}

func TestEmitEmptySchema(t *testing.T) {
	files, err := New().Emit(nil, 0)
	require.NoError(t, err)
	text := files[0].Text
	require.Contains(t, text, "MESSAGES = {}")
}

func TestStructCodes(t *testing.T) {
	require.Equal(t, "b", structCode(schema.Scalar(schema.KindI8)))
	require.Equal(t, "I", structCode(schema.Scalar(schema.KindU32)))
	require.Equal(t, "12s", structCode(schema.Chars(12)))
}
