package cppgen

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

func TestEmitHeaderOnly(t *testing.T) {
	files, err := New().Emit(parse(t), 0xABCDEF01)
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, HeaderFile, files[0].Name)
	text := files[0].Text

	for _, want := range []string{
		"#pragma once",
		"namespace msggen {",
		"constexpr std::uint32_t kBuildId = 0xABCDEF01u;",
		"constexpr T clamp(T low, T value, T high)",
		"class DriveSpeed final : public MsgBase {",
		"    static constexpr std::uint8_t kId = 0;",
		"    static constexpr std::size_t kFrameSize = 18;",
		"        left_ = static_cast<std::int16_t>(clamp<std::int64_t>((-1000LL), value, 1000LL));",
		"        gain_ = static_cast<float>(clamp<double>(0.0, value, 2.5));",
		"    void set_label(const char *data, std::size_t len)",
		"        detail::put_u16(buf + 4, static_cast<std::uint16_t>(left_));",
		"        detail::put_u16(buf + 16, checksum(buf + 2, 14));",
		"    char label_[6] = {};",
		"class LinkPing final : public MsgBase {",
		"    case LinkPing::kId:",
		"inline std::unique_ptr<MsgBase> msg_dispatch(const std::uint8_t *frame, std::size_t len)",
		"}  // namespace msggen",
	} {
		require.Contains(t, text, want)
	}
	// no private section for a message without fields
	ping := text[strings.Index(text, "class LinkPing"):]
	ping = ping[:strings.Index(ping, "};")]
	require.NotContains(t, ping, "private:")
}

func TestEmitNamespace(t *testing.T) {
	b := &Backend{Namespace: "robot"}
	files, err := b.Emit(parse(t), 1)
	require.NoError(t, err)
	text := files[0].Text
	require.Contains(t, text, "namespace robot {")
	require.Equal(t, "cpp", b.Language())
}
