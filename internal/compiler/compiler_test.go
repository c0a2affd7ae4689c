package compiler

import (
	"errors"
	"testing"

	"github.com/danmuck/msggen/internal/emit"
	"github.com/danmuck/msggen/internal/protocol/schema"
	"github.com/danmuck/msggen/internal/table"
	"github.com/stretchr/testify/require"
)

const robotTOML = `
[drive.speed]
left = { type = "i16", min = -1000, max = 1000 }
right = { type = "i16", min = -1000, max = 1000 }

[drive.stop]

[status.battery]
millivolts = "u16"
percent = { type = "u8", max = 100 }
label = "chars"
`

const robotYAML = `
drive:
  speed:
    left: {type: i16, min: -1000, max: 1000}
    right: {type: i16, min: -1000, max: 1000}
  stop: {}
status:
  battery:
    millivolts: u16
    percent: {type: u8, max: 100}
    label: chars
`

func TestCompileAssignsIDs(t *testing.T) {
	msgs, err := Compile([]byte(robotTOML), Options{})
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	require.Equal(t, "DriveSpeed", msgs[0].Name)
	require.Equal(t, "DriveStop", msgs[1].Name)
	require.Equal(t, "StatusBattery", msgs[2].Name)
	for i, m := range msgs {
		require.Equal(t, uint8(i), m.ID)
	}
	require.Equal(t, 13, msgs[2].PayloadSize())
}

func TestCompileYAMLMatchesTOML(t *testing.T) {
	fromTOML, err := Compile([]byte(robotTOML), Options{Format: table.FormatTOML})
	require.NoError(t, err)
	fromYAML, err := Compile([]byte(robotYAML), Options{Format: table.FormatYAML})
	require.NoError(t, err)
	require.Equal(t, fromTOML, fromYAML)
}

func TestCompileHandshake(t *testing.T) {
	msgs, err := Compile([]byte(robotTOML), Options{Handshake: true})
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	require.Equal(t, "InterMcuUid", msgs[0].Name)
	require.Equal(t, uint8(1), msgs[1].ID)
}

func TestCompileErrors(t *testing.T) {
	_, err := Compile([]byte("[broken"), Options{})
	require.ErrorIs(t, err, table.ErrDecode)

	_, err = Compile([]byte(`
[a.one]
x = "u128"
[a.two]
y = { type = "i8", min = -200 }
`), Options{})
	var list schema.ErrorList
	require.True(t, errors.As(err, &list))
	require.Len(t, list, 2)
	require.Equal(t, 2, errorCount(err))
	require.Equal(t, 1, errorCount(errors.New("x")))
}

func TestGenerateAllBackends(t *testing.T) {
	msgs, err := Compile([]byte(robotTOML), Options{})
	require.NoError(t, err)

	files, err := Generate(msgs, 0x01020304)
	require.NoError(t, err)
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
		require.Contains(t, f.Text, "0x01020304", f.Name)
	}
	require.Equal(t, []string{"messages.h", "messages.c", "messages.hpp", "messages.json", "messages.py"}, names)

	again, err := Generate(msgs, 0x01020304)
	require.NoError(t, err)
	require.Equal(t, files, again)
}

func TestGenerateSelectedLanguages(t *testing.T) {
	msgs, err := Compile([]byte(robotTOML), Options{})
	require.NoError(t, err)
	files, err := Generate(msgs, 1, "python")
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "messages.py", files[0].Name)

	_, err = Generate(msgs, 1, "cobol")
	require.ErrorIs(t, err, emit.ErrUnknownBackend)
}

func TestGenerateRejectsRepeatedLanguage(t *testing.T) {
	msgs, err := Compile([]byte(robotTOML), Options{})
	require.NoError(t, err)
	files, err := Generate(msgs, 1, "c", "python", "C")
	require.ErrorIs(t, err, ErrDuplicateLanguage)
	require.Contains(t, err.Error(), ": c")
	require.Nil(t, files)
}

func TestGenerateTagsFilesWithLanguage(t *testing.T) {
	msgs, err := Compile([]byte(robotTOML), Options{})
	require.NoError(t, err)
	files, err := Generate(msgs, 1, "c", "python", "json")
	require.NoError(t, err)
	byName := map[string]string{}
	for _, f := range files {
		byName[f.Name] = f.Language
	}
	require.Equal(t, map[string]string{
		"messages.h":    "c",
		"messages.c":    "c",
		"messages.py":   "python",
		"messages.json": "json",
	}, byName)
}

type failingBackend struct{}

func (failingBackend) Language() string { return "broken" }

func (failingBackend) Emit([]schema.MsgSpec, uint32) ([]emit.File, error) {
	return nil, errBroken
}

var errBroken = errors.New("broken backend")

func TestGenerateReportsBackendError(t *testing.T) {
	reg := emit.NewRegistry()
	require.NoError(t, reg.Register(failingBackend{}))
	files, err := GenerateWith(reg, nil, 1)
	require.ErrorIs(t, err, errBroken)
	require.Contains(t, err.Error(), "compiler: broken backend")
	require.Nil(t, files)
}

type mutatingBackend struct{ lang string }

func (m mutatingBackend) Language() string { return m.lang }

func (m mutatingBackend) Emit(msgs []schema.MsgSpec, _ uint32) ([]emit.File, error) {
	for i := range msgs {
		msgs[i].Name = "Mutated"
		msgs[i].Fields = nil
	}
	return []emit.File{{Name: m.lang + ".out"}}, nil
}

func TestGenerateIsolatesBackends(t *testing.T) {
	msgs, err := Compile([]byte(robotTOML), Options{})
	require.NoError(t, err)
	reg := emit.NewRegistry()
	require.NoError(t, reg.Register(mutatingBackend{lang: "evil"}))
	_, err = GenerateWith(reg, msgs, 1)
	require.NoError(t, err)
	require.Equal(t, "DriveSpeed", msgs[0].Name)
	require.Len(t, msgs[0].Fields, 2)
}

type clashBackend struct{ lang string }

func (c clashBackend) Language() string { return c.lang }

func (c clashBackend) Emit([]schema.MsgSpec, uint32) ([]emit.File, error) {
	return []emit.File{{Name: "same.txt"}}, nil
}

func TestGenerateRejectsFileClash(t *testing.T) {
	reg := emit.NewRegistry()
	require.NoError(t, reg.Register(clashBackend{lang: "a"}))
	require.NoError(t, reg.Register(clashBackend{lang: "b"}))
	_, err := GenerateWith(reg, nil, 1)
	require.Error(t, err)
}

func TestNewBuildIDVaries(t *testing.T) {
	seen := map[uint32]bool{}
	for i := 0; i < 8; i++ {
		seen[NewBuildID()] = true
	}
	require.Greater(t, len(seen), 1)
}
