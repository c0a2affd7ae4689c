package output

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/danmuck/msggen/internal/emit"
)

var sample = []emit.File{
	{Name: "messages.py", Text: "BUILD_ID = 0x00000001\n"},
	{Name: "messages.h", Text: "/* header */\n"},
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	written, err := WriteFiles(context.Background(), dir, sample, Options{})
	require.NoError(t, err)
	require.Len(t, written, 2)
	require.Equal(t, filepath.Join(dir, "messages.py"), written[0].Path)

	got, err := os.ReadFile(filepath.Join(dir, "messages.h"))
	require.NoError(t, err)
	require.Equal(t, "/* header */\n", string(got))
}

func TestWriteFilesRefusesExisting(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "messages.h"), []byte("keep"), 0o644))

	_, err := WriteFiles(context.Background(), dir, sample, Options{})
	require.ErrorIs(t, err, ErrExists)
	_, statErr := os.Stat(filepath.Join(dir, "messages.py"))
	require.True(t, errors.Is(statErr, os.ErrNotExist))

	_, err = WriteFiles(context.Background(), dir, sample, Options{Overwrite: true})
	require.NoError(t, err)
	got, err := os.ReadFile(filepath.Join(dir, "messages.h"))
	require.NoError(t, err)
	require.Equal(t, "/* header */\n", string(got))
}

func TestWriteFilesPerFileDirs(t *testing.T) {
	dir := t.TempDir()
	py := filepath.Join(dir, "py", "pkg")
	written, err := WriteFiles(context.Background(), filepath.Join(dir, "c"), sample, Options{
		Dirs: map[string]string{"messages.py": py},
	})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(py, "messages.py"), written[0].Path)
	require.Equal(t, filepath.Join(dir, "c", "messages.h"), written[1].Path)
}

func TestWriteFilesRejectsPaths(t *testing.T) {
	_, err := WriteFiles(context.Background(), t.TempDir(), []emit.File{{Name: "../x.h"}}, Options{})
	require.ErrorIs(t, err, ErrBadName)

	_, err = WriteFiles(context.Background(), "", sample, Options{})
	require.ErrorIs(t, err, ErrNoTarget)
}

func TestWriteFilesCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := WriteFiles(ctx, t.TempDir(), sample, Options{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestPrintOrdersByName(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var buf bytes.Buffer
	require.NoError(t, Print(&buf, sample))
	want := "==> messages.h (13 bytes)\n/* header */\n\n==> messages.py (22 bytes)\nBUILD_ID = 0x00000001\n"
	require.Equal(t, want, buf.String())
}
