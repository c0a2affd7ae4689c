// Package output writes emitted files to disk and renders them for a
// terminal.
package output

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/danmuck/msggen/internal/emit"
	"github.com/danmuck/msggen/internal/observability"
)

var (
	ErrExists   = errors.New("output: file exists")
	ErrBadName  = errors.New("output: invalid file name")
	ErrNoTarget = errors.New("output: no target directory")
)

type Options struct {
	// Overwrite replaces files that already exist.
	Overwrite bool
	// Dirs maps a file name to the directory it is written to, overriding
	// the default directory.
	Dirs map[string]string
}

// Written records one file placed on disk.
type Written struct {
	Path  string
	Bytes int
}

// WriteFiles writes every file under dir concurrently. Existing files are
// only replaced when opts.Overwrite is set; the check happens before any
// file is written so a refusal leaves the tree untouched.
func WriteFiles(ctx context.Context, dir string, files []emit.File, opts Options) ([]Written, error) {
	if dir == "" && len(opts.Dirs) == 0 {
		return nil, ErrNoTarget
	}
	paths := make([]string, len(files))
	for i, f := range files {
		p, err := target(dir, f.Name, opts)
		if err != nil {
			return nil, err
		}
		if !opts.Overwrite {
			if _, err := os.Stat(p); err == nil {
				return nil, fmt.Errorf("%w: %s", ErrExists, p)
			}
		}
		paths[i] = p
	}

	out := make([]Written, len(files))
	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p := paths[i]
			if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
				return fmt.Errorf("output: create %s: %w", filepath.Dir(p), err)
			}
			if err := os.WriteFile(p, []byte(f.Text), 0o644); err != nil {
				return fmt.Errorf("output: write %s: %w", p, err)
			}
			out[i] = Written{Path: p, Bytes: len(f.Text)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, w := range out {
		total += w.Bytes
		log.Debug().Str("path", w.Path).Int("bytes", w.Bytes).Msg("output: wrote file")
	}
	observability.RecordWrite(total)
	return out, nil
}

func target(dir, name string, opts Options) (string, error) {
	if name == "" || filepath.Base(name) != name || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrBadName, name)
	}
	if d, ok := opts.Dirs[name]; ok && d != "" {
		dir = d
	}
	if dir == "" {
		return "", fmt.Errorf("%w for %s", ErrNoTarget, name)
	}
	return filepath.Join(dir, name), nil
}

var (
	bannerColor = color.New(color.FgCyan, color.Bold)
	dimColor    = color.New(color.FgHiBlack)
)

// Print writes every file to w, each preceded by a banner line naming it.
// Files are printed in name order.
func Print(w io.Writer, files []emit.File) error {
	sorted := make([]emit.File, len(files))
	copy(sorted, files)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	for i, f := range sorted {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := bannerColor.Fprintf(w, "==> %s ", f.Name); err != nil {
			return err
		}
		if _, err := dimColor.Fprintf(w, "(%d bytes)\n", len(f.Text)); err != nil {
			return err
		}
		if _, err := io.WriteString(w, f.Text); err != nil {
			return err
		}
	}
	return nil
}
