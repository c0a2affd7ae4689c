package config

import (
	"strings"

	"github.com/danmuck/msggen/internal/compiler"
	"github.com/danmuck/msggen/internal/table"
)

// CompileOptions derives compiler options; an empty format is guessed from
// the schema file extension.
func (c ProjectConfig) CompileOptions() (compiler.Options, error) {
	format := table.FormatFromPath(c.Schema)
	if c.Format != "" {
		f, err := table.ParseFormat(c.Format)
		if err != nil {
			return compiler.Options{}, err
		}
		format = f
	}
	return compiler.Options{Format: format, Handshake: c.Handshake}, nil
}

// OutputDir is where files for lang are written.
func (c ProjectConfig) OutputDir(lang string) string {
	if dir, ok := c.Outputs[strings.ToLower(lang)]; ok && dir != "" {
		return dir
	}
	return c.Output
}
