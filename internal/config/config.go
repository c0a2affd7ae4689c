package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/danmuck/msggen/internal/compiler"
	"github.com/danmuck/msggen/internal/table"
)

// DefaultFile is the project config name looked up in the working directory.
const DefaultFile = "msggen.toml"

var ErrInvalid = errors.New("config: invalid project config")

type ProjectConfig struct {
	Schema    string            `toml:"schema"`
	Format    string            `toml:"format"`
	Output    string            `toml:"output"`
	Languages []string          `toml:"languages"`
	Handshake bool              `toml:"handshake"`
	Outputs   map[string]string `toml:"outputs"`
}

func Default() ProjectConfig {
	return ProjectConfig{
		Schema: "messages.toml",
		Output: "generated",
	}
}

// Load reads path, fills defaults, resolves relative paths against the
// config file's directory and validates the result.
func Load(path string) (ProjectConfig, error) {
	cfg := Default()
	if err := loadToml(path, &cfg); err != nil {
		return ProjectConfig{}, err
	}
	cfg = cfg.Resolve(filepath.Dir(path))
	if err := Validate(cfg); err != nil {
		return ProjectConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

// Resolve makes relative paths relative to base.
func (c ProjectConfig) Resolve(base string) ProjectConfig {
	join := func(p string) string {
		if strings.TrimSpace(p) == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	c.Schema = join(c.Schema)
	c.Output = join(c.Output)
	if len(c.Outputs) > 0 {
		outs := make(map[string]string, len(c.Outputs))
		for lang, dir := range c.Outputs {
			outs[strings.ToLower(lang)] = join(dir)
		}
		c.Outputs = outs
	}
	return c
}

func Validate(cfg ProjectConfig) error {
	if strings.TrimSpace(cfg.Schema) == "" {
		return fmt.Errorf("%w: schema is required", ErrInvalid)
	}
	if cfg.Format != "" {
		if _, err := table.ParseFormat(cfg.Format); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	}
	reg := compiler.Backends()
	for _, lang := range cfg.Languages {
		if _, err := reg.Resolve(lang); err != nil {
			return fmt.Errorf("%w: languages: %w", ErrInvalid, err)
		}
	}
	for lang, dir := range cfg.Outputs {
		if _, err := reg.Resolve(lang); err != nil {
			return fmt.Errorf("%w: outputs: %w", ErrInvalid, err)
		}
		if strings.TrimSpace(dir) == "" {
			return fmt.Errorf("%w: outputs.%s is empty", ErrInvalid, lang)
		}
	}
	if strings.TrimSpace(cfg.Output) == "" && len(cfg.Outputs) == 0 {
		return fmt.Errorf("%w: output is required", ErrInvalid)
	}
	return nil
}
