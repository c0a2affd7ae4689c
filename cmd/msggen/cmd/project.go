package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danmuck/msggen/internal/compiler"
	"github.com/danmuck/msggen/internal/config"
	"github.com/danmuck/msggen/internal/protocol/schema"
)

// projectFlags are shared by commands that compile the project schema.
// Explicit flags override values from the project config.
type projectFlags struct {
	config    string
	schema    string
	format    string
	output    string
	languages []string
	handshake bool
}

func (p *projectFlags) bind(cmd *cobra.Command, withOutput bool) {
	f := cmd.Flags()
	f.StringVarP(&p.config, "config", "c", "", "project config (default ./"+config.DefaultFile+" when present)")
	f.StringVarP(&p.schema, "schema", "s", "", "schema file")
	f.StringVarP(&p.format, "format", "", "", "schema format: toml|yaml (default from extension)")
	f.StringSliceVarP(&p.languages, "lang", "l", nil, "languages to emit (default all)")
	f.BoolVarP(&p.handshake, "handshake", "", false, "prepend the interMCU uid handshake message")
	if withOutput {
		f.StringVarP(&p.output, "out", "o", "", "output directory")
	}
}

func (p *projectFlags) resolve(cmd *cobra.Command) (config.ProjectConfig, error) {
	cfg := config.Default()
	path := p.config
	if path == "" {
		if _, err := os.Stat(config.DefaultFile); err == nil {
			path = config.DefaultFile
		}
	}
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.ProjectConfig{}, err
		}
		cfg = loaded
	}

	f := cmd.Flags()
	if f.Changed("schema") {
		cfg.Schema = p.schema
	}
	if f.Changed("format") {
		cfg.Format = p.format
	}
	if f.Changed("lang") {
		cfg.Languages = p.languages
	}
	if f.Changed("handshake") {
		cfg.Handshake = p.handshake
	}
	if f.Lookup("out") != nil && f.Changed("out") {
		cfg.Output = p.output
		cfg.Outputs = nil
	}
	if err := config.Validate(cfg); err != nil {
		return config.ProjectConfig{}, err
	}
	return cfg, nil
}

func compileProject(cfg config.ProjectConfig) ([]schema.MsgSpec, error) {
	text, err := os.ReadFile(cfg.Schema)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	opts, err := cfg.CompileOptions()
	if err != nil {
		return nil, err
	}
	msgs, err := compiler.Compile(text, opts)
	if err != nil {
		return nil, schemaFailure(cfg.Schema, err)
	}
	return msgs, nil
}

// schemaFailure prints every schema error and condenses them into one.
func schemaFailure(path string, err error) error {
	var list schema.ErrorList
	if !errors.As(err, &list) {
		return fmt.Errorf("%s: %w", path, err)
	}
	for _, line := range list.Strings() {
		failColor.Fprint(os.Stderr, "  ")
		fmt.Fprintf(os.Stderr, "%s: %s\n", path, line)
	}
	return fmt.Errorf("%s: %d schema error(s)", path, len(list))
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}
