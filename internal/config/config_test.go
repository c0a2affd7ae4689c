package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/msggen/internal/compiler"
	"github.com/danmuck/msggen/internal/table"
	"github.com/danmuck/msggen/internal/testutil/testlog"
)

func writeFile(t *testing.T, path, text string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadResolvesPathsAndDefaults(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFile)
	writeFile(t, path, `
schema = "proto/robot.yaml"
languages = ["c", "Python"]
handshake = true

[outputs]
Python = "py"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Schema != filepath.Join(dir, "proto", "robot.yaml") {
		t.Fatalf("schema path: %s", cfg.Schema)
	}
	if cfg.Output != filepath.Join(dir, "generated") {
		t.Fatalf("default output: %s", cfg.Output)
	}
	if got := cfg.OutputDir("python"); got != filepath.Join(dir, "py") {
		t.Fatalf("python output dir: %s", got)
	}
	if got := cfg.OutputDir("c"); got != cfg.Output {
		t.Fatalf("c output dir: %s", got)
	}

	opts, err := cfg.CompileOptions()
	if err != nil {
		t.Fatalf("compile options: %v", err)
	}
	if opts != (compiler.Options{Format: table.FormatYAML, Handshake: true}) {
		t.Fatalf("unexpected options: %+v", opts)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	testlog.Start(t)
	cases := map[string]string{
		"language": `languages = ["rust"]`,
		"format":   `format = "json"`,
		"outputs":  "[outputs]\nfortran = \"f\"",
		"schema":   `schema = " "`,
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), DefaultFile)
			writeFile(t, path, text)
			if _, err := Load(path); !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	testlog.Start(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestTemplatesLoadAndCompile(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, DefaultFile)
	schemaPath := filepath.Join(dir, SchemaFile)
	if err := WriteTemplate(cfgPath, "project", false); err != nil {
		t.Fatalf("write project template: %v", err)
	}
	if err := WriteTemplate(schemaPath, "schema", false); err != nil {
		t.Fatalf("write schema template: %v", err)
	}
	if err := WriteTemplate(cfgPath, "project", false); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
	if err := WriteTemplate(cfgPath, "project", true); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	if len(cfg.Languages) != 4 {
		t.Fatalf("languages: %v", cfg.Languages)
	}
	opts, err := cfg.CompileOptions()
	if err != nil {
		t.Fatalf("compile options: %v", err)
	}
	text, err := os.ReadFile(cfg.Schema)
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	msgs, err := compiler.Compile(text, opts)
	if err != nil {
		t.Fatalf("compile sample schema: %v", err)
	}
	if len(msgs) != 3 || msgs[2].Name != "StatusBattery" || msgs[2].PayloadSize() != 15 {
		t.Fatalf("unexpected sample model: %+v", msgs)
	}
}

func TestTemplateUnknownKind(t *testing.T) {
	testlog.Start(t)
	if _, err := Template("service"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}
