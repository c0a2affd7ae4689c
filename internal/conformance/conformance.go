// Package conformance checks emitted code against the Go reference codec.
// Emitted sources and a generated driver are written to a scratch
// directory, built with the host toolchain and run; each driver replays
// the reference test vectors through the generated setters, serializer,
// dispatcher and stream parser.
package conformance

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/msggen/internal/compiler"
	"github.com/danmuck/msggen/internal/emit"
	"github.com/danmuck/msggen/internal/emit/cppgen"
	"github.com/danmuck/msggen/internal/emit/jsongen"
	"github.com/danmuck/msggen/internal/output"
	"github.com/danmuck/msggen/internal/protocol/schema"
	"github.com/danmuck/msggen/internal/tools"
)

var (
	ErrMismatch     = errors.New("conformance: emitted code disagrees with reference frames")
	ErrBuild        = errors.New("conformance: emitted code failed to build")
	ErrUnsupported  = errors.New("conformance: unsupported language")
	ErrToolsMissing = errors.New("conformance: toolchain not available")
)

// Languages lists what the harness can check, in run order.
var Languages = []string{"python", "c", "cpp"}

// Report describes one language run.
type Report struct {
	Language string
	Vectors  int
	Skipped  bool
	Reason   string
	Output   string
}

type Harness struct {
	Runner tools.CommandRunner
	// Lookup reports whether a tool is installed; tools.Available by default.
	Lookup func(name string) bool
	Python string
	CC     string
	CXX    string
	// Dir is the scratch directory. When empty a temporary one is created
	// per run and removed afterwards.
	Dir string
}

func New() *Harness {
	return &Harness{
		Runner: tools.ExecRunner{},
		Lookup: tools.Available,
		Python: "python3",
		CC:     "cc",
		CXX:    "c++",
	}
}

// Run checks each requested language, all of Languages when none are
// given. A missing toolchain yields a skipped report rather than an error.
func (h *Harness) Run(ctx context.Context, msgs []schema.MsgSpec, buildID uint32, langs ...string) ([]Report, error) {
	if len(langs) == 0 {
		langs = Languages
	}
	reports := make([]Report, 0, len(langs))
	for _, lang := range langs {
		rep, err := h.RunLanguage(ctx, msgs, buildID, lang)
		if errors.Is(err, ErrToolsMissing) {
			reports = append(reports, Report{Language: lang, Skipped: true, Reason: err.Error()})
			continue
		}
		if err != nil {
			return reports, err
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

func (h *Harness) RunLanguage(ctx context.Context, msgs []schema.MsgSpec, buildID uint32, lang string) (Report, error) {
	lang = strings.ToLower(lang)
	var run func(context.Context, string, []schema.MsgSpec, uint32) (Report, error)
	switch lang {
	case "python":
		run = h.runPython
	case "c":
		run = h.runC
	case "cpp":
		run = h.runCPP
	default:
		return Report{}, fmt.Errorf("%w: %s", ErrUnsupported, lang)
	}

	dir, cleanup, err := h.scratch(lang)
	if err != nil {
		return Report{}, err
	}
	defer cleanup()

	rep, err := run(ctx, dir, msgs, buildID)
	rep.Language = lang
	if err == nil {
		log.Info().Str("language", lang).Int("vectors", rep.Vectors).Msg("conformance: passed")
	}
	return rep, err
}

func (h *Harness) scratch(lang string) (string, func(), error) {
	if h.Dir != "" {
		dir := filepath.Join(h.Dir, lang)
		return dir, func() {}, os.MkdirAll(dir, 0o755)
	}
	dir, err := os.MkdirTemp("", "msggen-conformance-"+lang+"-")
	if err != nil {
		return "", nil, fmt.Errorf("conformance: scratch dir: %w", err)
	}
	return dir, func() { _ = os.RemoveAll(dir) }, nil
}

func (h *Harness) require(name string) error {
	lookup := h.Lookup
	if lookup == nil {
		lookup = tools.Available
	}
	if name == "" || !lookup(name) {
		return fmt.Errorf("%w: %q", ErrToolsMissing, name)
	}
	return nil
}

func (h *Harness) stage(ctx context.Context, dir string, msgs []schema.MsgSpec, buildID uint32, lang string, extra ...emit.File) error {
	files, err := compiler.Generate(msgs, buildID, lang)
	if err != nil {
		return err
	}
	files = append(files, extra...)
	_, err = output.WriteFiles(ctx, dir, files, output.Options{Overwrite: true})
	return err
}

func (h *Harness) exec(ctx context.Context, dir string, fail error, name string, args ...string) (tools.Result, error) {
	res, err := h.Runner.Run(ctx, tools.Command{Name: name, Args: args, Dir: dir})
	if err != nil {
		log.Debug().Str("cmd", name).Int32("exit", res.ExitCode).Bytes("stderr", res.Stderr).Msg("conformance: command failed")
		return res, fmt.Errorf("%w: %s exited %d: %s", fail, name, res.ExitCode, strings.TrimSpace(string(res.Stderr)+string(res.Stdout)))
	}
	return res, nil
}

func (h *Harness) runPython(ctx context.Context, dir string, msgs []schema.MsgSpec, buildID uint32) (Report, error) {
	if err := h.require(h.Python); err != nil {
		return Report{}, err
	}
	n, err := vectorCount(msgs)
	if err != nil {
		return Report{}, err
	}
	manifest, err := jsongen.New().Emit(msgs, buildID)
	if err != nil {
		return Report{}, err
	}
	extra := append(manifest, emit.File{Name: "driver.py", Text: pythonDriver})
	if err := h.stage(ctx, dir, msgs, buildID, "python", extra...); err != nil {
		return Report{}, err
	}
	res, err := h.exec(ctx, dir, ErrMismatch, h.Python, "driver.py", jsongen.ManifestFile)
	return Report{Vectors: n, Output: string(res.Stdout)}, err
}

func (h *Harness) runC(ctx context.Context, dir string, msgs []schema.MsgSpec, buildID uint32) (Report, error) {
	if err := h.require(h.CC); err != nil {
		return Report{}, err
	}
	driver, n, err := cDriver(msgs)
	if err != nil {
		return Report{}, err
	}
	if err := h.stage(ctx, dir, msgs, buildID, "c", emit.File{Name: "driver.c", Text: driver}); err != nil {
		return Report{}, err
	}
	if _, err := h.exec(ctx, dir, ErrBuild, h.CC, "-std=c99", "-Wall", "-o", "driver", "messages.c", "driver.c"); err != nil {
		return Report{}, err
	}
	res, err := h.exec(ctx, dir, ErrMismatch, filepath.Join(dir, "driver"))
	return Report{Vectors: n, Output: string(res.Stdout)}, err
}

func (h *Harness) runCPP(ctx context.Context, dir string, msgs []schema.MsgSpec, buildID uint32) (Report, error) {
	if err := h.require(h.CXX); err != nil {
		return Report{}, err
	}
	driver, n, err := cppDriver(msgs, cppgen.New().Namespace)
	if err != nil {
		return Report{}, err
	}
	if err := h.stage(ctx, dir, msgs, buildID, "cpp", emit.File{Name: "driver.cpp", Text: driver}); err != nil {
		return Report{}, err
	}
	if _, err := h.exec(ctx, dir, ErrBuild, h.CXX, "-std=c++11", "-Wall", "-o", "driver", "driver.cpp"); err != nil {
		return Report{}, err
	}
	res, err := h.exec(ctx, dir, ErrMismatch, filepath.Join(dir, "driver"))
	return Report{Vectors: n, Output: string(res.Stdout)}, err
}
