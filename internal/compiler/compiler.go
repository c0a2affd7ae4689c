// Package compiler wires the schema loaders, the model and the backends into
// the single compile pipeline the CLI drives.
package compiler

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tiendc/go-deepcopy"

	"github.com/danmuck/msggen/internal/emit"
	"github.com/danmuck/msggen/internal/emit/cgen"
	"github.com/danmuck/msggen/internal/emit/cppgen"
	"github.com/danmuck/msggen/internal/emit/jsongen"
	"github.com/danmuck/msggen/internal/emit/pygen"
	"github.com/danmuck/msggen/internal/observability"
	"github.com/danmuck/msggen/internal/protocol/schema"
	"github.com/danmuck/msggen/internal/table"
)

// ErrDuplicateLanguage rejects a language requested more than once.
var ErrDuplicateLanguage = errors.New("compiler: language requested twice")

// Options control how schema text is read.
type Options struct {
	Format    table.Format
	Handshake bool
}

// Compile loads schema text and returns the validated messages with ids
// assigned. Schema errors come back together as a schema.ErrorList; a
// document that does not decode, or whose shape is wrong, yields a single
// error.
func Compile(text []byte, opts Options) ([]schema.MsgSpec, error) {
	start := time.Now()
	format := opts.Format
	if format == "" {
		format = table.FormatTOML
	}
	root, err := table.Load(text, format)
	if err != nil {
		observability.RecordCompile(0, 1, time.Since(start))
		return nil, err
	}
	var parseOpts []schema.Option
	if opts.Handshake {
		parseOpts = append(parseOpts, schema.WithHandshake())
	}
	msgs, err := schema.Parse(root, parseOpts...)
	if err != nil {
		observability.RecordCompile(0, errorCount(err), time.Since(start))
		return nil, err
	}
	observability.RecordCompile(len(msgs), 0, time.Since(start))
	log.Debug().
		Int("messages", len(msgs)).
		Str("fingerprint", schema.Fingerprint(msgs)).
		Msg("compiler: schema compiled")
	return msgs, nil
}

func errorCount(err error) int {
	var list schema.ErrorList
	if errors.As(err, &list) {
		return len(list)
	}
	return 1
}

// Backends returns a registry holding every built-in backend.
func Backends() *emit.Registry {
	r := emit.NewRegistry()
	for _, b := range []emit.Backend{cgen.New(), cppgen.New(), pygen.New(), jsongen.New()} {
		if err := r.Register(b); err != nil {
			panic(err)
		}
	}
	return r
}

// Generate runs the named backends in order, each on its own copy of msgs.
// No languages means every registered backend.
func Generate(msgs []schema.MsgSpec, buildID uint32, languages ...string) ([]emit.File, error) {
	return GenerateWith(Backends(), msgs, buildID, languages...)
}

func GenerateWith(reg *emit.Registry, msgs []schema.MsgSpec, buildID uint32, languages ...string) ([]emit.File, error) {
	if len(languages) == 0 {
		languages = reg.Languages()
	}
	backends := make([]emit.Backend, 0, len(languages))
	requested := make(map[string]bool, len(languages))
	for _, lang := range languages {
		b, err := reg.Resolve(lang)
		if err != nil {
			return nil, err
		}
		if requested[b.Language()] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateLanguage, b.Language())
		}
		requested[b.Language()] = true
		backends = append(backends, b)
	}

	var files []emit.File
	seen := make(map[string]string)
	for _, b := range backends {
		var model []schema.MsgSpec
		if err := deepcopy.Copy(&model, &msgs); err != nil {
			return nil, fmt.Errorf("compiler: copy model for %s: %w", b.Language(), err)
		}
		out, err := b.Emit(model, buildID)
		if err != nil {
			return nil, fmt.Errorf("compiler: %s backend: %w", b.Language(), err)
		}
		for i, f := range out {
			if prev, dup := seen[f.Name]; dup {
				return nil, fmt.Errorf("compiler: %s and %s both emit %s", prev, b.Language(), f.Name)
			}
			seen[f.Name] = b.Language()
			out[i].Language = b.Language()
		}
		observability.RecordEmit(b.Language(), len(out))
		log.Debug().Str("language", b.Language()).Int("files", len(out)).Msg("compiler: emitted")
		files = append(files, out...)
	}
	return files, nil
}

// NewBuildID draws a random identifier for one compiler run. Peers compare
// it to detect mismatched generated code.
func NewBuildID() uint32 {
	id := uuid.New()
	return binary.LittleEndian.Uint32(id[:4])
}
