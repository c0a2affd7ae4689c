// Package emit defines the backend contract shared by every code generator.
package emit

import (
	"fmt"

	"github.com/danmuck/msggen/internal/protocol/schema"
)

// File is one generated output, named relative to the output directory.
// Language is the backend that produced it; the compiler fills it in.
type File struct {
	Name     string
	Text     string
	Language string
}

// Backend turns the message model into source files for one language.
// Emit must be deterministic: the same messages and build id always
// produce the same files. An error means the backend produced nothing.
type Backend interface {
	Language() string
	Emit(msgs []schema.MsgSpec, buildID uint32) ([]File, error)
}

// Banner is the first comment line of every generated file.
func Banner(buildID uint32) string {
	return fmt.Sprintf("Code generated by msggen (build %s). DO NOT EDIT.", BuildIDHex(buildID))
}

func BuildIDHex(buildID uint32) string {
	return fmt.Sprintf("0x%08X", buildID)
}
