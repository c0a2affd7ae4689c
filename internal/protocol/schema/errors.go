package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Declaration errors. Field and message errors wrap one of these, so callers
// classify with errors.Is.
var (
	ErrTypeInvalid     = errors.New("type invalid")
	ErrCharSizeInvalid = errors.New("chars size invalid")
	ErrTypeNotFound    = errors.New("type not found")
	ErrSizeNotFound    = errors.New("size not found")
	ErrBoundsInvalid   = errors.New("bounds invalid")

	ErrNameInvalid     = errors.New("name invalid")
	ErrDuplicateName   = errors.New("duplicate name")
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrTooManyMessages = errors.New("too many messages")

	ErrStructure = errors.New("schema: malformed document")
)

// FieldError attaches a declaration error to one field.
type FieldError struct {
	Message string
	Field   string
	Err     error
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Message, e.Field, e.Err)
}

func (e FieldError) Unwrap() error {
	return e.Err
}

// MessageError attaches an error to a whole message.
type MessageError struct {
	Message string
	Err     error
}

func (e MessageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e MessageError) Unwrap() error {
	return e.Err
}

// ErrorList is every schema error found in one pass, in document order.
type ErrorList []error

func (l ErrorList) Error() string {
	switch len(l) {
	case 0:
		return "schema: no errors"
	case 1:
		return "schema: " + l[0].Error()
	default:
		return fmt.Sprintf("schema: %d errors:\n  %s", len(l), strings.Join(l.Strings(), "\n  "))
	}
}

func (l ErrorList) Unwrap() []error {
	return l
}

// Strings renders one line per error.
func (l ErrorList) Strings() []string {
	out := make([]string, len(l))
	for i, err := range l {
		out[i] = err.Error()
	}
	return out
}

// Err returns nil for an empty list.
func (l ErrorList) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}
