package emit

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrBackendExists  = errors.New("backend already registered")
	ErrBackendNil     = errors.New("backend is nil")
	ErrUnknownBackend = errors.New("unknown backend")
)

// Registry stores backends by language key.
type Registry struct {
	items map[string]Backend
}

func NewRegistry() *Registry {
	return &Registry{items: make(map[string]Backend)}
}

// Register adds a backend. Language keys are lower-case and unique.
func (r *Registry) Register(b Backend) error {
	if b == nil {
		return ErrBackendNil
	}
	key := b.Language()
	if key == "" || key != strings.ToLower(strings.TrimSpace(key)) {
		return fmt.Errorf("%w: invalid language key %q", ErrUnknownBackend, key)
	}
	if _, ok := r.items[key]; ok {
		return fmt.Errorf("%w: %s", ErrBackendExists, key)
	}
	r.items[key] = b
	return nil
}

// Resolve looks a backend up by language, case-insensitively.
func (r *Registry) Resolve(language string) (Backend, error) {
	b, ok := r.items[strings.ToLower(strings.TrimSpace(language))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %s)", ErrUnknownBackend, language, strings.Join(r.Languages(), ", "))
	}
	return b, nil
}

// Languages returns the registered keys in sorted order.
func (r *Registry) Languages() []string {
	list := make([]string, 0, len(r.items))
	for k := range r.items {
		list = append(list, k)
	}
	sort.Strings(list)
	return list
}
