package handler

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Descriptor binds a logical name to the factory of its handler.
type Descriptor struct {
	Name    string
	Factory Factory
}

// New builds a fresh handler instance.
func (d Descriptor) New() Handler {
	return d.Factory()
}

// Registry maps logical names to handler factories. It is filled at startup
// and sealed before the server starts listening.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Descriptor
	sealed   bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Descriptor),
	}
}

// Register adds a handler under name. The factory is invoked once to check
// that it yields a handler.
func (r *Registry) Register(name string, factory Factory) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := probe(name, factory); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("%w: cannot register %q", ErrRegistrySealed, name)
	}
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateHandler, name)
	}

	r.handlers[name] = Descriptor{Name: name, Factory: factory}
	return nil
}

// RegisterAll registers every descriptor of a table. The first failure
// aborts and is reported as ErrRegistryInit.
func (r *Registry) RegisterAll(table []Descriptor) error {
	for _, d := range table {
		if err := r.Register(d.Name, d.Factory); err != nil {
			return fmt.Errorf("%w: %w", ErrRegistryInit, err)
		}
	}
	return nil
}

// Seal forbids further registrations.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Sealed reports whether Seal was called.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Resolve returns the descriptor registered under exactly name.
func (r *Registry) Resolve(name string) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.handlers[name]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return d, nil
}

// Names returns the registered names in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered handlers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// ValidateName checks that name is a dot-separated path of non-empty
// segments made of letters, digits, '-' and '_', none starting with '_'.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	for _, seg := range strings.Split(name, ".") {
		if seg == "" {
			return fmt.Errorf("%w: %q has an empty segment", ErrInvalidName, name)
		}
		if seg[0] == '_' {
			return fmt.Errorf("%w: %q has a segment starting with '_'", ErrInvalidName, name)
		}
		for _, ch := range seg {
			if !isNameRune(ch) {
				return fmt.Errorf("%w: %q contains %q", ErrInvalidName, name, ch)
			}
		}
	}
	return nil
}

func isNameRune(ch rune) bool {
	return ch >= 'a' && ch <= 'z' ||
		ch >= 'A' && ch <= 'Z' ||
		ch >= '0' && ch <= '9' ||
		ch == '-' || ch == '_'
}

func probe(name string, factory Factory) (err error) {
	if factory == nil {
		return fmt.Errorf("%w: %q has no factory", ErrUnimplemented, name)
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %q factory panicked: %v", ErrUnimplemented, name, rec)
		}
	}()

	h := factory()
	if h == nil {
		return fmt.Errorf("%w: %q factory returned nil", ErrUnimplemented, name)
	}
	if !h.IsHandler() {
		return fmt.Errorf("%w: %q is not marked as a handler", ErrUnimplemented, name)
	}
	return nil
}
