package servlets

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gitlab.com/deepdhamala/webtainer/internal/registry"
	"gitlab.com/deepdhamala/webtainer/internal/servlet"
)

var (
	// ErrUnknownServlet is returned for a mapping naming a servlet that is
	// not in the factory
	ErrUnknownServlet = errors.New("unknown servlet")
	// ErrInvalidMapping is returned for a mapping that is not path=name
	ErrInvalidMapping = errors.New("invalid servlet mapping")
)

// Constructor creates a new servlet instance
type Constructor func() servlet.Servlet

// Factory maps servlet names to their constructors
type Factory map[string]Constructor

// DefaultFactory holds the built-in servlets
func DefaultFactory() Factory {
	return Factory{
		"welcome": NewWelcome,
		"status":  NewStatus,
	}
}

// Names returns the servlet names in alphabetical order
func (f Factory) Names() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// New creates the servlet registered as name
func (f Factory) New(name string) (servlet.Servlet, error) {
	constructor, ok := f[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q, available: %s", ErrUnknownServlet, name, strings.Join(f.Names(), ", "))
	}

	return constructor(), nil
}

// Mapping binds a servlet name to a request path
type Mapping struct {
	Path string
	Name string
}

// ParseMapping parses a path=name entry
func ParseMapping(entry string) (Mapping, error) {
	parts := strings.SplitN(entry, "=", 2)
	if len(parts) != 2 {
		return Mapping{}, fmt.Errorf("%w: %q", ErrInvalidMapping, entry)
	}

	m := Mapping{
		Path: strings.TrimSpace(parts[0]),
		Name: strings.TrimSpace(parts[1]),
	}

	if !strings.HasPrefix(m.Path, "/") || m.Name == "" {
		return Mapping{}, fmt.Errorf("%w: %q", ErrInvalidMapping, entry)
	}

	return m, nil
}

// Load creates and registers one servlet per path=name entry, in order. It
// stops at the first entry that can not be registered.
func Load(reg *registry.Registry, mappings []string, factory Factory) error {
	for _, entry := range mappings {
		m, err := ParseMapping(entry)
		if err != nil {
			return err
		}

		s, err := factory.New(m.Name)
		if err != nil {
			return err
		}

		if err := reg.Register(m.Path, s); err != nil {
			return err
		}
	}

	return nil
}
