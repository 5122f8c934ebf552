package registry

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	"gitlab.com/gitlab-org/labkit/log"

	"gitlab.com/deepdhamala/webtainer/internal/servlet"
	"gitlab.com/deepdhamala/webtainer/metrics"
)

var (
	// ErrDuplicatePath is returned when a servlet is already registered for
	// the path
	ErrDuplicatePath = errors.New("servlet already registered for path")
	// ErrRegistryFrozen is returned when registering after Freeze
	ErrRegistryFrozen = errors.New("registry is frozen")
)

// Registry maps exact request paths to servlets and owns their lifecycle.
// It is populated before serving starts and then frozen; a frozen Registry
// is read-only and safe for concurrent lookups.
type Registry struct {
	mu       sync.Mutex
	frozen   int32
	servlets map[string]servlet.Servlet
	paths    []string

	destroyOnce sync.Once
	destroyErr  error
}

// New creates an empty Registry
func New() *Registry {
	return &Registry{
		servlets: make(map[string]servlet.Servlet),
	}
}

// Register binds s to path and initializes it. The first registration of a
// path is kept when the same path is registered again. A servlet whose Init
// fails is not registered.
func (r *Registry) Register(path string, s servlet.Servlet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Frozen() {
		return fmt.Errorf("%w: can not register %q", ErrRegistryFrozen, path)
	}

	if _, ok := r.servlets[path]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicatePath, path)
	}

	if err := s.Init(); err != nil {
		return fmt.Errorf("initializing servlet for %s: %w", path, err)
	}

	r.servlets[path] = s
	r.paths = append(r.paths, path)
	metrics.ServletsRegistered.Inc()

	log.WithFields(log.Fields{"path": path}).Debug("Servlet registered")

	return nil
}

// Freeze ends the registration phase
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()

	atomic.StoreInt32(&r.frozen, 1)
}

// Frozen reports whether Freeze was called
func (r *Registry) Frozen() bool {
	return atomic.LoadInt32(&r.frozen) == 1
}

// Lookup returns the servlet registered for exactly path
func (r *Registry) Lookup(path string) (servlet.Servlet, bool) {
	s, ok := r.servlets[path]
	return s, ok
}

// Paths returns the registered paths in registration order
func (r *Registry) Paths() []string {
	paths := make([]string, len(r.paths))
	copy(paths, r.paths)

	return paths
}

// Len returns the number of registered servlets
func (r *Registry) Len() int {
	return len(r.paths)
}

// DestroyAll calls Destroy on every servlet in registration order. A failing
// servlet does not stop the others from being destroyed; all failures are
// returned together. Only the first call has any effect.
func (r *Registry) DestroyAll() error {
	r.destroyOnce.Do(func() {
		r.Freeze()

		var result *multierror.Error
		for _, path := range r.paths {
			if err := destroy(path, r.servlets[path]); err != nil {
				log.WithError(err).WithFields(log.Fields{"path": path}).Error("Failed to destroy servlet")
				metrics.ServletDestroyFailures.Inc()
				result = multierror.Append(result, err)
			}
			metrics.ServletsRegistered.Dec()
		}

		r.destroyErr = result.ErrorOrNil()
	})

	return r.destroyErr
}

func destroy(path string, s servlet.Servlet) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("destroying servlet for %s: panic: %v", path, p)
		}
	}()

	if err := s.Destroy(); err != nil {
		return fmt.Errorf("destroying servlet for %s: %w", path, err)
	}

	return nil
}
