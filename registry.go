package osl

import (
	"fmt"
	"sync/atomic"

	"github.com/reglet-dev/acpica-osl/domain/entities"
	"github.com/reglet-dev/acpica-osl/domain/errors"
	"github.com/reglet-dev/acpica-osl/domain/ports"
)

// ErrAlreadyBound is returned when Bind is called on a registry that already
// holds an implementation. The first binding stays active.
var ErrAlreadyBound = fmt.Errorf("osl: services already bound: %w", errors.ErrAlreadyExists)

// Default is the process-wide registry the interpreter's entry points use.
var Default = NewRegistry()

// Registry holds at most one OSServices implementation. It starts Unbound,
// moves to Bound exactly once, and is read-only afterwards, so lookups from
// any goroutine or interrupt context need no locking.
type Registry struct {
	slot atomic.Pointer[binding]
}

type binding struct {
	services ports.OSServices
}

// NewRegistry returns an unbound registry. Most hosts use Default; separate
// registries serve tests and runtimes that host several interpreters.
func NewRegistry() *Registry {
	return &Registry{}
}

// BindOption configures a binding.
type BindOption func(*bindConfig)

type bindConfig struct {
	middleware []Middleware
}

// WithMiddleware wraps the bound implementation. Middleware executes in FIFO
// order: the first one given is the outermost.
func WithMiddleware(mw ...Middleware) BindOption {
	return func(c *bindConfig) {
		c.middleware = append(c.middleware, mw...)
	}
}

// Bind installs impl. It must be called once, before any goroutine that may
// enter the interpreter is started. A second call fails with ErrAlreadyBound
// and leaves the first implementation in place; resources owned by the
// rejected implementation remain the caller's.
func (r *Registry) Bind(impl ports.OSServices, opts ...BindOption) error {
	if impl == nil {
		return errors.Wrap("bind", entities.StatusBadParameter, fmt.Errorf("nil implementation"))
	}

	cfg := bindConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	services := impl
	for i := len(cfg.middleware) - 1; i >= 0; i-- {
		services = cfg.middleware[i](services)
		if services == nil {
			return errors.Wrap("bind", entities.StatusBadParameter, fmt.Errorf("middleware %d returned nil", i))
		}
	}

	if !r.slot.CompareAndSwap(nil, &binding{services: services}) {
		return ErrAlreadyBound
	}
	return nil
}

// Bound reports whether an implementation has been installed.
func (r *Registry) Bound() bool {
	return r.slot.Load() != nil
}

// Services returns the bound implementation, including any middleware.
func (r *Registry) Services() (ports.OSServices, bool) {
	b := r.slot.Load()
	if b == nil {
		return nil, false
	}
	return b.services, true
}

// Bind installs impl into the Default registry.
func Bind(impl ports.OSServices, opts ...BindOption) error {
	return Default.Bind(impl, opts...)
}

// Bound reports whether the Default registry is bound.
func Bound() bool {
	return Default.Bound()
}
