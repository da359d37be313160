package host

import (
	"io"
	"log/slog"

	"github.com/tetratelabs/wazero"

	osl "github.com/reglet-dev/acpica-osl"
	oslwazero "github.com/reglet-dev/acpica-osl/infrastructure/wazero"
)

// Option defines a functional option for configuring the Executor.
type Option func(*Executor)

// WithRegistry routes interpreter calls to r instead of osl.Default.
func WithRegistry(r *osl.Registry) Option {
	return func(e *Executor) {
		e.registry = r
	}
}

// WithLogger sets the logger for runtime and ABI errors.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = l
	}
}

// WithAdapterOptions passes extra options to the host module adapter.
func WithAdapterOptions(opts ...oslwazero.AdapterOption) Option {
	return func(e *Executor) {
		e.adapterOpts = append(e.adapterOpts, opts...)
	}
}

// WithRuntimeConfig replaces the default wazero runtime configuration.
func WithRuntimeConfig(cfg wazero.RuntimeConfig) Option {
	return func(e *Executor) {
		e.runtimeConfig = cfg
	}
}

// WithGuestOutput sends the interpreter's WASI stdout and stderr to w.
func WithGuestOutput(w io.Writer) Option {
	return func(e *Executor) {
		e.guestOutput = w
	}
}
