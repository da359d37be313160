package wazero

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	osl "github.com/reglet-dev/acpica-osl"
)

// Guest exports the adapter depends on.
const (
	AllocateExport   = "allocate"
	DeallocateExport = "deallocate"
	CallbackExport   = "acpi_osl_callback"
)

// AdapterConfig holds configuration for the wazero adapter.
type AdapterConfig struct {
	// Registry receives every call. Default is osl.Default.
	Registry *osl.Registry

	// Logger reports guest ABI misuse. Default is slog.Default().
	Logger *slog.Logger

	// Outputs maps AcpiOsRedirectOutput destinations to writers. Unknown
	// destinations are ignored with a warning.
	Outputs map[uint32]io.Writer

	// ModuleName is the host module name (default: "env").
	ModuleName string

	// MaxStringSize limits strings read from guest memory. Default is 64KiB.
	MaxStringSize uint32
}

// AdapterOption configures the adapter.
type AdapterOption func(*AdapterConfig)

// WithModuleName sets the host module name (default: "env").
func WithModuleName(name string) AdapterOption {
	return func(c *AdapterConfig) {
		c.ModuleName = name
	}
}

// WithRegistry routes exports to r instead of osl.Default.
func WithRegistry(r *osl.Registry) AdapterOption {
	return func(c *AdapterConfig) {
		c.Registry = r
	}
}

// WithLogger sets the logger for guest ABI errors.
func WithLogger(l *slog.Logger) AdapterOption {
	return func(c *AdapterConfig) {
		c.Logger = l
	}
}

// WithOutput makes dest a valid AcpiOsRedirectOutput destination.
func WithOutput(dest uint32, w io.Writer) AdapterOption {
	return func(c *AdapterConfig) {
		if c.Outputs == nil {
			c.Outputs = make(map[uint32]io.Writer)
		}
		c.Outputs[dest] = w
	}
}

// WithMaxStringSize sets the longest string read from guest memory.
func WithMaxStringSize(size uint32) AdapterOption {
	return func(c *AdapterConfig) {
		c.MaxStringSize = size
	}
}

// defaultAdapterConfig returns the default adapter configuration.
func defaultAdapterConfig() AdapterConfig {
	return AdapterConfig{
		Registry:      osl.Default,
		Logger:        slog.Default(),
		ModuleName:    "env",
		MaxStringSize: 64 * 1024,
	}
}

// Dispatcher owns the per-guest state behind the host module: bounce
// buffers for mapped and allocated memory, and queued callbacks.
type Dispatcher struct {
	cfg AdapterConfig

	mu     sync.Mutex
	guests map[string]*guest
}

// RegisterWithRuntime instantiates the OS services host module in runtime.
// Guests importing from the configured module name (default: "env") must be
// instantiated afterwards.
//
// Example:
//
//	dispatcher, err := wazero.RegisterWithRuntime(ctx, runtime,
//	    wazero.WithRegistry(registry),
//	    wazero.WithOutput(1, os.Stdout),
//	)
func RegisterWithRuntime(ctx context.Context, runtime wazero.Runtime, opts ...AdapterOption) (*Dispatcher, error) {
	cfg := defaultAdapterConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("wazero: nil registry")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	d := &Dispatcher{
		cfg:    cfg,
		guests: make(map[string]*guest),
	}

	builder := runtime.NewHostModuleBuilder(cfg.ModuleName)
	for _, e := range exports {
		fn := e.fn // capture for closure
		builder.NewFunctionBuilder().
			WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
				fn(d, ctx, mod, stack)
			}), e.params, e.results).
			WithName(e.name).
			Export(e.name)
	}

	if _, err := builder.Instantiate(ctx); err != nil {
		return nil, fmt.Errorf("wazero: instantiating %q: %w", cfg.ModuleName, err)
	}
	return d, nil
}

// Registry returns the registry exports are routed to.
func (d *Dispatcher) Registry() *osl.Registry {
	return d.cfg.Registry
}

// ModuleName returns the name guests import the host functions from.
func (d *Dispatcher) ModuleName() string {
	return d.cfg.ModuleName
}

// guest returns the state for mod, creating it on first use.
func (d *Dispatcher) guest(ctx context.Context, mod api.Module) *guest {
	name := GetGuestName(ctx, mod)
	d.mu.Lock()
	defer d.mu.Unlock()
	g, ok := d.guests[name]
	if !ok {
		g = newGuest(name)
		d.guests[name] = g
	}
	return g
}

// Release drops the state kept for mod, unmapping and freeing whatever the
// guest left outstanding. Queued callbacks are discarded. Call it before
// closing the guest module.
func (d *Dispatcher) Release(ctx context.Context, mod api.Module) {
	name := GetGuestName(ctx, mod)
	d.mu.Lock()
	g, ok := d.guests[name]
	delete(d.guests, name)
	d.mu.Unlock()
	if !ok {
		return
	}

	reg := d.cfg.Registry
	for _, b := range g.drop() {
		if b.mapped {
			reg.Unmap(ctx, b.host, b.hostLength)
		} else {
			reg.Free(ctx, b.host)
		}
	}
}

// Outstanding returns the number of guest buffers still mapped or allocated.
func (d *Dispatcher) Outstanding(ctx context.Context, mod api.Module) int {
	return d.guest(ctx, mod).outstanding()
}

// packPtrLen packs a pointer and length into a single i64.
// Upper 32 bits: pointer, lower 32 bits: length.
func packPtrLen(ptr, length uint32) uint64 {
	return (uint64(ptr) << 32) | uint64(length)
}

// unpackPtrLen unpacks a pointer and length from a packed i64.
func unpackPtrLen(packed uint64) (ptr, length uint32) {
	ptr = uint32(packed >> 32)           //nolint:gosec // G115: Packed format stores 32-bit values
	length = uint32(packed & 0xFFFFFFFF) //nolint:gosec // G115: Packed format stores 32-bit values
	return ptr, length
}
