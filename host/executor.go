package host

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	osl "github.com/reglet-dev/acpica-osl"
	"github.com/reglet-dev/acpica-osl/domain/entities"
	oslwazero "github.com/reglet-dev/acpica-osl/infrastructure/wazero"
)

// Executor manages the runtime interpreter modules execute in.
type Executor struct {
	runtime       wazero.Runtime
	runtimeConfig wazero.RuntimeConfig
	dispatcher    *oslwazero.Dispatcher

	registry    *osl.Registry
	logger      *slog.Logger
	adapterOpts []oslwazero.AdapterOption
	guestOutput io.Writer
}

// NewExecutor creates a new executor with the given options.
func NewExecutor(ctx context.Context, opts ...Option) (*Executor, error) {
	e := &Executor{
		registry: osl.Default,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		return nil, fmt.Errorf("nil registry")
	}

	if e.runtimeConfig == nil {
		e.runtimeConfig = wazero.NewRuntimeConfig()
	}
	rt := wazero.NewRuntimeWithConfig(ctx, e.runtimeConfig)
	wasi_snapshot_preview1.MustInstantiate(ctx, rt)
	e.runtime = rt

	adapterOpts := append([]oslwazero.AdapterOption{
		oslwazero.WithRegistry(e.registry),
		oslwazero.WithLogger(e.logger),
	}, e.adapterOpts...)
	d, err := oslwazero.RegisterWithRuntime(ctx, rt, adapterOpts...)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("failed to register host functions: %w", err)
	}
	e.dispatcher = d

	return e, nil
}

// Close releases resources held by the executor, including every
// interpreter it loaded.
func (e *Executor) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// Registry returns the registry interpreter calls are routed to.
func (e *Executor) Registry() *osl.Registry {
	return e.registry
}

// Interpreter is an instantiated interpreter module.
type Interpreter struct {
	exec   *Executor
	module api.Module
}

// LoadInterpreter instantiates an interpreter module under name. The module
// is treated as a reactor: _initialize runs if exported, _start never does.
func (e *Executor) LoadInterpreter(ctx context.Context, name string, wasmBytes []byte) (*Interpreter, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to compile module: %w", err)
	}
	if err := checkInterpreter(compiled, e.dispatcher.ModuleName()); err != nil {
		_ = compiled.Close(ctx)
		return nil, err
	}

	cfg := wazero.NewModuleConfig().
		WithName(name).
		WithStartFunctions("_initialize")
	if e.guestOutput != nil {
		cfg = cfg.WithStdout(e.guestOutput).WithStderr(e.guestOutput)
	}

	mod, err := e.runtime.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate module: %w", err)
	}
	return &Interpreter{exec: e, module: mod}, nil
}

// Name returns the module name the interpreter was loaded under.
func (i *Interpreter) Name() string {
	return i.module.Name()
}

// Call invokes an export of the interpreter and then runs the callbacks it
// left queued.
func (i *Interpreter) Call(ctx context.Context, export string, params ...uint64) ([]uint64, error) {
	f := i.module.ExportedFunction(export)
	if f == nil {
		return nil, fmt.Errorf("export %q not found", export)
	}
	results, err := f.Call(ctx, params...)
	if err != nil {
		return nil, err
	}
	if _, err := i.Drain(ctx); err != nil {
		return results, err
	}
	return results, nil
}

// CallStatus invokes an export returning ACPI_STATUS.
func (i *Interpreter) CallStatus(ctx context.Context, export string, params ...uint64) (entities.Status, error) {
	results, err := i.Call(ctx, export, params...)
	if err != nil {
		return entities.StatusError, err
	}
	if len(results) == 0 {
		return entities.StatusOK, nil
	}
	return entities.Status(api.DecodeU32(results[0])), nil
}

// Drain runs the callbacks queued for the interpreter.
func (i *Interpreter) Drain(ctx context.Context) (int, error) {
	return i.exec.dispatcher.Drain(ctx, i.module)
}

// Pending returns the number of callbacks queued for the interpreter.
func (i *Interpreter) Pending(ctx context.Context) int {
	return i.exec.dispatcher.Pending(ctx, i.module)
}

// Close releases the host resources the interpreter left outstanding and
// closes the module.
func (i *Interpreter) Close(ctx context.Context) error {
	i.exec.dispatcher.Release(ctx, i.module)
	return i.module.Close(ctx)
}
