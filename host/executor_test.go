package host

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	osl "github.com/reglet-dev/acpica-osl"
	"github.com/reglet-dev/acpica-osl/domain/entities"
	"github.com/reglet-dev/acpica-osl/infrastructure/config"
	"github.com/reglet-dev/acpica-osl/infrastructure/hosted"
)

func TestNewExecutor(t *testing.T) {
	ctx := context.Background()
	e, err := NewExecutor(ctx)
	assert.NoError(t, err)
	assert.NotNil(t, e)
	if e != nil {
		assert.Same(t, osl.Default, e.Registry())
		err := e.Close(ctx)
		assert.NoError(t, err)
	}
}

func TestNewExecutor_NilRegistry(t *testing.T) {
	_, err := NewExecutor(context.Background(), WithRegistry(nil))
	require.Error(t, err)
}

func TestLoadInterpreter_Rejects(t *testing.T) {
	ctx := context.Background()
	e, err := NewExecutor(ctx, WithRegistry(osl.NewRegistry()), WithLogger(quietLogger()))
	require.NoError(t, err)
	defer e.Close(ctx)

	_, err = e.LoadInterpreter(ctx, "garbage", []byte("not wasm"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to compile module")

	// An empty module compiles but has no guest ABI.
	_, err = e.LoadInterpreter(ctx, "empty", wasmModule())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing export "allocate"`)
	assert.Contains(t, err.Error(), `missing export "acpi_osl_callback"`)
}

func TestInterpreter_CallStatus(t *testing.T) {
	ctx := context.Background()
	reg := osl.NewRegistry()
	e, err := NewExecutor(ctx, WithRegistry(reg), WithLogger(quietLogger()))
	require.NoError(t, err)
	defer e.Close(ctx)

	interp, err := e.LoadInterpreter(ctx, "interp", interpreterModule())
	require.NoError(t, err)
	assert.Equal(t, "interp", interp.Name())

	// Unbound registry.
	status, err := interp.CallStatus(ctx, "run")
	require.NoError(t, err)
	assert.Equal(t, entities.StatusNotConfigured, status)

	cfg := config.Default()
	cfg.Console.Output = "discard"
	services, err := hosted.New(cfg, hosted.WithLogger(quietLogger()))
	require.NoError(t, err)
	require.NoError(t, reg.Bind(services))
	defer reg.Terminate(ctx)

	status, err = interp.CallStatus(ctx, "run")
	require.NoError(t, err)
	assert.Equal(t, entities.StatusOK, status)
	assert.Zero(t, interp.Pending(ctx))

	_, err = interp.Call(ctx, "missing")
	require.Error(t, err)

	results, err := interp.CallWithBytes(ctx, "echo", []byte("ping"))
	require.NoError(t, err)
	require.Len(t, results, 1)
	data, err := interp.ReadPacked(results[0])
	require.NoError(t, err)
	assert.Equal(t, []byte("ping"), data)

	require.NoError(t, interp.Close(ctx))
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// section encodes one module section. Contents stay under 128 bytes so the
// size fits a single LEB128 byte.
func section(id byte, content ...byte) []byte {
	return append([]byte{id, byte(len(content))}, content...)
}

func wasmName(s string) []byte {
	return append([]byte{byte(len(s))}, s...)
}

func wasmModule(sections ...[]byte) []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	for _, s := range sections {
		out = append(out, s...)
	}
	return out
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// interpreterModule builds the smallest module satisfying the guest ABI:
//
//	(import "env" "AcpiOsInitialize" (func (result i32)))
//	(memory (export "memory") 1)
//	(func (export "allocate") (param i32) (result i32) i32.const 1024)
//	(func (export "deallocate") (param i32 i32))
//	(func (export "acpi_osl_callback") (param i32 i32) (result i32) i32.const 0)
//	(func (export "run") (result i32) call $AcpiOsInitialize)
//	(func (export "echo") (param i32 i32) (result i64)
//	  local.get 0 i64.extend_i32_u i64.const 32 i64.shl
//	  local.get 1 i64.extend_i32_u i64.or)
func interpreterModule() []byte {
	const (
		i32 = 0x7f
		i64 = 0x7e
	)
	types := section(0x01, concat(
		[]byte{0x05},
		[]byte{0x60, 0x01, i32, 0x01, i32},      // 0: (i32) -> i32
		[]byte{0x60, 0x02, i32, i32, 0x00},      // 1: (i32, i32) -> ()
		[]byte{0x60, 0x02, i32, i32, 0x01, i32}, // 2: (i32, i32) -> i32
		[]byte{0x60, 0x00, 0x01, i32},           // 3: () -> i32
		[]byte{0x60, 0x02, i32, i32, 0x01, i64}, // 4: (i32, i32) -> i64
	)...)
	imports := section(0x02, concat(
		[]byte{0x01},
		wasmName("env"), wasmName("AcpiOsInitialize"), []byte{0x00, 0x03},
	)...)
	funcs := section(0x03, 0x05, 0x00, 0x01, 0x02, 0x03, 0x04)
	memory := section(0x05, 0x01, 0x00, 0x01)
	exports := section(0x07, concat(
		[]byte{0x06},
		wasmName("memory"), []byte{0x02, 0x00},
		wasmName("allocate"), []byte{0x00, 0x01},
		wasmName("deallocate"), []byte{0x00, 0x02},
		wasmName("acpi_osl_callback"), []byte{0x00, 0x03},
		wasmName("run"), []byte{0x00, 0x04},
		wasmName("echo"), []byte{0x00, 0x05},
	)...)
	body := func(code ...byte) []byte {
		return append([]byte{byte(len(code) + 1), 0x00}, code...)
	}
	code := section(0x0a, concat(
		[]byte{0x05},
		body(0x41, 0x80, 0x08, 0x0b), // i32.const 1024
		body(0x0b),
		body(0x41, 0x00, 0x0b),
		body(0x10, 0x00, 0x0b), // call 0
		body(
			0x20, 0x00, 0xad, // local.get 0; i64.extend_i32_u
			0x42, 0x20, 0x86, // i64.const 32; i64.shl
			0x20, 0x01, 0xad, // local.get 1; i64.extend_i32_u
			0x84, // i64.or
			0x0b,
		),
	)...)
	return wasmModule(types, imports, funcs, memory, exports, code)
}
