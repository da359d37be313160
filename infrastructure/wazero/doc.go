// Package wazero exposes the OS services layer to an interpreter compiled to
// WebAssembly and run under the wazero runtime.
//
// RegisterWithRuntime builds a host module (default name "env") exporting
// the interpreter's external AcpiOs* symbols with wasm32 signatures. Every
// export forwards to the matching osl.Registry shim, so an unbound registry
// answers AE_NOT_CONFIGURED exactly as a native caller would see it.
//
// # Guest requirements
//
// The guest module must export:
//
//   - allocate(size i32) i32 and deallocate(ptr i32, size i32), used to
//     mirror mapped physical memory and allocations into linear memory
//   - acpi_osl_callback(func i32, context i32) i32, a trampoline that calls
//     the interpreter function at table index func
//
// # Memory
//
// AcpiOsMapMemory copies the physical range into a guest buffer. Bytes the
// guest changed are written back through AcpiOsWriteMemory semantics when
// the range is unmapped. Physical memory changed by the host while a range
// is mapped is not reflected in the guest copy.
//
// # Callbacks
//
// Interrupt handlers and deferred procedure calls are never run on host
// goroutines. They are queued and executed on the guest's own goroutine when
// it reaches a yield point (AcpiOsWaitEventsComplete, AcpiOsSleep) or when
// the embedder calls Dispatcher.Drain:
//
//	dispatcher, err := wazero.RegisterWithRuntime(ctx, runtime,
//	    wazero.WithRegistry(registry),
//	)
//	...
//	_, err = dispatcher.Drain(ctx, module)
package wazero
