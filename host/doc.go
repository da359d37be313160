// Package host runs an ACPI interpreter compiled to WebAssembly against the
// OS services layer.
//
// It owns the wazero runtime, instantiates WASI and the AcpiOs* host module,
// and loads interpreter modules. Each Interpreter drains the callbacks its
// guest has pending after every call, so interrupt handlers and deferred
// procedure calls run even when the interpreter never reaches a yield point.
//
// Loader turns machine description templates into validated configuration
// for the hosted implementation.
package host
