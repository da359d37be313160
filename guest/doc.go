// Package guest is the interpreter side of the WebAssembly OS services ABI.
//
// An interpreter built with GOOS=wasip1 imports this package to get the
// allocate, deallocate and acpi_osl_callback exports the host requires,
// and typed wrappers over the AcpiOs* host functions.
//
// Handlers and deferred procedures cross the boundary as table indices.
// Register a function to get its index, pass the index to Execute or
// InstallInterruptHandler, and the host calls it back through
// acpi_osl_callback at its next yield point:
//
//	id := guest.RegisterTask(func(ctx uint32) { notify(ctx) })
//	defer guest.Unregister(id)
//	status := guest.Execute(entities.ExecuteNotifyHandler, id, 7)
//	guest.WaitEventsComplete()
package guest
