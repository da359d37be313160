// Package osl is the OS services layer between the ACPI interpreter and the
// host kernel.
//
// A host binds exactly one implementation of ports.OSServices into a
// Registry during bring-up, before any execution context that may enter the
// interpreter exists. The interpreter then reaches the host through the
// Registry's dispatch methods, which translate every outcome into an
// interpreter status code. Calls made before binding fail with
// StatusNotConfigured.
//
// Example:
//
//	services, err := hosted.New(cfg)
//	if err != nil {
//	    return err
//	}
//	if err := osl.Bind(services, osl.WithMiddleware(osl.InterruptGuard())); err != nil {
//	    return err
//	}
//	if status := osl.Default.Initialize(ctx); !status.IsOK() {
//	    return errors.FromStatus(status)
//	}
package osl
