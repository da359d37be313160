package osl

import "github.com/reglet-dev/acpica-osl/domain/ports"

// Middleware wraps an OSServices implementation to add cross-cutting
// behavior. A middleware typically embeds the wrapped implementation and
// overrides only the operations it cares about.
//
// Example usage:
//
//	tracing := func(next ports.OSServices) ports.OSServices {
//	    return &tracingServices{OSServices: next}
//	}
type Middleware func(next ports.OSServices) ports.OSServices
