package osl

import (
	"context"

	"github.com/reglet-dev/acpica-osl/domain/entities"
)

type contextKey int

const (
	interruptLevelKey contextKey = iota
	threadIDKey
	refusalKey
)

// WithInterruptContext marks ctx as running inside the service routine for
// the given interrupt level. Implementations mark the context they pass to
// InterruptHandler.Service; InterruptGuard checks the mark.
func WithInterruptContext(ctx context.Context, level uint32) context.Context {
	return context.WithValue(ctx, interruptLevelKey, level)
}

// InterruptLevel returns the interrupt level ctx was marked with.
func InterruptLevel(ctx context.Context) (uint32, bool) {
	level, ok := ctx.Value(interruptLevelKey).(uint32)
	return level, ok
}

// InInterruptContext reports whether ctx runs in an interrupt service routine.
func InInterruptContext(ctx context.Context) bool {
	_, ok := InterruptLevel(ctx)
	return ok
}

// WithThreadID attaches the identity of the execution context to ctx.
// Goroutines have no identity of their own, so hosts carry it explicitly.
func WithThreadID(ctx context.Context, id entities.ThreadID) context.Context {
	return context.WithValue(ctx, threadIDKey, id)
}

// ThreadIDFrom returns the execution context identity attached to ctx.
func ThreadIDFrom(ctx context.Context) (entities.ThreadID, bool) {
	id, ok := ctx.Value(threadIDKey).(entities.ThreadID)
	return id, ok && id != 0
}

// refusal carries an error out of operations whose signature has none.
type refusal struct {
	err error
}

func withRefusal(ctx context.Context) (context.Context, *refusal) {
	r := &refusal{}
	return context.WithValue(ctx, refusalKey, r), r
}

func refuse(ctx context.Context, err error) {
	if r, ok := ctx.Value(refusalKey).(*refusal); ok {
		r.err = err
	}
}
