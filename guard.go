package osl

import (
	"context"
	"fmt"

	"github.com/reglet-dev/acpica-osl/domain/entities"
	"github.com/reglet-dev/acpica-osl/domain/errors"
	"github.com/reglet-dev/acpica-osl/domain/ports"
)

// ContextViolation describes a blocking operation invoked from an interrupt
// service routine.
type ContextViolation struct {
	Op    string
	Level uint32
}

func (v *ContextViolation) Error() string {
	return fmt.Sprintf("osl: blocking operation %s called from interrupt context (level %d)", v.Op, v.Level)
}

// StatusCode implements errors.StatusCoder.
func (v *ContextViolation) StatusCode() entities.Status {
	return entities.StatusAccess
}

// ViolationHandler is told about every blocking call made from interrupt context.
type ViolationHandler func(ctx context.Context, v *ContextViolation)

// GuardOption configures InterruptGuard.
type GuardOption func(*guardConfig)

type guardConfig struct {
	onViolation ViolationHandler
}

// WithViolationHandler replaces the default handler, which panics.
func WithViolationHandler(h ViolationHandler) GuardOption {
	return func(c *guardConfig) {
		c.onViolation = h
	}
}

// InterruptGuard returns a debug middleware that catches blocking operations
// called from a context marked with WithInterruptContext: AcquireMutex and
// WaitSemaphore with a non-immediate timeout, Sleep, WaitEventsComplete and
// Allocate. Each violation is reported to the handler and the operation is
// refused with ErrAccessDenied. A refused Sleep returns immediately and
// Registry.Sleep reports the refusal as StatusAccess.
func InterruptGuard(opts ...GuardOption) Middleware {
	cfg := guardConfig{
		onViolation: func(_ context.Context, v *ContextViolation) {
			panic(v)
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next ports.OSServices) ports.OSServices {
		return &guardedServices{OSServices: next, cfg: cfg}
	}
}

type guardedServices struct {
	ports.OSServices
	cfg guardConfig
}

// check returns the violation for op when ctx is an interrupt context.
func (g *guardedServices) check(ctx context.Context, op string) error {
	level, ok := InterruptLevel(ctx)
	if !ok {
		return nil
	}
	v := &ContextViolation{Op: op, Level: level}
	g.cfg.onViolation(ctx, v)
	return errors.Wrap(op, entities.StatusAccess, v)
}

func (g *guardedServices) AcquireMutex(ctx context.Context, h entities.MutexHandle, timeout entities.Timeout) error {
	if !timeout.IsImmediate() {
		if err := g.check(ctx, "acquire_mutex"); err != nil {
			return err
		}
	}
	return g.OSServices.AcquireMutex(ctx, h, timeout)
}

func (g *guardedServices) WaitSemaphore(ctx context.Context, h entities.SemaphoreHandle, units uint32, timeout entities.Timeout) error {
	if !timeout.IsImmediate() {
		if err := g.check(ctx, "wait_semaphore"); err != nil {
			return err
		}
	}
	return g.OSServices.WaitSemaphore(ctx, h, units, timeout)
}

func (g *guardedServices) Sleep(ctx context.Context, milliseconds uint64) {
	if err := g.check(ctx, "sleep"); err != nil {
		refuse(ctx, err)
		return
	}
	g.OSServices.Sleep(ctx, milliseconds)
}

func (g *guardedServices) WaitEventsComplete(ctx context.Context) error {
	if err := g.check(ctx, "wait_events_complete"); err != nil {
		return err
	}
	return g.OSServices.WaitEventsComplete(ctx)
}

func (g *guardedServices) Allocate(ctx context.Context, size entities.Size) (entities.VirtualPointer, error) {
	if err := g.check(ctx, "allocate"); err != nil {
		return entities.NullPointer, err
	}
	return g.OSServices.Allocate(ctx, size)
}
