package osl

import (
	"context"
	"io"

	"github.com/reglet-dev/acpica-osl/domain/entities"
	"github.com/reglet-dev/acpica-osl/domain/errors"
)

func (r *Registry) Print(ctx context.Context, text string) entities.Status {
	s, ok := r.Services()
	if !ok {
		return entities.StatusNotConfigured
	}
	s.Print(ctx, text)
	return entities.StatusOK
}

func (r *Registry) RedirectOutput(ctx context.Context, w io.Writer) entities.Status {
	s, ok := r.Services()
	if !ok {
		return entities.StatusNotConfigured
	}
	return errors.ToStatus(s.RedirectOutput(ctx, w))
}

func (r *Registry) Signal(ctx context.Context, function entities.SignalFunction, info entities.SignalInfo) entities.Status {
	s, ok := r.Services()
	if !ok {
		return entities.StatusNotConfigured
	}
	return errors.ToStatus(s.Signal(ctx, function, info))
}

func (r *Registry) EnterSleep(ctx context.Context, state entities.SleepState, regA, regB uint32) entities.Status {
	s, ok := r.Services()
	if !ok {
		return entities.StatusNotConfigured
	}
	return errors.ToStatus(s.EnterSleep(ctx, state, regA, regB))
}

func (r *Registry) InitializeDebugger(ctx context.Context) entities.Status {
	s, ok := r.Services()
	if !ok {
		return entities.StatusNotConfigured
	}
	return errors.ToStatus(s.InitializeDebugger(ctx))
}

func (r *Registry) TerminateDebugger(ctx context.Context) entities.Status {
	s, ok := r.Services()
	if !ok {
		return entities.StatusNotConfigured
	}
	return errors.ToStatus(s.TerminateDebugger(ctx))
}

func (r *Registry) WaitCommandReady(ctx context.Context) entities.Status {
	s, ok := r.Services()
	if !ok {
		return entities.StatusNotConfigured
	}
	return errors.ToStatus(s.WaitCommandReady(ctx))
}

func (r *Registry) NotifyCommandComplete(ctx context.Context) entities.Status {
	s, ok := r.Services()
	if !ok {
		return entities.StatusNotConfigured
	}
	return errors.ToStatus(s.NotifyCommandComplete(ctx))
}
