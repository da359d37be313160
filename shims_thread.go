package osl

import (
	"context"

	"github.com/reglet-dev/acpica-osl/domain/entities"
	"github.com/reglet-dev/acpica-osl/domain/errors"
)

func (r *Registry) GetThreadID(ctx context.Context) (entities.ThreadID, entities.Status) {
	s, ok := r.Services()
	if !ok {
		return 0, entities.StatusNotConfigured
	}
	return s.GetThreadID(ctx), entities.StatusOK
}

// Execute rejects a task with neither a Go body nor a callback address.
func (r *Registry) Execute(ctx context.Context, task entities.DeferredTask) entities.Status {
	s, ok := r.Services()
	if !ok {
		return entities.StatusNotConfigured
	}
	if task.Run == nil && task.Address == 0 {
		return entities.StatusBadParameter
	}
	return errors.ToStatus(s.Execute(ctx, task))
}

func (r *Registry) WaitEventsComplete(ctx context.Context) entities.Status {
	s, ok := r.Services()
	if !ok {
		return entities.StatusNotConfigured
	}
	return errors.ToStatus(s.WaitEventsComplete(ctx))
}

func (r *Registry) Sleep(ctx context.Context, milliseconds uint64) entities.Status {
	s, ok := r.Services()
	if !ok {
		return entities.StatusNotConfigured
	}
	ctx, refused := withRefusal(ctx)
	s.Sleep(ctx, milliseconds)
	return errors.ToStatus(refused.err)
}

func (r *Registry) Stall(ctx context.Context, microseconds uint32) entities.Status {
	s, ok := r.Services()
	if !ok {
		return entities.StatusNotConfigured
	}
	s.Stall(ctx, microseconds)
	return entities.StatusOK
}

func (r *Registry) GetTimer(ctx context.Context) (uint64, entities.Status) {
	s, ok := r.Services()
	if !ok {
		return 0, entities.StatusNotConfigured
	}
	return s.GetTimer(ctx), entities.StatusOK
}
