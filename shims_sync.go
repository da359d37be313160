package osl

import (
	"context"

	"github.com/reglet-dev/acpica-osl/domain/entities"
	"github.com/reglet-dev/acpica-osl/domain/errors"
)

func (r *Registry) CreateMutex(ctx context.Context) (entities.MutexHandle, entities.Status) {
	s, ok := r.Services()
	if !ok {
		return 0, entities.StatusNotConfigured
	}
	h, err := s.CreateMutex(ctx)
	if err != nil {
		return 0, errors.ToStatus(err)
	}
	return h, entities.StatusOK
}

func (r *Registry) DeleteMutex(ctx context.Context, h entities.MutexHandle) entities.Status {
	s, ok := r.Services()
	if !ok {
		return entities.StatusNotConfigured
	}
	return errors.ToStatus(s.DeleteMutex(ctx, h))
}

func (r *Registry) AcquireMutex(ctx context.Context, h entities.MutexHandle, timeout entities.Timeout) entities.Status {
	s, ok := r.Services()
	if !ok {
		return entities.StatusNotConfigured
	}
	return errors.ToStatus(s.AcquireMutex(ctx, h, timeout))
}

func (r *Registry) ReleaseMutex(ctx context.Context, h entities.MutexHandle) entities.Status {
	s, ok := r.Services()
	if !ok {
		return entities.StatusNotConfigured
	}
	return errors.ToStatus(s.ReleaseMutex(ctx, h))
}

func (r *Registry) CreateSemaphore(ctx context.Context, maxUnits, initialUnits uint32) (entities.SemaphoreHandle, entities.Status) {
	s, ok := r.Services()
	if !ok {
		return 0, entities.StatusNotConfigured
	}
	h, err := s.CreateSemaphore(ctx, maxUnits, initialUnits)
	if err != nil {
		return 0, errors.ToStatus(err)
	}
	return h, entities.StatusOK
}

func (r *Registry) DeleteSemaphore(ctx context.Context, h entities.SemaphoreHandle) entities.Status {
	s, ok := r.Services()
	if !ok {
		return entities.StatusNotConfigured
	}
	return errors.ToStatus(s.DeleteSemaphore(ctx, h))
}

func (r *Registry) WaitSemaphore(ctx context.Context, h entities.SemaphoreHandle, units uint32, timeout entities.Timeout) entities.Status {
	s, ok := r.Services()
	if !ok {
		return entities.StatusNotConfigured
	}
	return errors.ToStatus(s.WaitSemaphore(ctx, h, units, timeout))
}

func (r *Registry) SignalSemaphore(ctx context.Context, h entities.SemaphoreHandle, units uint32) entities.Status {
	s, ok := r.Services()
	if !ok {
		return entities.StatusNotConfigured
	}
	return errors.ToStatus(s.SignalSemaphore(ctx, h, units))
}

func (r *Registry) CreateLock(ctx context.Context) (entities.SpinlockHandle, entities.Status) {
	s, ok := r.Services()
	if !ok {
		return 0, entities.StatusNotConfigured
	}
	h, err := s.CreateLock(ctx)
	if err != nil {
		return 0, errors.ToStatus(err)
	}
	return h, entities.StatusOK
}

func (r *Registry) DeleteLock(ctx context.Context, h entities.SpinlockHandle) entities.Status {
	s, ok := r.Services()
	if !ok {
		return entities.StatusNotConfigured
	}
	return errors.ToStatus(s.DeleteLock(ctx, h))
}

func (r *Registry) AcquireLock(ctx context.Context, h entities.SpinlockHandle) (entities.CPUFlags, entities.Status) {
	s, ok := r.Services()
	if !ok {
		return 0, entities.StatusNotConfigured
	}
	flags, err := s.AcquireLock(ctx, h)
	if err != nil {
		return 0, errors.ToStatus(err)
	}
	return flags, entities.StatusOK
}

func (r *Registry) ReleaseLock(ctx context.Context, h entities.SpinlockHandle, flags entities.CPUFlags) entities.Status {
	s, ok := r.Services()
	if !ok {
		return entities.StatusNotConfigured
	}
	return errors.ToStatus(s.ReleaseLock(ctx, h, flags))
}

func (r *Registry) AcquireGlobalLock(ctx context.Context, facs entities.VirtualPointer) (bool, entities.Status) {
	s, ok := r.Services()
	if !ok {
		return false, entities.StatusNotConfigured
	}
	acquired, err := s.AcquireGlobalLock(ctx, facs)
	if err != nil {
		return false, errors.ToStatus(err)
	}
	return acquired, entities.StatusOK
}

func (r *Registry) ReleaseGlobalLock(ctx context.Context, facs entities.VirtualPointer) (bool, entities.Status) {
	s, ok := r.Services()
	if !ok {
		return false, entities.StatusNotConfigured
	}
	pending, err := s.ReleaseGlobalLock(ctx, facs)
	if err != nil {
		return false, errors.ToStatus(err)
	}
	return pending, entities.StatusOK
}
