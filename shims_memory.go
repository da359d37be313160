package osl

import (
	"context"

	"github.com/reglet-dev/acpica-osl/domain/entities"
	"github.com/reglet-dev/acpica-osl/domain/errors"
)

// Map returns StatusNoMemory when the implementation hands back a null
// pointer without an error.
func (r *Registry) Map(ctx context.Context, addr entities.PhysicalAddress, length entities.Size) (entities.VirtualPointer, entities.Status) {
	s, ok := r.Services()
	if !ok {
		return entities.NullPointer, entities.StatusNotConfigured
	}
	return pointerResult(s.Map(ctx, addr, length))
}

func (r *Registry) Unmap(ctx context.Context, ptr entities.VirtualPointer, length entities.Size) entities.Status {
	s, ok := r.Services()
	if !ok {
		return entities.StatusNotConfigured
	}
	return errors.ToStatus(s.Unmap(ctx, ptr, length))
}

func (r *Registry) GetPhysicalAddress(ctx context.Context, ptr entities.VirtualPointer) (entities.PhysicalAddress, entities.Status) {
	s, ok := r.Services()
	if !ok {
		return 0, entities.StatusNotConfigured
	}
	addr, err := s.GetPhysicalAddress(ctx, ptr)
	if err != nil {
		return 0, errors.ToStatus(err)
	}
	return addr, entities.StatusOK
}

// Allocate follows the same null-pointer rule as Map.
func (r *Registry) Allocate(ctx context.Context, size entities.Size) (entities.VirtualPointer, entities.Status) {
	s, ok := r.Services()
	if !ok {
		return entities.NullPointer, entities.StatusNotConfigured
	}
	return pointerResult(s.Allocate(ctx, size))
}

func (r *Registry) Free(ctx context.Context, ptr entities.VirtualPointer) entities.Status {
	s, ok := r.Services()
	if !ok {
		return entities.StatusNotConfigured
	}
	return errors.ToStatus(s.Free(ctx, ptr))
}

func (r *Registry) Readable(ctx context.Context, ptr entities.VirtualPointer, length entities.Size) (bool, entities.Status) {
	s, ok := r.Services()
	if !ok {
		return false, entities.StatusNotConfigured
	}
	return s.Readable(ctx, ptr, length), entities.StatusOK
}

func (r *Registry) Writable(ctx context.Context, ptr entities.VirtualPointer, length entities.Size) (bool, entities.Status) {
	s, ok := r.Services()
	if !ok {
		return false, entities.StatusNotConfigured
	}
	return s.Writable(ctx, ptr, length), entities.StatusOK
}

func (r *Registry) ReadMemory(ctx context.Context, addr entities.PhysicalAddress, width entities.Width) (uint64, entities.Status) {
	s, ok := r.Services()
	if !ok {
		return 0, entities.StatusNotConfigured
	}
	if !width.Valid(entities.Width64) {
		return 0, entities.StatusBadParameter
	}
	v, err := s.ReadMemory(ctx, addr, width)
	if err != nil {
		return 0, errors.ToStatus(err)
	}
	return v & width.Mask(), entities.StatusOK
}

func (r *Registry) WriteMemory(ctx context.Context, addr entities.PhysicalAddress, value uint64, width entities.Width) entities.Status {
	s, ok := r.Services()
	if !ok {
		return entities.StatusNotConfigured
	}
	if !width.Valid(entities.Width64) {
		return entities.StatusBadParameter
	}
	return errors.ToStatus(s.WriteMemory(ctx, addr, value, width))
}

func pointerResult(ptr entities.VirtualPointer, err error) (entities.VirtualPointer, entities.Status) {
	if err != nil {
		return entities.NullPointer, errors.ToStatus(err)
	}
	if ptr == entities.NullPointer {
		return entities.NullPointer, entities.StatusNoMemory
	}
	return ptr, entities.StatusOK
}
