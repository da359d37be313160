package osl

import (
	"context"

	"github.com/reglet-dev/acpica-osl/domain/entities"
	"github.com/reglet-dev/acpica-osl/domain/errors"
)

func (r *Registry) InstallInterruptHandler(ctx context.Context, level uint32, handler entities.InterruptHandler, data entities.Context) entities.Status {
	s, ok := r.Services()
	if !ok {
		return entities.StatusNotConfigured
	}
	if handler.Service == nil && handler.Address == 0 {
		return entities.StatusBadParameter
	}
	return errors.ToStatus(s.InstallInterruptHandler(ctx, level, handler, data))
}

func (r *Registry) RemoveInterruptHandler(ctx context.Context, level uint32, handler entities.InterruptHandler) entities.Status {
	s, ok := r.Services()
	if !ok {
		return entities.StatusNotConfigured
	}
	return errors.ToStatus(s.RemoveInterruptHandler(ctx, level, handler))
}

// ReadPort accepts widths up to 32 bits.
func (r *Registry) ReadPort(ctx context.Context, addr entities.IOAddress, width entities.Width) (uint32, entities.Status) {
	s, ok := r.Services()
	if !ok {
		return 0, entities.StatusNotConfigured
	}
	if !width.Valid(entities.Width32) {
		return 0, entities.StatusBadParameter
	}
	v, err := s.ReadPort(ctx, addr, width)
	if err != nil {
		return 0, errors.ToStatus(err)
	}
	return v & uint32(width.Mask()), entities.StatusOK
}

func (r *Registry) WritePort(ctx context.Context, addr entities.IOAddress, value uint32, width entities.Width) entities.Status {
	s, ok := r.Services()
	if !ok {
		return entities.StatusNotConfigured
	}
	if !width.Valid(entities.Width32) {
		return entities.StatusBadParameter
	}
	return errors.ToStatus(s.WritePort(ctx, addr, value, width))
}

func (r *Registry) ReadPCIConfiguration(ctx context.Context, id entities.PCIID, register uint32, width entities.Width) (uint64, entities.Status) {
	s, ok := r.Services()
	if !ok {
		return 0, entities.StatusNotConfigured
	}
	if !width.Valid(entities.Width64) {
		return 0, entities.StatusBadParameter
	}
	v, err := s.ReadPCIConfiguration(ctx, id, register, width)
	if err != nil {
		return 0, errors.ToStatus(err)
	}
	return v & width.Mask(), entities.StatusOK
}

func (r *Registry) WritePCIConfiguration(ctx context.Context, id entities.PCIID, register uint32, value uint64, width entities.Width) entities.Status {
	s, ok := r.Services()
	if !ok {
		return entities.StatusNotConfigured
	}
	if !width.Valid(entities.Width64) {
		return entities.StatusBadParameter
	}
	return errors.ToStatus(s.WritePCIConfiguration(ctx, id, register, value, width))
}
