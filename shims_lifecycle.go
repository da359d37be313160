package osl

import (
	"context"

	"github.com/reglet-dev/acpica-osl/domain/entities"
	"github.com/reglet-dev/acpica-osl/domain/errors"
)

// Every shim resolves the bound implementation once per call and never
// retries or substitutes a value. With nothing bound it returns
// StatusNotConfigured and zero values.

func (r *Registry) Initialize(ctx context.Context) entities.Status {
	s, ok := r.Services()
	if !ok {
		return entities.StatusNotConfigured
	}
	return errors.ToStatus(s.Initialize(ctx))
}

func (r *Registry) Terminate(ctx context.Context) entities.Status {
	s, ok := r.Services()
	if !ok {
		return entities.StatusNotConfigured
	}
	return errors.ToStatus(s.Terminate(ctx))
}

func (r *Registry) GetRootPointer(ctx context.Context) (entities.PhysicalAddress, entities.Status) {
	s, ok := r.Services()
	if !ok {
		return 0, entities.StatusNotConfigured
	}
	addr, err := s.GetRootPointer(ctx)
	if err != nil {
		return 0, errors.ToStatus(err)
	}
	return addr, entities.StatusOK
}

// PredefinedOverride returns the replacement value and whether one applies.
func (r *Registry) PredefinedOverride(ctx context.Context, name entities.PredefinedName) (string, bool, entities.Status) {
	s, ok := r.Services()
	if !ok {
		return "", false, entities.StatusNotConfigured
	}
	value, override, err := s.PredefinedOverride(ctx, name)
	if err != nil {
		return "", false, errors.ToStatus(err)
	}
	return value, override, entities.StatusOK
}

// TableOverride returns nil when the firmware table is kept.
func (r *Registry) TableOverride(ctx context.Context, existing entities.TableHeader) ([]byte, entities.Status) {
	s, ok := r.Services()
	if !ok {
		return nil, entities.StatusNotConfigured
	}
	table, err := s.TableOverride(ctx, existing)
	if err != nil {
		return nil, errors.ToStatus(err)
	}
	return table, entities.StatusOK
}

func (r *Registry) PhysicalTableOverride(ctx context.Context, existing entities.TableHeader) (entities.PhysicalAddress, uint32, entities.Status) {
	s, ok := r.Services()
	if !ok {
		return 0, 0, entities.StatusNotConfigured
	}
	addr, length, err := s.PhysicalTableOverride(ctx, existing)
	if err != nil {
		return 0, 0, errors.ToStatus(err)
	}
	return addr, length, entities.StatusOK
}
