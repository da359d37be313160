package hosted

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/reglet-dev/acpica-osl/domain/entities"
	"github.com/reglet-dev/acpica-osl/domain/errors"
)

// The RSDP lives on a 16-byte boundary in the BIOS read-only area.
const (
	rsdpLow       = 0xe0000
	rsdpHigh      = 0x100000
	rsdpAlignment = 16
	rsdpV1Length  = 20
)

var rsdpSignature = []byte("RSD PTR ")

// GetRootPointer returns cfg.RootPointer, or scans the BIOS area for a
// checksummed RSDP when none is configured.
func (s *Services) GetRootPointer(ctx context.Context) (entities.PhysicalAddress, error) {
	if s.cfg.RootPointer != 0 {
		return entities.PhysicalAddress(s.cfg.RootPointer), nil
	}

	m := s.mem
	m.mu.RLock()
	defer m.mu.RUnlock()
	high := uint64(rsdpHigh)
	if uint64(len(m.arena)) < high {
		high = uint64(len(m.arena))
	}
	for addr := uint64(rsdpLow); addr+rsdpV1Length <= high; addr += rsdpAlignment {
		candidate := m.arena[addr : addr+rsdpV1Length]
		if !bytes.HasPrefix(candidate, rsdpSignature) || !checksumValid(candidate) {
			continue
		}
		s.logger.DebugContext(ctx, "found rsdp", "address", addr)
		return entities.PhysicalAddress(addr), nil
	}
	return 0, errors.Wrap("get_root_pointer", entities.StatusNotFound, fmt.Errorf("no rsdp in %#x-%#x", rsdpLow, high))
}

func checksumValid(b []byte) bool {
	var sum uint8
	for _, v := range b {
		sum += v
	}
	return sum == 0
}

func (s *Services) PredefinedOverride(_ context.Context, name entities.PredefinedName) (string, bool, error) {
	v, ok := s.cfg.Overrides.Predefined[name.Name]
	return v, ok, nil
}

// TableOverride loads the replacement file configured for the table's
// signature. The file must hold a complete table with the same signature.
func (s *Services) TableOverride(ctx context.Context, existing entities.TableHeader) ([]byte, error) {
	path, ok := s.cfg.TableFile(existing.SignatureString())
	if !ok {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap("table_override", entities.StatusNotFound, err)
	}

	var hdr entities.TableHeader
	if err := hdr.UnmarshalBinary(data); err != nil {
		return nil, errors.Wrap("table_override", entities.StatusBadParameter, fmt.Errorf("%s: %w", path, err))
	}
	if hdr.Signature != existing.Signature {
		return nil, errors.Wrap("table_override", entities.StatusBadParameter,
			fmt.Errorf("%s: signature %q, want %q", path, hdr.SignatureString(), existing.SignatureString()))
	}
	if int(hdr.Length) > len(data) {
		return nil, errors.Wrap("table_override", entities.StatusBadParameter,
			fmt.Errorf("%s: header length %d exceeds file size %d", path, hdr.Length, len(data)))
	}
	s.logger.InfoContext(ctx, "table override", "signature", hdr.SignatureString(), "length", hdr.Length, "file", path)
	return data[:hdr.Length], nil
}

// PhysicalTableOverride never overrides: replacement tables come from files.
func (s *Services) PhysicalTableOverride(context.Context, entities.TableHeader) (entities.PhysicalAddress, uint32, error) {
	return 0, 0, nil
}
