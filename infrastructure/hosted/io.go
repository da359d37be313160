package hosted

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/reglet-dev/acpica-osl/domain/entities"
	"github.com/reglet-dev/acpica-osl/domain/errors"
	"github.com/reglet-dev/acpica-osl/infrastructure/config"
)

const (
	portSpaceSize   = 0x10000
	pciConfigSize   = 0x1000
	pciReadOnlySize = 4 // vendor and device id
)

// ioSpace holds port bytes and PCI configuration spaces. Bytes nobody wrote
// read as 0xff, as on an idle ISA bus.
type ioSpace struct {
	mu    sync.RWMutex
	ports map[entities.IOAddress]byte
	pci   map[entities.PCIID]*[pciConfigSize]byte
}

func newIOSpace(cfg *config.Machine) *ioSpace {
	s := &ioSpace{
		ports: make(map[entities.IOAddress]byte),
		pci:   make(map[entities.PCIID]*[pciConfigSize]byte),
	}
	for _, p := range cfg.Ports {
		v := p.Value
		for i := uint32(0); i < p.Width/8; i++ {
			s.ports[entities.IOAddress(p.Address)+entities.IOAddress(i)] = byte(v)
			v >>= 8
		}
	}
	for _, d := range cfg.PCI {
		space := new([pciConfigSize]byte)
		binary.LittleEndian.PutUint16(space[0:], d.VendorID)
		binary.LittleEndian.PutUint16(space[2:], d.DeviceID)
		s.pci[entities.PCIID{Segment: d.Segment, Bus: d.Bus, Device: d.Device, Function: d.Function}] = space
	}
	return s
}

// inSpace reports whether [off, off+n) fits in a space of size bytes
// without wrapping.
func inSpace(off, n, size uint64) bool {
	return off < size && n <= size-off
}

func (s *Services) ReadPort(_ context.Context, addr entities.IOAddress, width entities.Width) (uint32, error) {
	n := entities.IOAddress(width.Bytes())
	if !inSpace(uint64(addr), uint64(n), portSpaceSize) {
		return 0, errors.Wrap("read_port", entities.StatusBadParameter, fmt.Errorf("port %#x", uint64(addr)))
	}
	sp := s.io
	sp.mu.RLock()
	defer sp.mu.RUnlock()
	var v uint32
	for i := n; i > 0; i-- {
		b, ok := sp.ports[addr+i-1]
		if !ok {
			b = 0xff
		}
		v = v<<8 | uint32(b)
	}
	return v, nil
}

func (s *Services) WritePort(_ context.Context, addr entities.IOAddress, value uint32, width entities.Width) error {
	n := entities.IOAddress(width.Bytes())
	if !inSpace(uint64(addr), uint64(n), portSpaceSize) {
		return errors.Wrap("write_port", entities.StatusBadParameter, fmt.Errorf("port %#x", uint64(addr)))
	}
	sp := s.io
	sp.mu.Lock()
	defer sp.mu.Unlock()
	for i := entities.IOAddress(0); i < n; i++ {
		sp.ports[addr+i] = byte(value)
		value >>= 8
	}
	return nil
}

// ReadPCIConfiguration reads all ones from functions that do not exist.
func (s *Services) ReadPCIConfiguration(_ context.Context, id entities.PCIID, register uint32, width entities.Width) (uint64, error) {
	n := uint32(width.Bytes())
	if !inSpace(uint64(register), uint64(n), pciConfigSize) {
		return 0, errors.Wrap("read_pci_configuration", entities.StatusBadParameter, fmt.Errorf("register %#x", register))
	}
	sp := s.io
	sp.mu.RLock()
	defer sp.mu.RUnlock()
	space, ok := sp.pci[id]
	if !ok {
		return width.Mask(), nil
	}
	return readLE(space[register : register+n]), nil
}

// WritePCIConfiguration ignores writes to absent functions and to the
// identification registers.
func (s *Services) WritePCIConfiguration(ctx context.Context, id entities.PCIID, register uint32, value uint64, width entities.Width) error {
	n := uint32(width.Bytes())
	if !inSpace(uint64(register), uint64(n), pciConfigSize) {
		return errors.Wrap("write_pci_configuration", entities.StatusBadParameter, fmt.Errorf("register %#x", register))
	}
	sp := s.io
	sp.mu.Lock()
	defer sp.mu.Unlock()
	space, ok := sp.pci[id]
	if !ok {
		s.logger.DebugContext(ctx, "write to absent pci function", "id", id.String(), "register", register)
		return nil
	}
	buf := make([]byte, n)
	writeLE(buf, value)
	for i := uint32(0); i < n; i++ {
		if register+i < pciReadOnlySize {
			continue
		}
		space[register+i] = buf[i]
	}
	return nil
}
