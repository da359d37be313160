package hosted

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"

	osl "github.com/reglet-dev/acpica-osl"
	"github.com/reglet-dev/acpica-osl/domain/entities"
	"github.com/reglet-dev/acpica-osl/domain/errors"
	"github.com/reglet-dev/acpica-osl/infrastructure/config"
)

const (
	// VirtualBase is the first pointer handed out by Map and Allocate.
	VirtualBase entities.VirtualPointer = 0xffff_8000_0000_0000

	pageSize = 0x1000
	pageMask = pageSize - 1
)

type regionKind int

const (
	kindMapping regionKind = iota
	kindAllocation
)

func (k regionKind) String() string {
	if k == kindAllocation {
		return "allocation"
	}
	return "mapping"
}

// region is a live range of virtual space. Mappings alias the physical
// arena; allocations own their bytes.
type region struct {
	ptr    entities.VirtualPointer
	length entities.Size
	kind   regionKind
	phys   entities.PhysicalAddress
	data   []byte
}

func (r *region) contains(ptr entities.VirtualPointer, length entities.Size) bool {
	if ptr < r.ptr {
		return false
	}
	off := uint64(ptr - r.ptr)
	if off >= uint64(r.length) {
		return false
	}
	return uint64(length) <= uint64(r.length)-off
}

type memory struct {
	mu       sync.RWMutex
	arena    []byte
	maxAlloc entities.Size
	next     entities.VirtualPointer
	live     *treemap.Map // uint64 -> *region
}

func newMemory(cfg *config.Machine) (*memory, error) {
	m := &memory{
		arena:    make([]byte, cfg.Memory.PhysicalSize),
		maxAlloc: entities.Size(cfg.Memory.MaxAllocation),
		next:     VirtualBase,
		live:     treemap.NewWith(utils.UInt64Comparator),
	}
	if m.maxAlloc == 0 {
		m.maxAlloc = entities.Size(cfg.Memory.PhysicalSize)
	}
	for _, r := range cfg.Memory.Regions {
		data, err := r.Bytes(cfg)
		if err != nil {
			return nil, err
		}
		if r.Address+uint64(len(data)) > uint64(len(m.arena)) {
			return nil, fmt.Errorf("region at %#x (%d bytes) exceeds physical memory", r.Address, len(data))
		}
		copy(m.arena[r.Address:], data)
	}
	return m, nil
}

// reserve claims page-aligned virtual space for length bytes starting at
// page offset off.
func (m *memory) reserve(off uint64, length entities.Size) (entities.VirtualPointer, bool) {
	pages := (off + uint64(length) + pageMask) &^ pageMask
	base := m.next
	if uint64(base)+pages < uint64(base) {
		return entities.NullPointer, false
	}
	m.next += entities.VirtualPointer(pages)
	return base + entities.VirtualPointer(off), true
}

// lookup returns the live region containing [ptr, ptr+length).
func (m *memory) lookup(ptr entities.VirtualPointer, length entities.Size) (*region, bool) {
	_, v := m.live.Floor(uint64(ptr))
	if v == nil {
		return nil, false
	}
	r := v.(*region)
	if !r.contains(ptr, length) {
		return nil, false
	}
	return r, true
}

func (m *memory) counts() (mappings, allocations int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, v := range m.live.Values() {
		if v.(*region).kind == kindAllocation {
			allocations++
		} else {
			mappings++
		}
	}
	return mappings, allocations
}

func (m *memory) physicalRange(addr entities.PhysicalAddress, n uint64) bool {
	end := uint64(addr) + n
	return end >= uint64(addr) && end <= uint64(len(m.arena))
}

// bytesAt returns the backing bytes of [ptr, ptr+n). Caller holds mu.
func (m *memory) bytesAt(ptr entities.VirtualPointer, n entities.Size) ([]byte, bool) {
	r, ok := m.lookup(ptr, n)
	if !ok {
		return nil, false
	}
	off := uint64(ptr - r.ptr)
	if r.kind == kindAllocation {
		return r.data[off : off+uint64(n)], true
	}
	start := uint64(r.phys) + off
	return m.arena[start : start+uint64(n)], true
}

func (s *Services) observeRegion(op string, kind regionKind, err error) {
	s.metrics.RegionOps.WithLabelValues(op, errors.ToStatus(err).String()).Inc()
	if err != nil {
		return
	}
	switch op {
	case "map", "allocate":
		s.metrics.Regions.WithLabelValues(kind.String()).Inc()
	case "unmap", "free":
		s.metrics.Regions.WithLabelValues(kind.String()).Dec()
	}
}

// Map returns a pointer to the arena bytes at addr. The pointer keeps the
// page offset of addr.
func (s *Services) Map(ctx context.Context, addr entities.PhysicalAddress, length entities.Size) (ptr entities.VirtualPointer, err error) {
	defer func() { s.observeRegion("map", kindMapping, err) }()

	if length == 0 {
		return entities.NullPointer, errors.New("map", entities.StatusBadParameter)
	}
	m := s.mem
	if !m.physicalRange(addr, uint64(length)) {
		return entities.NullPointer, errors.Wrap("map", entities.StatusNoMemory,
			fmt.Errorf("physical range %#x+%#x outside memory", uint64(addr), uint64(length)))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	ptr, ok := m.reserve(uint64(addr)&pageMask, length)
	if !ok {
		return entities.NullPointer, errors.Wrap("map", entities.StatusNoMemory, fmt.Errorf("virtual space exhausted"))
	}
	m.live.Put(uint64(ptr), &region{ptr: ptr, length: length, kind: kindMapping, phys: addr})
	s.logger.DebugContext(ctx, "mapped", "phys", uint64(addr), "length", uint64(length), "ptr", uint64(ptr))
	return ptr, nil
}

// Unmap requires the exact pointer and length returned by Map.
func (s *Services) Unmap(ctx context.Context, ptr entities.VirtualPointer, length entities.Size) (err error) {
	defer func() { s.observeRegion("unmap", kindMapping, err) }()

	m := s.mem
	m.mu.Lock()
	defer m.mu.Unlock()
	v, found := m.live.Get(uint64(ptr))
	if !found {
		return errors.Wrap("unmap", entities.StatusBadParameter, fmt.Errorf("no mapping at %#x", uint64(ptr)))
	}
	r := v.(*region)
	if r.kind != kindMapping || r.length != length {
		return errors.Wrap("unmap", entities.StatusBadParameter,
			fmt.Errorf("%#x is a %s of %#x bytes", uint64(ptr), r.kind, uint64(r.length)))
	}
	m.live.Remove(uint64(ptr))
	s.logger.DebugContext(ctx, "unmapped", "ptr", uint64(ptr), "length", uint64(length))
	return nil
}

func (s *Services) GetPhysicalAddress(_ context.Context, ptr entities.VirtualPointer) (entities.PhysicalAddress, error) {
	m := s.mem
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.lookup(ptr, 0)
	if !ok || r.kind != kindMapping {
		return 0, errors.Wrap("get_physical_address", entities.StatusNotExist, fmt.Errorf("%#x is not mapped", uint64(ptr)))
	}
	return r.phys + entities.PhysicalAddress(ptr-r.ptr), nil
}

// Allocate returns zeroed memory of at most cfg.Memory.MaxAllocation bytes,
// or of the physical memory size when no limit is configured.
func (s *Services) Allocate(_ context.Context, size entities.Size) (ptr entities.VirtualPointer, err error) {
	defer func() { s.observeRegion("allocate", kindAllocation, err) }()

	if size == 0 {
		return entities.NullPointer, errors.New("allocate", entities.StatusBadParameter)
	}
	m := s.mem
	if size > m.maxAlloc {
		return entities.NullPointer, errors.Wrap("allocate", entities.StatusNoMemory,
			fmt.Errorf("%d bytes exceeds the %d byte limit", uint64(size), uint64(m.maxAlloc)))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	ptr, ok := m.reserve(0, size)
	if !ok {
		return entities.NullPointer, errors.Wrap("allocate", entities.StatusNoMemory, fmt.Errorf("virtual space exhausted"))
	}
	m.live.Put(uint64(ptr), &region{ptr: ptr, length: size, kind: kindAllocation, data: make([]byte, size)})
	return ptr, nil
}

func (s *Services) Free(_ context.Context, ptr entities.VirtualPointer) (err error) {
	defer func() { s.observeRegion("free", kindAllocation, err) }()

	m := s.mem
	m.mu.Lock()
	defer m.mu.Unlock()
	v, found := m.live.Get(uint64(ptr))
	if !found || v.(*region).kind != kindAllocation {
		return errors.Wrap("free", entities.StatusBadParameter, fmt.Errorf("no allocation at %#x", uint64(ptr)))
	}
	m.live.Remove(uint64(ptr))
	return nil
}

func (s *Services) Readable(_ context.Context, ptr entities.VirtualPointer, length entities.Size) bool {
	s.mem.mu.RLock()
	defer s.mem.mu.RUnlock()
	_, ok := s.mem.lookup(ptr, length)
	return ok
}

func (s *Services) Writable(ctx context.Context, ptr entities.VirtualPointer, length entities.Size) bool {
	return s.Readable(ctx, ptr, length)
}

func (s *Services) ReadMemory(_ context.Context, addr entities.PhysicalAddress, width entities.Width) (uint64, error) {
	m := s.mem
	n := uint64(width.Bytes())
	if !m.physicalRange(addr, n) {
		return 0, errors.Wrap("read_memory", entities.StatusBadParameter, fmt.Errorf("%#x outside memory", uint64(addr)))
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return readLE(m.arena[addr:uint64(addr)+n]), nil
}

func (s *Services) WriteMemory(_ context.Context, addr entities.PhysicalAddress, value uint64, width entities.Width) error {
	m := s.mem
	n := uint64(width.Bytes())
	if !m.physicalRange(addr, n) {
		return errors.Wrap("write_memory", entities.StatusBadParameter, fmt.Errorf("%#x outside memory", uint64(addr)))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	writeLE(m.arena[addr:uint64(addr)+n], value)
	return nil
}

// ReadVirtual copies len(buf) bytes from a live mapping or allocation.
func (s *Services) ReadVirtual(ptr entities.VirtualPointer, buf []byte) error {
	m := s.mem
	m.mu.RLock()
	defer m.mu.RUnlock()
	src, ok := m.bytesAt(ptr, entities.Size(len(buf)))
	if !ok {
		return errors.Wrap("read_virtual", entities.StatusBadParameter, fmt.Errorf("%#x+%d is not live", uint64(ptr), len(buf)))
	}
	copy(buf, src)
	return nil
}

// WriteVirtual copies data into a live mapping or allocation.
func (s *Services) WriteVirtual(ptr entities.VirtualPointer, data []byte) error {
	m := s.mem
	m.mu.Lock()
	defer m.mu.Unlock()
	dst, ok := m.bytesAt(ptr, entities.Size(len(data)))
	if !ok {
		return errors.Wrap("write_virtual", entities.StatusBadParameter, fmt.Errorf("%#x+%d is not live", uint64(ptr), len(data)))
	}
	copy(dst, data)
	return nil
}

// AcquireGlobalLock runs the acquire transition on the lock dword at facs.
func (s *Services) AcquireGlobalLock(_ context.Context, facs entities.VirtualPointer) (bool, error) {
	var acquired bool
	err := s.mem.update32("acquire_global_lock", facs, func(old uint32) uint32 {
		var next uint32
		next, acquired = osl.AcquireGlobalLockValue(old)
		return next
	})
	return acquired, err
}

// ReleaseGlobalLock runs the release transition and reports a waiting party.
func (s *Services) ReleaseGlobalLock(_ context.Context, facs entities.VirtualPointer) (bool, error) {
	var pending bool
	err := s.mem.update32("release_global_lock", facs, func(old uint32) uint32 {
		var next uint32
		next, pending = osl.ReleaseGlobalLockValue(old)
		return next
	})
	return pending, err
}

func (m *memory) update32(op string, ptr entities.VirtualPointer, fn func(uint32) uint32) error {
	if ptr&3 != 0 {
		return errors.Wrap(op, entities.StatusBadParameter, fmt.Errorf("%#x is not dword aligned", uint64(ptr)))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bytesAt(ptr, 4)
	if !ok {
		return errors.Wrap(op, entities.StatusBadParameter, fmt.Errorf("%#x is not live", uint64(ptr)))
	}
	binary.LittleEndian.PutUint32(b, fn(binary.LittleEndian.Uint32(b)))
	return nil
}

func readLE(b []byte) uint64 {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func writeLE(b []byte, v uint64) {
	for i := range b {
		b[i] = byte(v)
		v >>= 8
	}
}
