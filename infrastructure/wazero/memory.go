package wazero

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/tetratelabs/wazero/api"

	"github.com/reglet-dev/acpica-osl/domain/entities"
)

// buffer is a range of guest linear memory standing in for a host mapping
// or allocation.
type buffer struct {
	ptr        uint32
	length     uint32
	host       entities.VirtualPointer
	hostLength entities.Size
	mapped     bool

	// Mappings only.
	phys     entities.PhysicalAddress
	snapshot []byte
}

func (b *buffer) offset(ptr, length uint32) (uint32, bool) {
	if ptr < b.ptr {
		return 0, false
	}
	off := ptr - b.ptr
	return off, off < b.length && length <= b.length-off
}

// guest is the state the host keeps for one guest module.
type guest struct {
	name string

	mu      sync.Mutex
	buffers *treemap.Map // uint32 -> *buffer
	queue   []pendingCall
}

func newGuest(name string) *guest {
	return &guest{
		name:    name,
		buffers: treemap.NewWith(utils.UInt32Comparator),
	}
}

func (g *guest) add(b *buffer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.buffers.Put(b.ptr, b)
}

// take removes the buffer starting at ptr if it is of the wanted kind.
func (g *guest) take(ptr uint32, mapped bool) (*buffer, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	v, ok := g.buffers.Get(ptr)
	if !ok || v.(*buffer).mapped != mapped {
		return nil, false
	}
	g.buffers.Remove(ptr)
	return v.(*buffer), true
}

// find returns the buffer containing [ptr, ptr+length) and the offset of ptr.
func (g *guest) find(ptr, length uint32) (*buffer, uint32, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, v := g.buffers.Floor(ptr)
	if v == nil {
		return nil, 0, false
	}
	b := v.(*buffer)
	off, ok := b.offset(ptr, length)
	if !ok {
		return nil, 0, false
	}
	return b, off, true
}

func (g *guest) outstanding() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.buffers.Size()
}

// drop forgets every buffer and queued callback, returning the buffers.
func (g *guest) drop() []*buffer {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*buffer, 0, g.buffers.Size())
	for _, v := range g.buffers.Values() {
		out = append(out, v.(*buffer))
	}
	g.buffers.Clear()
	g.queue = nil
	return out
}

// guestAllocate reserves size bytes of guest memory through the guest's
// allocate export.
func guestAllocate(ctx context.Context, mod api.Module, size uint32) (uint32, error) {
	fn := mod.ExportedFunction(AllocateExport)
	if fn == nil {
		return 0, fmt.Errorf("guest module missing %q export", AllocateExport)
	}
	results, err := fn.Call(ctx, uint64(size))
	if err != nil {
		return 0, fmt.Errorf("calling guest %s: %w", AllocateExport, err)
	}
	ptr := uint32(results[0]) //nolint:gosec // G115: WASM32 pointers are always 32-bit
	if ptr == 0 {
		return 0, fmt.Errorf("guest %s(%d) returned null", AllocateExport, size)
	}
	return ptr, nil
}

func guestDeallocate(ctx context.Context, mod api.Module, ptr, size uint32) error {
	fn := mod.ExportedFunction(DeallocateExport)
	if fn == nil {
		return fmt.Errorf("guest module missing %q export", DeallocateExport)
	}
	if _, err := fn.Call(ctx, uint64(ptr), uint64(size)); err != nil {
		return fmt.Errorf("calling guest %s: %w", DeallocateExport, err)
	}
	return nil
}

// writeGuestBytes copies data into freshly allocated guest memory.
func writeGuestBytes(ctx context.Context, mod api.Module, data []byte) (uint32, error) {
	ptr, err := guestAllocate(ctx, mod, uint32(len(data))) //nolint:gosec // G115: bounded by MaxStringSize or table length
	if err != nil {
		return 0, err
	}
	if !mod.Memory().Write(ptr, data) {
		return 0, fmt.Errorf("writing %d bytes at %#x: out of range", len(data), ptr)
	}
	return ptr, nil
}

// readCString reads a NUL-terminated string of at most limit bytes.
func readCString(mod api.Module, ptr, limit uint32) (string, error) {
	if ptr == 0 {
		return "", nil
	}
	mem := mod.Memory()
	buf := make([]byte, 0, 32)
	for i := uint32(0); i < limit; i++ {
		c, ok := mem.ReadByte(ptr + i)
		if !ok {
			return "", fmt.Errorf("string at %#x: out of range", ptr)
		}
		if c == 0 {
			return string(buf), nil
		}
		buf = append(buf, c)
	}
	return "", fmt.Errorf("string at %#x: longer than %d bytes", ptr, limit)
}

// readPhysical copies length bytes of physical memory through the registry.
func (d *Dispatcher) readPhysical(ctx context.Context, phys entities.PhysicalAddress, length uint32) ([]byte, entities.Status) {
	reg := d.cfg.Registry
	data := make([]byte, length)
	for off := uint32(0); off < length; {
		addr := phys + entities.PhysicalAddress(off)
		if length-off >= 8 {
			v, status := reg.ReadMemory(ctx, addr, entities.Width64)
			if !status.IsOK() {
				return nil, status
			}
			binary.LittleEndian.PutUint64(data[off:], v)
			off += 8
			continue
		}
		v, status := reg.ReadMemory(ctx, addr, entities.Width8)
		if !status.IsOK() {
			return nil, status
		}
		data[off] = byte(v)
		off++
	}
	return data, entities.StatusOK
}

// flush writes guest changes to [off, off+n) of a mapping back to physical
// memory, one byte per changed byte.
func (d *Dispatcher) flush(ctx context.Context, mod api.Module, b *buffer, off, n uint32) entities.Status {
	cur, ok := mod.Memory().Read(b.ptr+off, n)
	if !ok {
		return entities.StatusBadParameter
	}
	for i := uint32(0); i < n; i++ {
		at := off + i
		if cur[i] == b.snapshot[at] {
			continue
		}
		status := d.cfg.Registry.WriteMemory(ctx, b.phys+entities.PhysicalAddress(at), uint64(cur[i]), entities.Width8)
		if !status.IsOK() {
			return status
		}
		b.snapshot[at] = cur[i]
	}
	return entities.StatusOK
}

// refresh reloads [off, off+n) of a mapping from physical memory.
func (d *Dispatcher) refresh(ctx context.Context, mod api.Module, b *buffer, off, n uint32) entities.Status {
	data, status := d.readPhysical(ctx, b.phys+entities.PhysicalAddress(off), n)
	if !status.IsOK() {
		return status
	}
	if !mod.Memory().Write(b.ptr+off, data) {
		return entities.StatusBadParameter
	}
	copy(b.snapshot[off:], data)
	return entities.StatusOK
}

func (d *Dispatcher) mapMemory(ctx context.Context, mod api.Module, phys entities.PhysicalAddress, length uint32) uint32 {
	reg := d.cfg.Registry
	host, status := reg.Map(ctx, phys, entities.Size(length))
	if !status.IsOK() {
		return 0
	}

	data, status := d.readPhysical(ctx, phys, length)
	if !status.IsOK() {
		d.cfg.Logger.ErrorContext(ctx, "wazero: reading mapped memory failed", "address", phys, "length", length, "status", status)
		reg.Unmap(ctx, host, entities.Size(length))
		return 0
	}

	ptr, err := writeGuestBytes(ctx, mod, data)
	if err != nil {
		d.cfg.Logger.ErrorContext(ctx, "wazero: mirroring mapping into guest failed", "address", phys, "length", length, "error", err)
		reg.Unmap(ctx, host, entities.Size(length))
		return 0
	}

	d.guest(ctx, mod).add(&buffer{
		ptr:        ptr,
		length:     length,
		host:       host,
		hostLength: entities.Size(length),
		mapped:     true,
		phys:       phys,
		snapshot:   data,
	})
	return ptr
}

func (d *Dispatcher) unmapMemory(ctx context.Context, mod api.Module, ptr, length uint32) {
	b, ok := d.guest(ctx, mod).take(ptr, true)
	if !ok {
		d.cfg.Logger.WarnContext(ctx, "wazero: unmap of unknown guest pointer", "pointer", ptr, "length", length)
		return
	}
	if length != b.length {
		d.cfg.Logger.WarnContext(ctx, "wazero: unmap length differs from map", "pointer", ptr, "length", length, "mapped", b.length)
	}

	if status := d.flush(ctx, mod, b, 0, b.length); !status.IsOK() {
		d.cfg.Logger.ErrorContext(ctx, "wazero: writing back mapping failed", "address", b.phys, "status", status)
	}
	d.cfg.Registry.Unmap(ctx, b.host, b.hostLength)
	if err := guestDeallocate(ctx, mod, b.ptr, b.length); err != nil {
		d.cfg.Logger.ErrorContext(ctx, "wazero: releasing guest buffer failed", "error", err)
	}
}

func (d *Dispatcher) allocate(ctx context.Context, mod api.Module, size uint32) uint32 {
	reg := d.cfg.Registry
	host, status := reg.Allocate(ctx, entities.Size(size))
	if !status.IsOK() {
		return 0
	}

	ptr, err := guestAllocate(ctx, mod, size)
	if err != nil {
		d.cfg.Logger.ErrorContext(ctx, "wazero: guest allocation failed", "size", size, "error", err)
		reg.Free(ctx, host)
		return 0
	}

	d.guest(ctx, mod).add(&buffer{
		ptr:        ptr,
		length:     size,
		host:       host,
		hostLength: entities.Size(size),
	})
	return ptr
}

func (d *Dispatcher) free(ctx context.Context, mod api.Module, ptr uint32) {
	b, ok := d.guest(ctx, mod).take(ptr, false)
	if !ok {
		d.cfg.Logger.WarnContext(ctx, "wazero: free of unknown guest pointer", "pointer", ptr)
		return
	}
	d.cfg.Registry.Free(ctx, b.host)
	if err := guestDeallocate(ctx, mod, b.ptr, b.length); err != nil {
		d.cfg.Logger.ErrorContext(ctx, "wazero: releasing guest buffer failed", "error", err)
	}
}
