package wazero

import (
	"context"
	"math"

	"github.com/tetratelabs/wazero/api"

	"github.com/reglet-dev/acpica-osl/domain/entities"
)

// hostFunc implements one export. Parameters arrive in stack; results are
// written back to stack[0].
type hostFunc func(d *Dispatcher, ctx context.Context, mod api.Module, stack []uint64)

type export struct {
	name    string
	params  []api.ValueType
	results []api.ValueType
	fn      hostFunc
}

const (
	i32 = api.ValueTypeI32
	i64 = api.ValueTypeI64
)

func sig(types ...api.ValueType) []api.ValueType { return types }

// exports lists the host module in interpreter order.
var exports = []export{
	{"AcpiOsInitialize", nil, sig(i32), (*Dispatcher).initialize},
	{"AcpiOsTerminate", nil, sig(i32), (*Dispatcher).terminate},
	{"AcpiOsGetRootPointer", nil, sig(i64), (*Dispatcher).getRootPointer},
	{"AcpiOsPredefinedOverride", sig(i32, i32), sig(i32), (*Dispatcher).predefinedOverride},
	{"AcpiOsTableOverride", sig(i32, i32), sig(i32), (*Dispatcher).tableOverride},
	{"AcpiOsPhysicalTableOverride", sig(i32, i32, i32), sig(i32), (*Dispatcher).physicalTableOverride},

	{"AcpiOsMapMemory", sig(i64, i32), sig(i32), (*Dispatcher).mapMemoryExport},
	{"AcpiOsUnmapMemory", sig(i32, i32), nil, (*Dispatcher).unmapMemoryExport},
	{"AcpiOsGetPhysicalAddress", sig(i32, i32), sig(i32), (*Dispatcher).getPhysicalAddress},
	{"AcpiOsAllocate", sig(i32), sig(i32), (*Dispatcher).allocateExport},
	{"AcpiOsFree", sig(i32), nil, (*Dispatcher).freeExport},
	{"AcpiOsReadable", sig(i32, i32), sig(i32), (*Dispatcher).readable},
	{"AcpiOsWritable", sig(i32, i32), sig(i32), (*Dispatcher).writable},
	{"AcpiOsReadMemory", sig(i64, i32, i32), sig(i32), (*Dispatcher).readMemory},
	{"AcpiOsWriteMemory", sig(i64, i64, i32), sig(i32), (*Dispatcher).writeMemory},

	{"AcpiOsGetThreadId", nil, sig(i64), (*Dispatcher).getThreadID},
	{"AcpiOsExecute", sig(i32, i32, i32), sig(i32), (*Dispatcher).execute},
	{"AcpiOsWaitEventsComplete", nil, nil, (*Dispatcher).waitEventsComplete},
	{"AcpiOsSleep", sig(i64), nil, (*Dispatcher).sleep},
	{"AcpiOsStall", sig(i32), nil, (*Dispatcher).stall},
	{"AcpiOsGetTimer", nil, sig(i64), (*Dispatcher).getTimer},

	{"AcpiOsCreateMutex", sig(i32), sig(i32), (*Dispatcher).createMutex},
	{"AcpiOsDeleteMutex", sig(i32), nil, (*Dispatcher).deleteMutex},
	{"AcpiOsAcquireMutex", sig(i32, i32), sig(i32), (*Dispatcher).acquireMutex},
	{"AcpiOsReleaseMutex", sig(i32), nil, (*Dispatcher).releaseMutex},
	{"AcpiOsCreateSemaphore", sig(i32, i32, i32), sig(i32), (*Dispatcher).createSemaphore},
	{"AcpiOsDeleteSemaphore", sig(i32), sig(i32), (*Dispatcher).deleteSemaphore},
	{"AcpiOsWaitSemaphore", sig(i32, i32, i32), sig(i32), (*Dispatcher).waitSemaphore},
	{"AcpiOsSignalSemaphore", sig(i32, i32), sig(i32), (*Dispatcher).signalSemaphore},
	{"AcpiOsCreateLock", sig(i32), sig(i32), (*Dispatcher).createLock},
	{"AcpiOsDeleteLock", sig(i32), nil, (*Dispatcher).deleteLock},
	{"AcpiOsAcquireLock", sig(i32), sig(i64), (*Dispatcher).acquireLock},
	{"AcpiOsReleaseLock", sig(i32, i64), nil, (*Dispatcher).releaseLock},
	{"AcpiOsAcquireGlobalLock", sig(i32, i32), sig(i32), (*Dispatcher).acquireGlobalLock},
	{"AcpiOsReleaseGlobalLock", sig(i32, i32), sig(i32), (*Dispatcher).releaseGlobalLock},

	{"AcpiOsInstallInterruptHandler", sig(i32, i32, i32), sig(i32), (*Dispatcher).installInterruptHandler},
	{"AcpiOsRemoveInterruptHandler", sig(i32, i32), sig(i32), (*Dispatcher).removeInterruptHandler},

	{"AcpiOsReadPort", sig(i32, i32, i32), sig(i32), (*Dispatcher).readPort},
	{"AcpiOsWritePort", sig(i32, i32, i32), sig(i32), (*Dispatcher).writePort},
	{"AcpiOsReadPciConfiguration", sig(i32, i32, i32, i32), sig(i32), (*Dispatcher).readPCIConfiguration},
	{"AcpiOsWritePciConfiguration", sig(i32, i32, i64, i32), sig(i32), (*Dispatcher).writePCIConfiguration},

	{"AcpiOsPrint", sig(i64), nil, (*Dispatcher).print},
	{"AcpiOsRedirectOutput", sig(i32), nil, (*Dispatcher).redirectOutput},
	{"AcpiOsSignal", sig(i32, i32), sig(i32), (*Dispatcher).signal},
	{"AcpiOsEnterSleep", sig(i32, i32, i32), sig(i32), (*Dispatcher).enterSleep},
	{"AcpiOsInitializeDebugger", nil, sig(i32), (*Dispatcher).initializeDebugger},
	{"AcpiOsTerminateDebugger", nil, nil, (*Dispatcher).terminateDebugger},
	{"AcpiOsWaitCommandReady", nil, sig(i32), (*Dispatcher).waitCommandReady},
	{"AcpiOsNotifyCommandComplete", nil, sig(i32), (*Dispatcher).notifyCommandComplete},
}

// ExportNames returns the names of every function in the host module.
func ExportNames() []string {
	names := make([]string, len(exports))
	for i, e := range exports {
		names[i] = e.name
	}
	return names
}

func encodeStatus(s entities.Status) uint64 {
	return api.EncodeU32(uint32(s))
}

func encodeBool(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func u32(v uint64) uint32 {
	return api.DecodeU32(v)
}

// writeOut32 stores v at the guest out-parameter ptr.
func writeOut32(mod api.Module, ptr, v uint32) bool {
	return ptr != 0 && mod.Memory().WriteUint32Le(ptr, v)
}

func writeOut64(mod api.Module, ptr uint32, v uint64) bool {
	return ptr != 0 && mod.Memory().WriteUint64Le(ptr, v)
}

// handleOut narrows a host handle for the guest and stores it at ptr. On
// failure release undoes the creation.
func handleOut(mod api.Module, ptr uint32, h uint64, release func()) entities.Status {
	if h > math.MaxUint32 {
		release()
		return entities.StatusLimit
	}
	if !writeOut32(mod, ptr, uint32(h)) {
		release()
		return entities.StatusBadParameter
	}
	return entities.StatusOK
}

// Lifecycle and tables.

func (d *Dispatcher) initialize(ctx context.Context, _ api.Module, stack []uint64) {
	stack[0] = encodeStatus(d.cfg.Registry.Initialize(ctx))
}

func (d *Dispatcher) terminate(ctx context.Context, _ api.Module, stack []uint64) {
	stack[0] = encodeStatus(d.cfg.Registry.Terminate(ctx))
}

func (d *Dispatcher) getRootPointer(ctx context.Context, _ api.Module, stack []uint64) {
	addr, status := d.cfg.Registry.GetRootPointer(ctx)
	if !status.IsOK() {
		d.cfg.Logger.DebugContext(ctx, "wazero: root pointer not found", "status", status)
	}
	stack[0] = uint64(addr)
}

// Guest layout of ACPI_PREDEFINED_NAMES.
const (
	predefinedNameOffset  = 0
	predefinedTypeOffset  = 4
	predefinedValueOffset = 8
)

func (d *Dispatcher) predefinedOverride(ctx context.Context, mod api.Module, stack []uint64) {
	initPtr, outPtr := u32(stack[0]), u32(stack[1])
	mem := mod.Memory()

	namePtr, ok1 := mem.ReadUint32Le(initPtr + predefinedNameOffset)
	typ, ok2 := mem.ReadByte(initPtr + predefinedTypeOffset)
	valuePtr, ok3 := mem.ReadUint32Le(initPtr + predefinedValueOffset)
	if initPtr == 0 || !ok1 || !ok2 || !ok3 {
		stack[0] = encodeStatus(entities.StatusBadParameter)
		return
	}
	name, err := readCString(mod, namePtr, d.cfg.MaxStringSize)
	if err != nil {
		d.cfg.Logger.WarnContext(ctx, "wazero: bad predefined name", "error", err)
		stack[0] = encodeStatus(entities.StatusBadParameter)
		return
	}
	value, err := readCString(mod, valuePtr, d.cfg.MaxStringSize)
	if err != nil {
		d.cfg.Logger.WarnContext(ctx, "wazero: bad predefined value", "error", err)
		stack[0] = encodeStatus(entities.StatusBadParameter)
		return
	}

	replacement, replace, status := d.cfg.Registry.PredefinedOverride(ctx, entities.PredefinedName{Name: name, Type: typ, Value: value})
	if !status.IsOK() {
		stack[0] = encodeStatus(status)
		return
	}

	var out uint32
	if replace {
		out, err = writeGuestBytes(ctx, mod, append([]byte(replacement), 0))
		if err != nil {
			d.cfg.Logger.ErrorContext(ctx, "wazero: copying predefined override failed", "name", name, "error", err)
			stack[0] = encodeStatus(entities.StatusNoMemory)
			return
		}
	}
	if !writeOut32(mod, outPtr, out) {
		stack[0] = encodeStatus(entities.StatusBadParameter)
		return
	}
	stack[0] = encodeStatus(entities.StatusOK)
}

func readTableHeader(mod api.Module, ptr uint32) (entities.TableHeader, bool) {
	var h entities.TableHeader
	if ptr == 0 {
		return h, false
	}
	raw, ok := mod.Memory().Read(ptr, entities.TableHeaderSize)
	if !ok {
		return h, false
	}
	return h, h.UnmarshalBinary(raw) == nil
}

// tableOverride copies a replacement table into guest memory. The copy
// belongs to the interpreter, which keeps installed tables for its lifetime.
func (d *Dispatcher) tableOverride(ctx context.Context, mod api.Module, stack []uint64) {
	hdr, ok := readTableHeader(mod, u32(stack[0]))
	outPtr := u32(stack[1])
	if !ok {
		stack[0] = encodeStatus(entities.StatusBadParameter)
		return
	}

	table, status := d.cfg.Registry.TableOverride(ctx, hdr)
	if !status.IsOK() {
		stack[0] = encodeStatus(status)
		return
	}

	var out uint32
	if len(table) > 0 {
		var err error
		out, err = writeGuestBytes(ctx, mod, table)
		if err != nil {
			d.cfg.Logger.ErrorContext(ctx, "wazero: copying override table failed", "signature", hdr.SignatureString(), "error", err)
			stack[0] = encodeStatus(entities.StatusNoMemory)
			return
		}
	}
	if !writeOut32(mod, outPtr, out) {
		stack[0] = encodeStatus(entities.StatusBadParameter)
		return
	}
	stack[0] = encodeStatus(entities.StatusOK)
}

func (d *Dispatcher) physicalTableOverride(ctx context.Context, mod api.Module, stack []uint64) {
	hdr, ok := readTableHeader(mod, u32(stack[0]))
	addrPtr, lenPtr := u32(stack[1]), u32(stack[2])
	if !ok {
		stack[0] = encodeStatus(entities.StatusBadParameter)
		return
	}

	addr, length, status := d.cfg.Registry.PhysicalTableOverride(ctx, hdr)
	if !status.IsOK() {
		stack[0] = encodeStatus(status)
		return
	}
	if !writeOut64(mod, addrPtr, uint64(addr)) || !writeOut32(mod, lenPtr, length) {
		stack[0] = encodeStatus(entities.StatusBadParameter)
		return
	}
	stack[0] = encodeStatus(entities.StatusOK)
}

// Memory.

func (d *Dispatcher) mapMemoryExport(ctx context.Context, mod api.Module, stack []uint64) {
	stack[0] = api.EncodeU32(d.mapMemory(ctx, mod, entities.PhysicalAddress(stack[0]), u32(stack[1])))
}

func (d *Dispatcher) unmapMemoryExport(ctx context.Context, mod api.Module, stack []uint64) {
	d.unmapMemory(ctx, mod, u32(stack[0]), u32(stack[1]))
}

func (d *Dispatcher) getPhysicalAddress(ctx context.Context, mod api.Module, stack []uint64) {
	ptr, outPtr := u32(stack[0]), u32(stack[1])
	b, off, ok := d.guest(ctx, mod).find(ptr, 1)
	if !ok {
		stack[0] = encodeStatus(entities.StatusBadParameter)
		return
	}
	addr, status := d.cfg.Registry.GetPhysicalAddress(ctx, b.host+entities.VirtualPointer(off))
	if !status.IsOK() {
		stack[0] = encodeStatus(status)
		return
	}
	if !writeOut64(mod, outPtr, uint64(addr)) {
		stack[0] = encodeStatus(entities.StatusBadParameter)
		return
	}
	stack[0] = encodeStatus(entities.StatusOK)
}

func (d *Dispatcher) allocateExport(ctx context.Context, mod api.Module, stack []uint64) {
	stack[0] = api.EncodeU32(d.allocate(ctx, mod, u32(stack[0])))
}

func (d *Dispatcher) freeExport(ctx context.Context, mod api.Module, stack []uint64) {
	d.free(ctx, mod, u32(stack[0]))
}

// access answers Readable and Writable for guest pointers. Only buffers the
// host handed out are known; anything else is reported inaccessible.
func (d *Dispatcher) access(ctx context.Context, mod api.Module, stack []uint64, check func(context.Context, entities.VirtualPointer, entities.Size) (bool, entities.Status)) {
	ptr, length := u32(stack[0]), u32(stack[1])
	b, off, ok := d.guest(ctx, mod).find(ptr, length)
	if !ok {
		stack[0] = 0
		return
	}
	allowed, _ := check(ctx, b.host+entities.VirtualPointer(off), entities.Size(length))
	stack[0] = api.EncodeU32(encodeBool(allowed))
}

func (d *Dispatcher) readable(ctx context.Context, mod api.Module, stack []uint64) {
	d.access(ctx, mod, stack, d.cfg.Registry.Readable)
}

func (d *Dispatcher) writable(ctx context.Context, mod api.Module, stack []uint64) {
	d.access(ctx, mod, stack, d.cfg.Registry.Writable)
}

func (d *Dispatcher) readMemory(ctx context.Context, mod api.Module, stack []uint64) {
	addr, outPtr, width := entities.PhysicalAddress(stack[0]), u32(stack[1]), entities.Width(u32(stack[2]))
	v, status := d.cfg.Registry.ReadMemory(ctx, addr, width)
	if status.IsOK() && !writeOut64(mod, outPtr, v) {
		status = entities.StatusBadParameter
	}
	stack[0] = encodeStatus(status)
}

func (d *Dispatcher) writeMemory(ctx context.Context, _ api.Module, stack []uint64) {
	addr, value, width := entities.PhysicalAddress(stack[0]), stack[1], entities.Width(u32(stack[2]))
	stack[0] = encodeStatus(d.cfg.Registry.WriteMemory(ctx, addr, value, width))
}

// Threads and timing.

func (d *Dispatcher) getThreadID(ctx context.Context, _ api.Module, stack []uint64) {
	id, _ := d.cfg.Registry.GetThreadID(ctx)
	stack[0] = uint64(id)
}

func (d *Dispatcher) execute(ctx context.Context, mod api.Module, stack []uint64) {
	typ := entities.ExecuteType(u32(stack[0]))
	fn, data := entities.Callback(u32(stack[1])), entities.Context(u32(stack[2]))
	if fn == 0 {
		stack[0] = encodeStatus(entities.StatusBadParameter)
		return
	}
	task := deferredTask(d.guest(ctx, mod), typ, fn, data)
	stack[0] = encodeStatus(d.cfg.Registry.Execute(ctx, task))
}

// waitEventsComplete alternates between waiting for host workers and
// running what they queued until both are idle.
func (d *Dispatcher) waitEventsComplete(ctx context.Context, mod api.Module, _ []uint64) {
	for d.cfg.Registry.WaitEventsComplete(ctx).IsOK() {
		if d.yield(ctx, mod) == 0 {
			return
		}
	}
}

func (d *Dispatcher) sleep(ctx context.Context, mod api.Module, stack []uint64) {
	d.cfg.Registry.Sleep(ctx, stack[0])
	d.yield(ctx, mod)
}

func (d *Dispatcher) stall(ctx context.Context, _ api.Module, stack []uint64) {
	d.cfg.Registry.Stall(ctx, u32(stack[0]))
}

func (d *Dispatcher) getTimer(ctx context.Context, _ api.Module, stack []uint64) {
	t, _ := d.cfg.Registry.GetTimer(ctx)
	stack[0] = t
}

// Synchronization.

func (d *Dispatcher) createMutex(ctx context.Context, mod api.Module, stack []uint64) {
	reg := d.cfg.Registry
	h, status := reg.CreateMutex(ctx)
	if status.IsOK() {
		status = handleOut(mod, u32(stack[0]), uint64(h), func() { reg.DeleteMutex(ctx, h) })
	}
	stack[0] = encodeStatus(status)
}

func (d *Dispatcher) deleteMutex(ctx context.Context, _ api.Module, stack []uint64) {
	d.cfg.Registry.DeleteMutex(ctx, entities.MutexHandle(u32(stack[0])))
}

func (d *Dispatcher) acquireMutex(ctx context.Context, _ api.Module, stack []uint64) {
	h, timeout := entities.MutexHandle(u32(stack[0])), entities.Timeout(uint16(u32(stack[1]))) //nolint:gosec // G115: timeouts are UINT16
	stack[0] = encodeStatus(d.cfg.Registry.AcquireMutex(ctx, h, timeout))
}

func (d *Dispatcher) releaseMutex(ctx context.Context, _ api.Module, stack []uint64) {
	d.cfg.Registry.ReleaseMutex(ctx, entities.MutexHandle(u32(stack[0])))
}

func (d *Dispatcher) createSemaphore(ctx context.Context, mod api.Module, stack []uint64) {
	reg := d.cfg.Registry
	h, status := reg.CreateSemaphore(ctx, u32(stack[0]), u32(stack[1]))
	if status.IsOK() {
		status = handleOut(mod, u32(stack[2]), uint64(h), func() { reg.DeleteSemaphore(ctx, h) })
	}
	stack[0] = encodeStatus(status)
}

func (d *Dispatcher) deleteSemaphore(ctx context.Context, _ api.Module, stack []uint64) {
	stack[0] = encodeStatus(d.cfg.Registry.DeleteSemaphore(ctx, entities.SemaphoreHandle(u32(stack[0]))))
}

func (d *Dispatcher) waitSemaphore(ctx context.Context, _ api.Module, stack []uint64) {
	h, units := entities.SemaphoreHandle(u32(stack[0])), u32(stack[1])
	timeout := entities.Timeout(uint16(u32(stack[2]))) //nolint:gosec // G115: timeouts are UINT16
	stack[0] = encodeStatus(d.cfg.Registry.WaitSemaphore(ctx, h, units, timeout))
}

func (d *Dispatcher) signalSemaphore(ctx context.Context, _ api.Module, stack []uint64) {
	h, units := entities.SemaphoreHandle(u32(stack[0])), u32(stack[1])
	stack[0] = encodeStatus(d.cfg.Registry.SignalSemaphore(ctx, h, units))
}

func (d *Dispatcher) createLock(ctx context.Context, mod api.Module, stack []uint64) {
	reg := d.cfg.Registry
	h, status := reg.CreateLock(ctx)
	if status.IsOK() {
		status = handleOut(mod, u32(stack[0]), uint64(h), func() { reg.DeleteLock(ctx, h) })
	}
	stack[0] = encodeStatus(status)
}

func (d *Dispatcher) deleteLock(ctx context.Context, _ api.Module, stack []uint64) {
	d.cfg.Registry.DeleteLock(ctx, entities.SpinlockHandle(u32(stack[0])))
}

func (d *Dispatcher) acquireLock(ctx context.Context, _ api.Module, stack []uint64) {
	flags, _ := d.cfg.Registry.AcquireLock(ctx, entities.SpinlockHandle(u32(stack[0])))
	stack[0] = uint64(flags)
}

func (d *Dispatcher) releaseLock(ctx context.Context, _ api.Module, stack []uint64) {
	d.cfg.Registry.ReleaseLock(ctx, entities.SpinlockHandle(u32(stack[0])), entities.CPUFlags(stack[1]))
}

// globalLock runs op on the host copy of the FACS lock dword at the guest
// pointer facs, which must lie in a mapping. Guest changes are written back
// before op and the result is reloaded after it.
func (d *Dispatcher) globalLock(ctx context.Context, mod api.Module, stack []uint64, op func(context.Context, entities.VirtualPointer) (bool, entities.Status)) {
	facs, outPtr := u32(stack[0]), u32(stack[1])
	b, off, ok := d.guest(ctx, mod).find(facs, 4)
	if !ok || !b.mapped {
		stack[0] = encodeStatus(entities.StatusBadParameter)
		return
	}

	if status := d.flush(ctx, mod, b, off, 4); !status.IsOK() {
		stack[0] = encodeStatus(status)
		return
	}
	result, status := op(ctx, b.host+entities.VirtualPointer(off))
	if refreshed := d.refresh(ctx, mod, b, off, 4); status.IsOK() && !refreshed.IsOK() {
		status = refreshed
	}
	if status.IsOK() && !writeOut32(mod, outPtr, encodeBool(result)) {
		status = entities.StatusBadParameter
	}
	stack[0] = encodeStatus(status)
}

func (d *Dispatcher) acquireGlobalLock(ctx context.Context, mod api.Module, stack []uint64) {
	d.globalLock(ctx, mod, stack, d.cfg.Registry.AcquireGlobalLock)
}

func (d *Dispatcher) releaseGlobalLock(ctx context.Context, mod api.Module, stack []uint64) {
	d.globalLock(ctx, mod, stack, d.cfg.Registry.ReleaseGlobalLock)
}

// Interrupts.

func (d *Dispatcher) installInterruptHandler(ctx context.Context, mod api.Module, stack []uint64) {
	level, fn, data := u32(stack[0]), entities.Callback(u32(stack[1])), entities.Context(u32(stack[2]))
	if fn == 0 {
		stack[0] = encodeStatus(entities.StatusBadParameter)
		return
	}
	handler := interruptHandler(d.guest(ctx, mod), level, fn)
	stack[0] = encodeStatus(d.cfg.Registry.InstallInterruptHandler(ctx, level, handler, data))
}

func (d *Dispatcher) removeInterruptHandler(ctx context.Context, _ api.Module, stack []uint64) {
	level, fn := u32(stack[0]), entities.Callback(u32(stack[1]))
	stack[0] = encodeStatus(d.cfg.Registry.RemoveInterruptHandler(ctx, level, entities.InterruptHandler{Address: fn}))
}

// Port and PCI I/O.

func (d *Dispatcher) readPort(ctx context.Context, mod api.Module, stack []uint64) {
	addr, outPtr, width := entities.IOAddress(u32(stack[0])), u32(stack[1]), entities.Width(u32(stack[2]))
	v, status := d.cfg.Registry.ReadPort(ctx, addr, width)
	if status.IsOK() && !writeOut32(mod, outPtr, v) {
		status = entities.StatusBadParameter
	}
	stack[0] = encodeStatus(status)
}

func (d *Dispatcher) writePort(ctx context.Context, _ api.Module, stack []uint64) {
	addr, value, width := entities.IOAddress(u32(stack[0])), u32(stack[1]), entities.Width(u32(stack[2]))
	stack[0] = encodeStatus(d.cfg.Registry.WritePort(ctx, addr, value, width))
}

// pciIDSize is the guest size of ACPI_PCI_ID: four UINT16 fields.
const pciIDSize = 8

func readPCIID(mod api.Module, ptr uint32) (entities.PCIID, bool) {
	if ptr == 0 {
		return entities.PCIID{}, false
	}
	raw, ok := mod.Memory().Read(ptr, pciIDSize)
	if !ok {
		return entities.PCIID{}, false
	}
	le16 := func(i int) uint16 { return uint16(raw[i]) | uint16(raw[i+1])<<8 }
	return entities.PCIID{Segment: le16(0), Bus: le16(2), Device: le16(4), Function: le16(6)}, true
}

func (d *Dispatcher) readPCIConfiguration(ctx context.Context, mod api.Module, stack []uint64) {
	id, ok := readPCIID(mod, u32(stack[0]))
	register, outPtr, width := u32(stack[1]), u32(stack[2]), entities.Width(u32(stack[3]))
	if !ok {
		stack[0] = encodeStatus(entities.StatusBadParameter)
		return
	}
	v, status := d.cfg.Registry.ReadPCIConfiguration(ctx, id, register, width)
	if status.IsOK() && !writeOut64(mod, outPtr, v) {
		status = entities.StatusBadParameter
	}
	stack[0] = encodeStatus(status)
}

func (d *Dispatcher) writePCIConfiguration(ctx context.Context, mod api.Module, stack []uint64) {
	id, ok := readPCIID(mod, u32(stack[0]))
	register, value, width := u32(stack[1]), stack[2], entities.Width(u32(stack[3]))
	if !ok {
		stack[0] = encodeStatus(entities.StatusBadParameter)
		return
	}
	stack[0] = encodeStatus(d.cfg.Registry.WritePCIConfiguration(ctx, id, register, value, width))
}

// Diagnostics.

// print takes the text as packed ptr+len; the guest formats it first.
func (d *Dispatcher) print(ctx context.Context, mod api.Module, stack []uint64) {
	ptr, length := unpackPtrLen(stack[0])
	if length > d.cfg.MaxStringSize {
		length = d.cfg.MaxStringSize
	}
	raw, ok := mod.Memory().Read(ptr, length)
	if !ok {
		d.cfg.Logger.WarnContext(ctx, "wazero: print text out of range", "pointer", ptr, "length", length)
		return
	}
	d.cfg.Registry.Print(ctx, string(raw))
}

func (d *Dispatcher) redirectOutput(ctx context.Context, _ api.Module, stack []uint64) {
	dest := u32(stack[0])
	w, ok := d.cfg.Outputs[dest]
	if !ok {
		d.cfg.Logger.WarnContext(ctx, "wazero: unknown output destination", "destination", dest)
		return
	}
	d.cfg.Registry.RedirectOutput(ctx, w)
}

func (d *Dispatcher) signal(ctx context.Context, mod api.Module, stack []uint64) {
	function, infoPtr := entities.SignalFunction(u32(stack[0])), u32(stack[1])

	var info entities.SignalInfo
	switch function {
	case entities.SignalFatal:
		raw, ok := mod.Memory().Read(infoPtr, 12)
		if infoPtr == 0 || !ok {
			stack[0] = encodeStatus(entities.StatusBadParameter)
			return
		}
		le32 := func(i int) uint32 {
			return uint32(raw[i]) | uint32(raw[i+1])<<8 | uint32(raw[i+2])<<16 | uint32(raw[i+3])<<24
		}
		info = entities.SignalInfo{Type: le32(0), Code: le32(4), Argument: le32(8)}
	case entities.SignalBreakpoint:
		msg, err := readCString(mod, infoPtr, d.cfg.MaxStringSize)
		if err != nil {
			stack[0] = encodeStatus(entities.StatusBadParameter)
			return
		}
		info = entities.SignalInfo{Message: msg}
	}
	stack[0] = encodeStatus(d.cfg.Registry.Signal(ctx, function, info))
}

func (d *Dispatcher) enterSleep(ctx context.Context, _ api.Module, stack []uint64) {
	state := entities.SleepState(u32(stack[0])) //nolint:gosec // G115: sleep states are S0-S5
	stack[0] = encodeStatus(d.cfg.Registry.EnterSleep(ctx, state, u32(stack[1]), u32(stack[2])))
}

func (d *Dispatcher) initializeDebugger(ctx context.Context, _ api.Module, stack []uint64) {
	stack[0] = encodeStatus(d.cfg.Registry.InitializeDebugger(ctx))
}

func (d *Dispatcher) terminateDebugger(ctx context.Context, _ api.Module, _ []uint64) {
	d.cfg.Registry.TerminateDebugger(ctx)
}

func (d *Dispatcher) waitCommandReady(ctx context.Context, _ api.Module, stack []uint64) {
	stack[0] = encodeStatus(d.cfg.Registry.WaitCommandReady(ctx))
}

func (d *Dispatcher) notifyCommandComplete(ctx context.Context, _ api.Module, stack []uint64) {
	stack[0] = encodeStatus(d.cfg.Registry.NotifyCommandComplete(ctx))
}
