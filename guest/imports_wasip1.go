//go:build wasip1

package guest

import (
	"runtime"

	"github.com/reglet-dev/acpica-osl/domain/entities"
)

//go:wasmimport env AcpiOsInitialize
func osInitialize() uint32

//go:wasmimport env AcpiOsTerminate
func osTerminate() uint32

//go:wasmimport env AcpiOsGetRootPointer
func osGetRootPointer() uint64

//go:wasmimport env AcpiOsMapMemory
func osMapMemory(phys uint64, length uint32) uint32

//go:wasmimport env AcpiOsUnmapMemory
func osUnmapMemory(ptr uint32, length uint32)

//go:wasmimport env AcpiOsReadMemory
func osReadMemory(addr uint64, out uint32, width uint32) uint32

//go:wasmimport env AcpiOsWriteMemory
func osWriteMemory(addr uint64, value uint64, width uint32) uint32

//go:wasmimport env AcpiOsGetThreadId
func osGetThreadID() uint64

//go:wasmimport env AcpiOsExecute
func osExecute(typ uint32, fn uint32, context uint32) uint32

//go:wasmimport env AcpiOsWaitEventsComplete
func osWaitEventsComplete()

//go:wasmimport env AcpiOsSleep
func osSleep(ms uint64)

//go:wasmimport env AcpiOsStall
func osStall(us uint32)

//go:wasmimport env AcpiOsGetTimer
func osGetTimer() uint64

//go:wasmimport env AcpiOsCreateSemaphore
func osCreateSemaphore(maxUnits uint32, initial uint32, out uint32) uint32

//go:wasmimport env AcpiOsDeleteSemaphore
func osDeleteSemaphore(h uint32) uint32

//go:wasmimport env AcpiOsWaitSemaphore
func osWaitSemaphore(h uint32, units uint32, timeout uint32) uint32

//go:wasmimport env AcpiOsSignalSemaphore
func osSignalSemaphore(h uint32, units uint32) uint32

//go:wasmimport env AcpiOsInstallInterruptHandler
func osInstallInterruptHandler(level uint32, fn uint32, context uint32) uint32

//go:wasmimport env AcpiOsRemoveInterruptHandler
func osRemoveInterruptHandler(level uint32, fn uint32) uint32

//go:wasmimport env AcpiOsReadPort
func osReadPort(addr uint32, out uint32, width uint32) uint32

//go:wasmimport env AcpiOsWritePort
func osWritePort(addr uint32, value uint32, width uint32) uint32

//go:wasmimport env AcpiOsPrint
func osPrint(packed uint64)

// Initialize calls AcpiOsInitialize.
func Initialize() entities.Status { return entities.Status(osInitialize()) }

// Terminate calls AcpiOsTerminate.
func Terminate() entities.Status { return entities.Status(osTerminate()) }

// GetRootPointer returns the RSDP address, or 0 if none was found.
func GetRootPointer() entities.PhysicalAddress {
	return entities.PhysicalAddress(osGetRootPointer())
}

// MapMemory maps length bytes of physical memory and returns a view of the
// host's copy. Changes reach physical memory on UnmapMemory.
func MapMemory(phys entities.PhysicalAddress, length uint32) (uint32, bool) {
	ptr := osMapMemory(uint64(phys), length)
	return ptr, ptr != 0
}

// UnmapMemory releases a mapping returned by MapMemory.
func UnmapMemory(ptr, length uint32) { osUnmapMemory(ptr, length) }

// Mapped copies the current contents of a mapping.
func Mapped(ptr, length uint32) []byte { return bytesAt(ptr, length) }

// ReadMemory reads width bits of physical memory.
func ReadMemory(phys entities.PhysicalAddress, width entities.Width) (uint64, entities.Status) {
	var v uint64
	status := entities.Status(osReadMemory(uint64(phys), addr(&v), uint32(width)))
	runtime.KeepAlive(&v)
	return v, status
}

// WriteMemory writes width bits of physical memory.
func WriteMemory(phys entities.PhysicalAddress, value uint64, width entities.Width) entities.Status {
	return entities.Status(osWriteMemory(uint64(phys), value, uint32(width)))
}

// GetThreadID identifies the calling context.
func GetThreadID() entities.ThreadID { return entities.ThreadID(osGetThreadID()) }

// Execute queues the handler registered at fn.
func Execute(typ entities.ExecuteType, fn, context uint32) entities.Status {
	return entities.Status(osExecute(uint32(typ), fn, context))
}

// WaitEventsComplete blocks until queued work has run, including the
// handlers it calls back into this module.
func WaitEventsComplete() { osWaitEventsComplete() }

// Sleep suspends for ms milliseconds. Queued handlers run afterwards.
func Sleep(ms uint64) { osSleep(ms) }

// Stall busy-waits for us microseconds.
func Stall(us uint32) { osStall(us) }

// GetTimer returns the timer in 100ns units.
func GetTimer() uint64 { return osGetTimer() }

// CreateSemaphore creates a counting semaphore.
func CreateSemaphore(maxUnits, initial uint32) (entities.SemaphoreHandle, entities.Status) {
	var h uint32
	status := entities.Status(osCreateSemaphore(maxUnits, initial, addr(&h)))
	runtime.KeepAlive(&h)
	return entities.SemaphoreHandle(h), status
}

// DeleteSemaphore deletes a semaphore.
func DeleteSemaphore(h entities.SemaphoreHandle) entities.Status {
	return entities.Status(osDeleteSemaphore(uint32(h)))
}

// WaitSemaphore takes units from a semaphore.
func WaitSemaphore(h entities.SemaphoreHandle, units uint32, timeout entities.Timeout) entities.Status {
	return entities.Status(osWaitSemaphore(uint32(h), units, uint32(timeout)))
}

// SignalSemaphore returns units to a semaphore.
func SignalSemaphore(h entities.SemaphoreHandle, units uint32) entities.Status {
	return entities.Status(osSignalSemaphore(uint32(h), units))
}

// InstallInterruptHandler attaches the handler registered at fn to level.
func InstallInterruptHandler(level, fn, context uint32) entities.Status {
	return entities.Status(osInstallInterruptHandler(level, fn, context))
}

// RemoveInterruptHandler detaches the handler registered at fn.
func RemoveInterruptHandler(level, fn uint32) entities.Status {
	return entities.Status(osRemoveInterruptHandler(level, fn))
}

// ReadPort reads an I/O port.
func ReadPort(port entities.IOAddress, width entities.Width) (uint32, entities.Status) {
	var v uint32
	status := entities.Status(osReadPort(uint32(port), addr(&v), uint32(width)))
	runtime.KeepAlive(&v)
	return v, status
}

// WritePort writes an I/O port.
func WritePort(port entities.IOAddress, value uint32, width entities.Width) entities.Status {
	return entities.Status(osWritePort(uint32(port), value, uint32(width)))
}

// Print writes s to the host console.
func Print(s string) {
	ptr, length := stringPtr(s)
	if length == 0 {
		return
	}
	osPrint(PackPtrLen(ptr, length))
	runtime.KeepAlive(s)
}
