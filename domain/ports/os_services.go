package ports

import (
	"context"
	"io"

	"github.com/reglet-dev/acpica-osl/domain/entities"
)

// OSServices is the complete set of host operations the interpreter may
// invoke. Failures are reported as errors carrying a status (see
// domain/errors); no operation aborts the process.
//
// An integrator may implement any operation as always failing with
// ErrNotImplemented when the capability does not exist on the platform.
type OSServices interface {
	Lifecycle
	TableServices
	MemoryServices
	ThreadServices
	SyncServices
	InterruptServices
	IOServices
	DiagnosticServices
}

// Lifecycle brackets every other operation.
type Lifecycle interface {
	// Initialize performs one-time host setup. It is called exactly once per
	// subsystem bring-up, before any other operation.
	Initialize(ctx context.Context) error

	// Terminate releases host resources acquired since Initialize. It is
	// called exactly once at shutdown and never before Initialize.
	Terminate(ctx context.Context) error
}

// TableServices locates firmware tables and lets the host replace them.
type TableServices interface {
	// GetRootPointer returns the physical address of the RSDP.
	GetRootPointer(ctx context.Context) (entities.PhysicalAddress, error)

	// PredefinedOverride returns a replacement value for a predefined object
	// and true, or false to keep the firmware value.
	PredefinedOverride(ctx context.Context, name entities.PredefinedName) (string, bool, error)

	// TableOverride returns a complete replacement table, or nil to keep
	// the firmware table.
	TableOverride(ctx context.Context, existing entities.TableHeader) ([]byte, error)

	// PhysicalTableOverride returns the physical location and length of a
	// replacement table, or a zero address to keep the firmware table.
	PhysicalTableOverride(ctx context.Context, existing entities.TableHeader) (entities.PhysicalAddress, uint32, error)
}

// MemoryServices maps physical memory and allocates on behalf of the interpreter.
type MemoryServices interface {
	// Map establishes a mapping of a physical range. Duplicate and
	// overlapping mappings are permitted; each is unmapped independently.
	Map(ctx context.Context, addr entities.PhysicalAddress, length entities.Size) (entities.VirtualPointer, error)

	// Unmap releases a mapping with the exact pointer and length Map returned.
	// Passing anything else is undefined.
	Unmap(ctx context.Context, ptr entities.VirtualPointer, length entities.Size) error

	// GetPhysicalAddress translates a mapped pointer back to physical memory.
	GetPhysicalAddress(ctx context.Context, ptr entities.VirtualPointer) (entities.PhysicalAddress, error)

	Allocate(ctx context.Context, size entities.Size) (entities.VirtualPointer, error)
	Free(ctx context.Context, ptr entities.VirtualPointer) error

	// Readable and Writable report whether the whole range is accessible.
	Readable(ctx context.Context, ptr entities.VirtualPointer, length entities.Size) bool
	Writable(ctx context.Context, ptr entities.VirtualPointer, length entities.Size) bool

	ReadMemory(ctx context.Context, addr entities.PhysicalAddress, width entities.Width) (uint64, error)
	WriteMemory(ctx context.Context, addr entities.PhysicalAddress, value uint64, width entities.Width) error
}

// ThreadServices covers execution contexts, deferred work and timing.
type ThreadServices interface {
	// GetThreadID identifies the calling execution context. Never zero.
	GetThreadID(ctx context.Context) entities.ThreadID

	// Execute schedules task on a host worker distinct from the caller.
	// Ordering between tasks is not guaranteed.
	Execute(ctx context.Context, task entities.DeferredTask) error

	// WaitEventsComplete blocks until every task scheduled by Execute has run.
	WaitEventsComplete(ctx context.Context) error

	// Sleep blocks the caller for at least the given time, yielding the host
	// scheduler. It never busy-waits.
	Sleep(ctx context.Context, milliseconds uint64)

	// Stall busy-waits for at least the given time without yielding. Safe in
	// interrupt context.
	Stall(ctx context.Context, microseconds uint32)

	// GetTimer returns a monotonic timestamp in 100ns units.
	GetTimer(ctx context.Context) uint64
}

// SyncServices provides mutexes, counting semaphores, spinlocks and the
// firmware global lock. None of the primitives is reentrant unless the
// implementation documents otherwise.
type SyncServices interface {
	CreateMutex(ctx context.Context) (entities.MutexHandle, error)
	DeleteMutex(ctx context.Context, h entities.MutexHandle) error
	// AcquireMutex fails with ErrTimeout when the mutex cannot be taken in time.
	AcquireMutex(ctx context.Context, h entities.MutexHandle, timeout entities.Timeout) error
	ReleaseMutex(ctx context.Context, h entities.MutexHandle) error

	CreateSemaphore(ctx context.Context, maxUnits, initialUnits uint32) (entities.SemaphoreHandle, error)
	DeleteSemaphore(ctx context.Context, h entities.SemaphoreHandle) error
	// WaitSemaphore fails with ErrTimeout when units never become available
	// in time. DoNotWait polls; WaitForever blocks indefinitely.
	WaitSemaphore(ctx context.Context, h entities.SemaphoreHandle, units uint32, timeout entities.Timeout) error
	SignalSemaphore(ctx context.Context, h entities.SemaphoreHandle, units uint32) error

	CreateLock(ctx context.Context) (entities.SpinlockHandle, error)
	DeleteLock(ctx context.Context, h entities.SpinlockHandle) error
	AcquireLock(ctx context.Context, h entities.SpinlockHandle) (entities.CPUFlags, error)
	ReleaseLock(ctx context.Context, h entities.SpinlockHandle, flags entities.CPUFlags) error

	// AcquireGlobalLock attempts to take the firmware-shared lock whose
	// dword lives at facs. It reports whether the caller now owns the lock;
	// false means the firmware holds it and a release will be signalled.
	AcquireGlobalLock(ctx context.Context, facs entities.VirtualPointer) (bool, error)

	// ReleaseGlobalLock releases the firmware-shared lock and reports
	// whether the firmware is waiting for it.
	ReleaseGlobalLock(ctx context.Context, facs entities.VirtualPointer) (bool, error)
}

// InterruptServices registers interrupt service routines.
type InterruptServices interface {
	// InstallInterruptHandler fails with ErrAlreadyExists when level already
	// has a handler.
	InstallInterruptHandler(ctx context.Context, level uint32, handler entities.InterruptHandler, data entities.Context) error

	// RemoveInterruptHandler fails with ErrNotExist when no registration with
	// a matching handler address exists on level. In-flight invocations are
	// not interrupted.
	RemoveInterruptHandler(ctx context.Context, level uint32, handler entities.InterruptHandler) error
}

// IOServices accesses port-mapped I/O and PCI configuration space.
type IOServices interface {
	ReadPort(ctx context.Context, addr entities.IOAddress, width entities.Width) (uint32, error)
	WritePort(ctx context.Context, addr entities.IOAddress, value uint32, width entities.Width) error
	ReadPCIConfiguration(ctx context.Context, id entities.PCIID, register uint32, width entities.Width) (uint64, error)
	WritePCIConfiguration(ctx context.Context, id entities.PCIID, register uint32, value uint64, width entities.Width) error
}

// DiagnosticServices covers console output, firmware signals, sleep-state
// transitions and the debugger hooks.
type DiagnosticServices interface {
	// Print emits diagnostic text. It must never block indefinitely and is
	// best-effort in interrupt context.
	Print(ctx context.Context, text string)

	// RedirectOutput sends subsequent Print output to w.
	RedirectOutput(ctx context.Context, w io.Writer) error

	Signal(ctx context.Context, function entities.SignalFunction, info entities.SignalInfo) error
	EnterSleep(ctx context.Context, state entities.SleepState, regA, regB uint32) error

	InitializeDebugger(ctx context.Context) error
	TerminateDebugger(ctx context.Context) error
	WaitCommandReady(ctx context.Context) error
	NotifyCommandComplete(ctx context.Context) error
}
