package osl

import (
	"context"
	"io"

	"github.com/reglet-dev/acpica-osl/domain/entities"
	"github.com/reglet-dev/acpica-osl/domain/errors"
	"github.com/reglet-dev/acpica-osl/domain/ports"
)

// Unimplemented fails every operation with ErrNotImplemented. Embed it in
// an implementation to provide only the capabilities a platform has; for
// example a machine without a PCI bus never overrides the PCI methods.
// Infallible operations do nothing and return zero values, except
// GetThreadID which returns 1.
type Unimplemented struct{}

var _ ports.OSServices = Unimplemented{}

func notImplemented(op string) error {
	return errors.Wrap(op, entities.StatusNotImplemented, nil)
}

func (Unimplemented) Initialize(context.Context) error { return notImplemented("initialize") }
func (Unimplemented) Terminate(context.Context) error { return notImplemented("terminate") }

func (Unimplemented) GetRootPointer(context.Context) (entities.PhysicalAddress, error) {
	return 0, notImplemented("get_root_pointer")
}

func (Unimplemented) PredefinedOverride(context.Context, entities.PredefinedName) (string, bool, error) {
	return "", false, notImplemented("predefined_override")
}

func (Unimplemented) TableOverride(context.Context, entities.TableHeader) ([]byte, error) {
	return nil, notImplemented("table_override")
}

func (Unimplemented) PhysicalTableOverride(context.Context, entities.TableHeader) (entities.PhysicalAddress, uint32, error) {
	return 0, 0, notImplemented("physical_table_override")
}

func (Unimplemented) Map(context.Context, entities.PhysicalAddress, entities.Size) (entities.VirtualPointer, error) {
	return entities.NullPointer, notImplemented("map")
}

func (Unimplemented) Unmap(context.Context, entities.VirtualPointer, entities.Size) error {
	return notImplemented("unmap")
}

func (Unimplemented) GetPhysicalAddress(context.Context, entities.VirtualPointer) (entities.PhysicalAddress, error) {
	return 0, notImplemented("get_physical_address")
}

func (Unimplemented) Allocate(context.Context, entities.Size) (entities.VirtualPointer, error) {
	return entities.NullPointer, notImplemented("allocate")
}

func (Unimplemented) Free(context.Context, entities.VirtualPointer) error {
	return notImplemented("free")
}

func (Unimplemented) Readable(context.Context, entities.VirtualPointer, entities.Size) bool {
	return false
}

func (Unimplemented) Writable(context.Context, entities.VirtualPointer, entities.Size) bool {
	return false
}

func (Unimplemented) ReadMemory(context.Context, entities.PhysicalAddress, entities.Width) (uint64, error) {
	return 0, notImplemented("read_memory")
}

func (Unimplemented) WriteMemory(context.Context, entities.PhysicalAddress, uint64, entities.Width) error {
	return notImplemented("write_memory")
}

func (Unimplemented) GetThreadID(context.Context) entities.ThreadID { return 1 }

func (Unimplemented) Execute(context.Context, entities.DeferredTask) error {
	return notImplemented("execute")
}

func (Unimplemented) WaitEventsComplete(context.Context) error {
	return notImplemented("wait_events_complete")
}

func (Unimplemented) Sleep(context.Context, uint64) {}
func (Unimplemented) Stall(context.Context, uint32) {}
func (Unimplemented) GetTimer(context.Context) uint64 { return 0 }

func (Unimplemented) CreateMutex(context.Context) (entities.MutexHandle, error) {
	return 0, notImplemented("create_mutex")
}

func (Unimplemented) DeleteMutex(context.Context, entities.MutexHandle) error {
	return notImplemented("delete_mutex")
}

func (Unimplemented) AcquireMutex(context.Context, entities.MutexHandle, entities.Timeout) error {
	return notImplemented("acquire_mutex")
}

func (Unimplemented) ReleaseMutex(context.Context, entities.MutexHandle) error {
	return notImplemented("release_mutex")
}

func (Unimplemented) CreateSemaphore(context.Context, uint32, uint32) (entities.SemaphoreHandle, error) {
	return 0, notImplemented("create_semaphore")
}

func (Unimplemented) DeleteSemaphore(context.Context, entities.SemaphoreHandle) error {
	return notImplemented("delete_semaphore")
}

func (Unimplemented) WaitSemaphore(context.Context, entities.SemaphoreHandle, uint32, entities.Timeout) error {
	return notImplemented("wait_semaphore")
}

func (Unimplemented) SignalSemaphore(context.Context, entities.SemaphoreHandle, uint32) error {
	return notImplemented("signal_semaphore")
}

func (Unimplemented) CreateLock(context.Context) (entities.SpinlockHandle, error) {
	return 0, notImplemented("create_lock")
}

func (Unimplemented) DeleteLock(context.Context, entities.SpinlockHandle) error {
	return notImplemented("delete_lock")
}

func (Unimplemented) AcquireLock(context.Context, entities.SpinlockHandle) (entities.CPUFlags, error) {
	return 0, notImplemented("acquire_lock")
}

func (Unimplemented) ReleaseLock(context.Context, entities.SpinlockHandle, entities.CPUFlags) error {
	return notImplemented("release_lock")
}

func (Unimplemented) AcquireGlobalLock(context.Context, entities.VirtualPointer) (bool, error) {
	return false, notImplemented("acquire_global_lock")
}

func (Unimplemented) ReleaseGlobalLock(context.Context, entities.VirtualPointer) (bool, error) {
	return false, notImplemented("release_global_lock")
}

func (Unimplemented) InstallInterruptHandler(context.Context, uint32, entities.InterruptHandler, entities.Context) error {
	return notImplemented("install_interrupt_handler")
}

func (Unimplemented) RemoveInterruptHandler(context.Context, uint32, entities.InterruptHandler) error {
	return notImplemented("remove_interrupt_handler")
}

func (Unimplemented) ReadPort(context.Context, entities.IOAddress, entities.Width) (uint32, error) {
	return 0, notImplemented("read_port")
}

func (Unimplemented) WritePort(context.Context, entities.IOAddress, uint32, entities.Width) error {
	return notImplemented("write_port")
}

func (Unimplemented) ReadPCIConfiguration(context.Context, entities.PCIID, uint32, entities.Width) (uint64, error) {
	return 0, notImplemented("read_pci_configuration")
}

func (Unimplemented) WritePCIConfiguration(context.Context, entities.PCIID, uint32, uint64, entities.Width) error {
	return notImplemented("write_pci_configuration")
}

func (Unimplemented) Print(context.Context, string) {}

func (Unimplemented) RedirectOutput(context.Context, io.Writer) error {
	return notImplemented("redirect_output")
}

func (Unimplemented) Signal(context.Context, entities.SignalFunction, entities.SignalInfo) error {
	return notImplemented("signal")
}

func (Unimplemented) EnterSleep(context.Context, entities.SleepState, uint32, uint32) error {
	return notImplemented("enter_sleep")
}

func (Unimplemented) InitializeDebugger(context.Context) error {
	return notImplemented("initialize_debugger")
}

func (Unimplemented) TerminateDebugger(context.Context) error {
	return notImplemented("terminate_debugger")
}

func (Unimplemented) WaitCommandReady(context.Context) error {
	return notImplemented("wait_command_ready")
}

func (Unimplemented) NotifyCommandComplete(context.Context) error {
	return notImplemented("notify_command_complete")
}
