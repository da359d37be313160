package entities

import (
	"fmt"
	"time"
)

// ABI mapping between interpreter-native types and the types used by this
// module. The wasm32 column is the value type used by the WebAssembly host
// module; pointers and sizes are 32 bits wide there, physical addresses are
// always 64 bits.
//
//	Interpreter type        Go type            wasm32
//	----------------        -------            ------
//	ACPI_STATUS             Status             i32
//	ACPI_PHYSICAL_ADDRESS   PhysicalAddress    i64
//	void * (logical)        VirtualPointer     i32
//	ACPI_SIZE               Size               i32
//	ACPI_IO_ADDRESS         IOAddress          i32
//	ACPI_MUTEX              MutexHandle        i32
//	ACPI_SEMAPHORE          SemaphoreHandle    i32
//	ACPI_SPINLOCK           SpinlockHandle     i32
//	ACPI_THREAD_ID          ThreadID           i64
//	ACPI_CPU_FLAGS          CPUFlags           i64
//	UINT16 timeout          Timeout            i32
//	UINT32 bit width        Width              i32
//	ACPI_PCI_ID *           PCIID              i32 (pointer)
//	ACPI_OSD_HANDLER        Callback           i32 (table index)
//	ACPI_OSD_EXEC_CALLBACK  Callback           i32 (table index)
//	void * context          Context            i32
//	ACPI_EXECUTE_TYPE       ExecuteType        i32

// PhysicalAddress is a hardware-addressable memory location.
type PhysicalAddress uint64

// VirtualPointer is a host-accessible address produced by Map or Allocate.
// It is opaque to this module; it is never dereferenced directly.
type VirtualPointer uint64

// NullPointer is the zero VirtualPointer returned on failure.
const NullPointer VirtualPointer = 0

// Size is a byte count (ACPI_SIZE).
type Size uint64

// IOAddress is a legacy port-mapped I/O address.
type IOAddress uint64

// MutexHandle identifies a mutex created by CreateMutex.
type MutexHandle uint64

// SemaphoreHandle identifies a semaphore created by CreateSemaphore.
type SemaphoreHandle uint64

// SpinlockHandle identifies a spinlock created by CreateLock.
type SpinlockHandle uint64

// ThreadID identifies an execution context. Zero is reserved by the
// interpreter and never returned.
type ThreadID uint64

// CPUFlags is the interrupt state saved by AcquireLock and restored by
// ReleaseLock.
type CPUFlags uint64

// Timeout is a wait limit in milliseconds.
type Timeout uint16

const (
	// DoNotWait performs a non-blocking poll.
	DoNotWait Timeout = 0
	// WaitForever blocks until the resource becomes available.
	WaitForever Timeout = 0xFFFF
)

// IsInfinite reports whether the timeout never expires.
func (t Timeout) IsInfinite() bool { return t == WaitForever }

// IsImmediate reports whether the timeout is a non-blocking poll.
func (t Timeout) IsImmediate() bool { return t == DoNotWait }

// Duration converts the timeout to a time.Duration. WaitForever has no
// duration and returns zero; check IsInfinite first.
func (t Timeout) Duration() time.Duration {
	if t.IsInfinite() {
		return 0
	}
	return time.Duration(t) * time.Millisecond
}

// Width is an access width in bits.
type Width uint32

// Access widths accepted by memory, port and PCI operations.
const (
	Width8  Width = 8
	Width16 Width = 16
	Width32 Width = 32
	Width64 Width = 64
)

// Valid reports whether w is one of the supported widths and does not exceed max.
func (w Width) Valid(max Width) bool {
	switch w {
	case Width8, Width16, Width32, Width64:
		return w <= max
	default:
		return false
	}
}

// Bytes returns the width in bytes.
func (w Width) Bytes() int {
	return int(w) / 8
}

// Mask returns a mask covering the low w bits.
func (w Width) Mask() uint64 {
	if w >= Width64 {
		return ^uint64(0)
	}
	return (uint64(1) << w) - 1
}

// PCIID addresses a PCI function's configuration space.
type PCIID struct {
	Segment  uint16 `json:"segment" yaml:"segment"`
	Bus      uint16 `json:"bus" yaml:"bus"`
	Device   uint16 `json:"device" yaml:"device"`
	Function uint16 `json:"function" yaml:"function"`
}

// String formats the id as segment:bus:device.function.
func (id PCIID) String() string {
	return fmt.Sprintf("%04x:%02x:%02x.%x", id.Segment, id.Bus, id.Device, id.Function)
}

// SleepState is a system sleep state (S0 through S5).
type SleepState uint8

// System sleep states.
const (
	SleepS0 SleepState = iota
	SleepS1
	SleepS2
	SleepS3
	SleepS4
	SleepS5
)
