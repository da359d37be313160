//go:build wasip1

package guest

import (
	"unsafe"
)

// allocate reserves memory in linear memory for the host and pins it.
// Panics if the allocation would exceed MaxTotalAllocations.
//
//go:wasmexport allocate
func allocate(size uint32) uint32 {
	if size == 0 {
		return 0
	}
	if err := memory.reserve(size); err != nil {
		panic(err.Error())
	}

	buf := make([]byte, size)
	//nolint:gosec // G103: linear memory addresses are 32-bit offsets
	ptr := uint32(uintptr(unsafe.Pointer(&buf[0])))
	memory.pin(ptr, buf)
	return ptr
}

// deallocate unpins memory handed out by allocate. Untracked pointers are
// ignored.
//
//go:wasmexport deallocate
func deallocate(ptr uint32, _ uint32) {
	memory.unpin(ptr)
}

// oslCallback is the trampoline the host calls to run queued handlers.
//
//go:wasmexport acpi_osl_callback
func oslCallback(fn uint32, context uint32) uint32 {
	return dispatch(fn, context)
}

// addr returns the linear memory offset of p.
func addr[T any](p *T) uint32 {
	//nolint:gosec // G103: linear memory addresses are 32-bit offsets
	return uint32(uintptr(unsafe.Pointer(p)))
}

// stringPtr returns the offset and length of s.
func stringPtr(s string) (uint32, uint32) {
	if len(s) == 0 {
		return 0, 0
	}
	//nolint:gosec // G103: linear memory addresses are 32-bit offsets
	return uint32(uintptr(unsafe.Pointer(unsafe.StringData(s)))), uint32(len(s))
}

// bytesAt copies length bytes from linear memory at ptr.
func bytesAt(ptr, length uint32) []byte {
	if ptr == 0 || length == 0 {
		return nil
	}
	//nolint:gosec // G103: linear memory addresses are 32-bit offsets
	src := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), length)
	out := make([]byte, length)
	copy(out, src)
	return out
}
