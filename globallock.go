package osl

import "sync/atomic"

// Bits of the FACS global lock dword shared with firmware.
const (
	GlobalLockPending uint32 = 1 << 0
	GlobalLockOwned   uint32 = 1 << 1
)

// AcquireGlobalLockValue computes the transition for an acquire attempt on
// a lock dword holding old. The lock is always marked owned; if it was
// already owned the pending bit is set instead of granting it, and the
// caller must wait for the owner's release notification.
func AcquireGlobalLockValue(old uint32) (next uint32, acquired bool) {
	next = (old &^ GlobalLockPending) | GlobalLockOwned
	if old&GlobalLockOwned != 0 {
		next |= GlobalLockPending
	}
	return next, next&GlobalLockPending == 0
}

// ReleaseGlobalLockValue computes the transition for a release of a lock
// dword holding old. It reports whether the other party set the pending bit
// and must be notified.
func ReleaseGlobalLockValue(old uint32) (next uint32, pending bool) {
	return old &^ (GlobalLockPending | GlobalLockOwned), old&GlobalLockPending != 0
}

// AcquireGlobalLockWord applies AcquireGlobalLockValue atomically to word.
func AcquireGlobalLockWord(word *uint32) bool {
	for {
		old := atomic.LoadUint32(word)
		next, acquired := AcquireGlobalLockValue(old)
		if atomic.CompareAndSwapUint32(word, old, next) {
			return acquired
		}
	}
}

// ReleaseGlobalLockWord applies ReleaseGlobalLockValue atomically to word.
func ReleaseGlobalLockWord(word *uint32) bool {
	for {
		old := atomic.LoadUint32(word)
		next, pending := ReleaseGlobalLockValue(old)
		if atomic.CompareAndSwapUint32(word, old, next) {
			return pending
		}
	}
}
