package guest

import (
	"fmt"
	"sync"
)

// MaxTotalAllocations is the most memory the host may hold through
// allocate at once.
const MaxTotalAllocations = 64 * 1024 * 1024 // 64 MB

// pins keeps host-requested buffers reachable so the Go GC does not
// collect memory the host still addresses by offset.
type pins struct {
	mu    sync.Mutex
	bufs  map[uint32][]byte
	total int
	limit int
}

func newPins(limit int) *pins {
	return &pins{bufs: make(map[uint32][]byte), limit: limit}
}

// reserve checks a new allocation of size against the limit.
func (p *pins) reserve(size uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.total+int(size) > p.limit {
		return fmt.Errorf("guest: allocation limit exceeded (requested: %d bytes, current: %d bytes, limit: %d bytes)",
			size, p.total, p.limit)
	}
	return nil
}

func (p *pins) pin(ptr uint32, buf []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bufs[ptr] = buf
	p.total += len(buf)
}

// unpin releases ptr and returns the size it held. The stored length is
// used, not the caller's, so mismatched sizes cannot corrupt the total.
func (p *pins) unpin(ptr uint32) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	buf, ok := p.bufs[ptr]
	if !ok {
		return 0
	}
	delete(p.bufs, ptr)
	p.total -= len(buf)
	if p.total < 0 {
		p.total = 0
	}
	return len(buf)
}

func (p *pins) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.bufs)
	p.total = 0
}

func (p *pins) allocated() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total
}

var memory = newPins(MaxTotalAllocations)

// Allocated returns the bytes currently pinned for the host.
func Allocated() int {
	return memory.allocated()
}

// FreeAll drops every pinned buffer. Call it once the host can no longer
// reference them, typically on shutdown.
func FreeAll() {
	memory.reset()
}

// PackPtrLen packs a pointer and length into a single uint64.
// Pointer is stored in the high 32 bits, length in the low 32 bits.
// Panics if ptr is 0 and length > 0, indicating an invalid state.
func PackPtrLen(ptr, length uint32) uint64 {
	if ptr == 0 && length > 0 {
		panic(fmt.Sprintf("guest: invalid pack - null pointer (0x0) with non-zero length (%d)", length))
	}
	return (uint64(ptr) << 32) | uint64(length)
}

// UnpackPtrLen unpacks a uint64 into its original pointer and length.
// Panics if ptr is 0 and length > 0, indicating an invalid packed value.
func UnpackPtrLen(packed uint64) (ptr, length uint32) {
	ptr = uint32(packed >> 32)
	length = uint32(packed)
	if ptr == 0 && length > 0 {
		panic(fmt.Sprintf("guest: invalid unpack - null pointer (0x0) with non-zero length (%d)", length))
	}
	return ptr, length
}
