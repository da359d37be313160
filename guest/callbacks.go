package guest

import (
	"sync"

	"github.com/reglet-dev/acpica-osl/domain/entities"
)

// Handler is a guest function the host can call back. The return value is
// an entities.InterruptResult for interrupt handlers and ignored otherwise.
type Handler func(context uint32) uint32

// callbacks maps table indices to handlers. Index 0 is never issued; the
// host rejects it as a null function pointer.
var callbacks = struct {
	sync.Mutex
	fns  map[uint32]Handler
	next uint32
}{
	fns:  make(map[uint32]Handler),
	next: 1,
}

// Register adds h to the callback table and returns its index.
func Register(h Handler) uint32 {
	callbacks.Lock()
	defer callbacks.Unlock()

	id := callbacks.next
	for id == 0 || callbacks.fns[id] != nil {
		id++
	}
	callbacks.fns[id] = h
	callbacks.next = id + 1
	return id
}

// RegisterTask registers a deferred procedure.
func RegisterTask(fn func(context uint32)) uint32 {
	return Register(func(context uint32) uint32 {
		fn(context)
		return 0
	})
}

// RegisterInterrupt registers an interrupt service routine.
func RegisterInterrupt(fn func(context uint32) entities.InterruptResult) uint32 {
	return Register(func(context uint32) uint32 {
		return uint32(fn(context))
	})
}

// Unregister removes the handler at id. Unknown indices are ignored.
func Unregister(id uint32) {
	callbacks.Lock()
	defer callbacks.Unlock()
	delete(callbacks.fns, id)
}

// Registered returns the number of handlers in the table.
func Registered() int {
	callbacks.Lock()
	defer callbacks.Unlock()
	return len(callbacks.fns)
}

// dispatch runs the handler at id. Calls to unknown indices report the
// interrupt as not handled.
func dispatch(id, context uint32) uint32 {
	callbacks.Lock()
	h := callbacks.fns[id]
	callbacks.Unlock()

	if h == nil {
		return uint32(entities.InterruptNotHandled)
	}
	return h(context)
}
