package entities

import "context"

// Callback is the opaque address of an interpreter function handed to the
// host. Two registrations refer to the same function when their addresses
// are equal.
type Callback uint64

// Context is the opaque context pointer passed back to a callback.
type Context uint64

// InterruptResult is returned by an interrupt service routine.
type InterruptResult uint32

const (
	InterruptNotHandled InterruptResult = 0
	InterruptHandled    InterruptResult = 1
)

// InterruptHandler is an interrupt service routine registered by the
// interpreter. Service runs in interrupt context: it must not block,
// allocate, or call any operation that may block.
type InterruptHandler struct {
	// Address identifies the routine for removal.
	Address Callback

	// Service is invoked by the host when the interrupt fires.
	Service func(ctx context.Context, data Context) InterruptResult
}

// ExecuteType classifies deferred work (ACPI_EXECUTE_TYPE).
type ExecuteType uint32

const (
	ExecuteGlobalLockHandler ExecuteType = iota
	ExecuteNotifyHandler
	ExecuteGPEHandler
	ExecuteDebugger
	ExecuteEmbeddedController
	ExecuteDeferredPorts
)

var executeTypeNames = [...]string{
	"global_lock_handler",
	"notify_handler",
	"gpe_handler",
	"debugger",
	"embedded_controller",
	"deferred_ports",
}

// String returns a stable lowercase name for the execute type.
func (t ExecuteType) String() string {
	if int(t) < len(executeTypeNames) {
		return executeTypeNames[t]
	}
	return "unknown"
}

// DeferredTask is work submitted for asynchronous execution on a host worker.
type DeferredTask struct {
	Type    ExecuteType
	Address Callback
	Context Context

	// Run performs the work. It is called exactly once on a context distinct
	// from the submitter's.
	Run func(ctx context.Context, data Context)
}
