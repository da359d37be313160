package wazero

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"

	osl "github.com/reglet-dev/acpica-osl"
	"github.com/reglet-dev/acpica-osl/domain/entities"
)

// pendingCall is a guest function waiting to run on the guest's goroutine.
type pendingCall struct {
	fn     entities.Callback
	data   entities.Context
	thread entities.ThreadID

	interrupt bool
	level     uint32
}

func (g *guest) enqueue(c pendingCall) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queue = append(g.queue, c)
}

func (g *guest) pop() (pendingCall, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.queue) == 0 {
		return pendingCall{}, false
	}
	c := g.queue[0]
	g.queue[0] = pendingCall{}
	g.queue = g.queue[1:]
	return c, true
}

func (g *guest) pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.queue)
}

// Pending returns the number of callbacks queued for mod.
func (d *Dispatcher) Pending(ctx context.Context, mod api.Module) int {
	return d.guest(ctx, mod).pending()
}

// Drain runs the callbacks queued for mod on the calling goroutine, which
// must be the only one executing mod. Callbacks queued while draining run
// too. It returns how many ran.
func (d *Dispatcher) Drain(ctx context.Context, mod api.Module) (int, error) {
	g := d.guest(ctx, mod)
	if g.pending() == 0 {
		return 0, nil
	}
	trampoline := mod.ExportedFunction(CallbackExport)
	if trampoline == nil {
		return 0, fmt.Errorf("wazero: guest module %q missing %q export", g.name, CallbackExport)
	}

	n := 0
	for {
		c, ok := g.pop()
		if !ok {
			return n, nil
		}

		callCtx := ctx
		if c.thread != 0 {
			callCtx = osl.WithThreadID(callCtx, c.thread)
		}
		if c.interrupt {
			callCtx = osl.WithInterruptContext(callCtx, c.level)
		}

		results, err := trampoline.Call(callCtx, uint64(uint32(c.fn)), uint64(uint32(c.data))) //nolint:gosec // G115: table indices and contexts are 32-bit in wasm32
		if err != nil {
			return n, fmt.Errorf("wazero: callback %#x: %w", uint64(c.fn), err)
		}
		n++

		if c.interrupt && len(results) > 0 && entities.InterruptResult(api.DecodeU32(results[0])) == entities.InterruptNotHandled {
			d.cfg.Logger.DebugContext(ctx, "wazero: interrupt not handled by guest", "level", c.level, "handler", uint64(c.fn))
		}
	}
}

// yield drains queued callbacks from inside a host function.
func (d *Dispatcher) yield(ctx context.Context, mod api.Module) int {
	n, err := d.Drain(ctx, mod)
	if err != nil {
		d.cfg.Logger.ErrorContext(ctx, "wazero: running queued callbacks failed", "error", err)
	}
	return n
}

// deferredTask queues the guest function for the next yield point. The
// worker running it only enqueues, so WaitEventsComplete on the host side
// never waits for the guest.
func deferredTask(g *guest, typ entities.ExecuteType, fn entities.Callback, data entities.Context) entities.DeferredTask {
	return entities.DeferredTask{
		Type:    typ,
		Address: fn,
		Context: data,
		Run: func(ctx context.Context, arg entities.Context) {
			thread, _ := osl.ThreadIDFrom(ctx)
			g.enqueue(pendingCall{fn: fn, data: arg, thread: thread})
		},
	}
}

// interruptHandler queues the guest service routine for the next yield
// point and reports the interrupt as handled.
func interruptHandler(g *guest, level uint32, fn entities.Callback) entities.InterruptHandler {
	return entities.InterruptHandler{
		Address: fn,
		Service: func(ctx context.Context, arg entities.Context) entities.InterruptResult {
			l, ok := osl.InterruptLevel(ctx)
			if !ok {
				l = level
			}
			g.enqueue(pendingCall{fn: fn, data: arg, interrupt: true, level: l})
			return entities.InterruptHandled
		},
	}
}
