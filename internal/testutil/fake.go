package testutil

import (
	"context"
	"sync"
	"time"

	osl "github.com/reglet-dev/acpica-osl"
	"github.com/reglet-dev/acpica-osl/domain/entities"
	"github.com/reglet-dev/acpica-osl/domain/errors"
)

// Fake is a counting OSServices implementation. It tracks live mappings and
// allocations, keeps semaphores as plain counters and records interrupt
// handlers per level. Operations it does not override fail with
// ErrNotImplemented.
type Fake struct {
	osl.Unimplemented

	mu         sync.Mutex
	calls      map[string]int
	live       map[entities.VirtualPointer]entities.Size
	next       entities.VirtualPointer
	semaphores map[entities.SemaphoreHandle]*fakeSemaphore
	handlers   map[uint32]entities.Callback
	nextHandle uint64
}

type fakeSemaphore struct {
	max   uint32
	count uint32
}

// NewFake returns an empty fake.
func NewFake() *Fake {
	return &Fake{
		calls:      make(map[string]int),
		live:       make(map[entities.VirtualPointer]entities.Size),
		next:       0x1000_0000,
		semaphores: make(map[entities.SemaphoreHandle]*fakeSemaphore),
		handlers:   make(map[uint32]entities.Callback),
	}
}

// Calls returns how often op was invoked.
func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Outstanding returns the number of mappings and allocations not yet released.
func (f *Fake) Outstanding() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.live)
}

func (f *Fake) record(op string) {
	f.calls[op]++
}

func (f *Fake) Initialize(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("initialize")
	return nil
}

func (f *Fake) Terminate(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("terminate")
	return nil
}

func (f *Fake) Map(_ context.Context, _ entities.PhysicalAddress, length entities.Size) (entities.VirtualPointer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("map")
	return f.reserve("map", length)
}

func (f *Fake) Unmap(_ context.Context, ptr entities.VirtualPointer, length entities.Size) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("unmap")
	if got, ok := f.live[ptr]; !ok || got != length {
		return errors.New("unmap", entities.StatusBadParameter)
	}
	delete(f.live, ptr)
	return nil
}

func (f *Fake) Allocate(_ context.Context, size entities.Size) (entities.VirtualPointer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("allocate")
	return f.reserve("allocate", size)
}

func (f *Fake) Free(_ context.Context, ptr entities.VirtualPointer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("free")
	if _, ok := f.live[ptr]; !ok {
		return errors.New("free", entities.StatusBadParameter)
	}
	delete(f.live, ptr)
	return nil
}

func (f *Fake) reserve(op string, length entities.Size) (entities.VirtualPointer, error) {
	if length == 0 {
		return entities.NullPointer, errors.New(op, entities.StatusBadParameter)
	}
	ptr := f.next
	f.next += entities.VirtualPointer((length + 0xfff) &^ 0xfff)
	f.live[ptr] = length
	return ptr, nil
}

func (f *Fake) CreateSemaphore(_ context.Context, maxUnits, initialUnits uint32) (entities.SemaphoreHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("create_semaphore")
	if maxUnits == 0 || initialUnits > maxUnits {
		return 0, errors.New("create_semaphore", entities.StatusBadParameter)
	}
	f.nextHandle++
	h := entities.SemaphoreHandle(f.nextHandle)
	f.semaphores[h] = &fakeSemaphore{max: maxUnits, count: initialUnits}
	return h, nil
}

func (f *Fake) DeleteSemaphore(_ context.Context, h entities.SemaphoreHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("delete_semaphore")
	if _, ok := f.semaphores[h]; !ok {
		return errors.New("delete_semaphore", entities.StatusBadParameter)
	}
	delete(f.semaphores, h)
	return nil
}

// WaitSemaphore polls until units are available, the timeout elapses or
// ctx is done.
func (f *Fake) WaitSemaphore(ctx context.Context, h entities.SemaphoreHandle, units uint32, timeout entities.Timeout) error {
	var deadline <-chan time.Time
	if !timeout.IsInfinite() {
		timer := time.NewTimer(timeout.Duration())
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		taken, err := f.tryTake(h, units)
		if err != nil || taken {
			return err
		}
		if timeout.IsImmediate() {
			return errors.New("wait_semaphore", entities.StatusTime)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return errors.New("wait_semaphore", entities.StatusTime)
		case <-time.After(time.Millisecond):
		}
	}
}

func (f *Fake) tryTake(h entities.SemaphoreHandle, units uint32) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("wait_semaphore")
	s, ok := f.semaphores[h]
	if !ok {
		return false, errors.New("wait_semaphore", entities.StatusBadParameter)
	}
	if s.count < units {
		return false, nil
	}
	s.count -= units
	return true, nil
}

func (f *Fake) SignalSemaphore(_ context.Context, h entities.SemaphoreHandle, units uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("signal_semaphore")
	s, ok := f.semaphores[h]
	if !ok {
		return errors.New("signal_semaphore", entities.StatusBadParameter)
	}
	if s.count+units > s.max {
		return errors.New("signal_semaphore", entities.StatusLimit)
	}
	s.count += units
	return nil
}

func (f *Fake) InstallInterruptHandler(_ context.Context, level uint32, handler entities.InterruptHandler, _ entities.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("install_interrupt_handler")
	if _, ok := f.handlers[level]; ok {
		return errors.New("install_interrupt_handler", entities.StatusAlreadyExists)
	}
	f.handlers[level] = handler.Address
	return nil
}

func (f *Fake) RemoveInterruptHandler(_ context.Context, level uint32, handler entities.InterruptHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("remove_interrupt_handler")
	if addr, ok := f.handlers[level]; !ok || addr != handler.Address {
		return errors.New("remove_interrupt_handler", entities.StatusNotExist)
	}
	delete(f.handlers, level)
	return nil
}
