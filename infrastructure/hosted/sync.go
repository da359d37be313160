package hosted

import (
	"context"
	stderrors "errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/reglet-dev/acpica-osl/domain/entities"
	"github.com/reglet-dev/acpica-osl/domain/errors"
)

// spinsBeforeYield bounds busy-waiting on a contended spinlock.
const spinsBeforeYield = 64

// interruptsEnabled is the IF bit of the saved flags returned by AcquireLock.
const interruptsEnabled entities.CPUFlags = 1 << 9

type mutex struct {
	sem  *semaphore.Weighted
	held atomic.Bool
}

type countingSemaphore struct {
	sem *semaphore.Weighted
	max uint32

	mu   sync.Mutex
	held uint32 // units not currently available
}

type spinlock struct {
	state atomic.Uint32
}

type syncTable struct {
	next atomic.Uint64

	mu         sync.RWMutex
	mutexes    map[entities.MutexHandle]*mutex
	semaphores map[entities.SemaphoreHandle]*countingSemaphore
	spinlocks  map[entities.SpinlockHandle]*spinlock
}

func newSyncTable() *syncTable {
	return &syncTable{
		mutexes:    make(map[entities.MutexHandle]*mutex),
		semaphores: make(map[entities.SemaphoreHandle]*countingSemaphore),
		spinlocks:  make(map[entities.SpinlockHandle]*spinlock),
	}
}

func (t *syncTable) handle() uint64 {
	return t.next.Add(1)
}

func (t *syncTable) counts() (mutexes, semaphores, spinlocks int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.mutexes), len(t.semaphores), len(t.spinlocks)
}

// acquire takes n units of sem within timeout. ctx cancellation ends an
// unbounded wait early.
func acquire(ctx context.Context, sem *semaphore.Weighted, n int64, timeout entities.Timeout) error {
	if timeout.IsImmediate() {
		if !sem.TryAcquire(n) {
			return context.DeadlineExceeded
		}
		return nil
	}
	if !timeout.IsInfinite() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout.Duration())
		defer cancel()
	}
	return sem.Acquire(ctx, n)
}

func (s *Services) waitFailed(op string, err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		s.metrics.SemaphoreTimeouts.Inc()
		return errors.Wrap(op, entities.StatusTime, err)
	}
	return errors.Wrap(op, entities.StatusError, err)
}

func (s *Services) CreateMutex(context.Context) (entities.MutexHandle, error) {
	t := s.sync
	h := entities.MutexHandle(t.handle())
	t.mu.Lock()
	t.mutexes[h] = &mutex{sem: semaphore.NewWeighted(1)}
	t.mu.Unlock()
	return h, nil
}

func (s *Services) lookupMutex(op string, h entities.MutexHandle) (*mutex, error) {
	s.sync.mu.RLock()
	m, ok := s.sync.mutexes[h]
	s.sync.mu.RUnlock()
	if !ok {
		return nil, errors.Wrap(op, entities.StatusBadParameter, fmt.Errorf("unknown mutex %d", h))
	}
	return m, nil
}

func (s *Services) DeleteMutex(_ context.Context, h entities.MutexHandle) error {
	t := s.sync
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.mutexes[h]; !ok {
		return errors.Wrap("delete_mutex", entities.StatusBadParameter, fmt.Errorf("unknown mutex %d", h))
	}
	delete(t.mutexes, h)
	return nil
}

func (s *Services) AcquireMutex(ctx context.Context, h entities.MutexHandle, timeout entities.Timeout) error {
	m, err := s.lookupMutex("acquire_mutex", h)
	if err != nil {
		return err
	}
	if err := acquire(ctx, m.sem, 1, timeout); err != nil {
		return s.waitFailed("acquire_mutex", err)
	}
	m.held.Store(true)
	return nil
}

// ReleaseMutex fails with ErrNotAcquired when the mutex is not held.
func (s *Services) ReleaseMutex(_ context.Context, h entities.MutexHandle) error {
	m, err := s.lookupMutex("release_mutex", h)
	if err != nil {
		return err
	}
	if !m.held.CompareAndSwap(true, false) {
		return errors.New("release_mutex", entities.StatusNotAcquired)
	}
	m.sem.Release(1)
	return nil
}

func (s *Services) CreateSemaphore(_ context.Context, maxUnits, initialUnits uint32) (entities.SemaphoreHandle, error) {
	if maxUnits == 0 || initialUnits > maxUnits {
		return 0, errors.Wrap("create_semaphore", entities.StatusBadParameter,
			fmt.Errorf("initial %d, max %d", initialUnits, maxUnits))
	}
	cs := &countingSemaphore{
		sem:  semaphore.NewWeighted(int64(maxUnits)),
		max:  maxUnits,
		held: maxUnits - initialUnits,
	}
	if cs.held > 0 {
		// Cannot fail: the semaphore is fresh.
		_ = cs.sem.TryAcquire(int64(cs.held))
	}

	t := s.sync
	h := entities.SemaphoreHandle(t.handle())
	t.mu.Lock()
	t.semaphores[h] = cs
	t.mu.Unlock()
	return h, nil
}

func (s *Services) lookupSemaphore(op string, h entities.SemaphoreHandle) (*countingSemaphore, error) {
	s.sync.mu.RLock()
	cs, ok := s.sync.semaphores[h]
	s.sync.mu.RUnlock()
	if !ok {
		return nil, errors.Wrap(op, entities.StatusBadParameter, fmt.Errorf("unknown semaphore %d", h))
	}
	return cs, nil
}

func (s *Services) DeleteSemaphore(_ context.Context, h entities.SemaphoreHandle) error {
	t := s.sync
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.semaphores[h]; !ok {
		return errors.Wrap("delete_semaphore", entities.StatusBadParameter, fmt.Errorf("unknown semaphore %d", h))
	}
	delete(t.semaphores, h)
	return nil
}

func (s *Services) WaitSemaphore(ctx context.Context, h entities.SemaphoreHandle, units uint32, timeout entities.Timeout) error {
	cs, err := s.lookupSemaphore("wait_semaphore", h)
	if err != nil {
		return err
	}
	if units == 0 || units > cs.max {
		return errors.Wrap("wait_semaphore", entities.StatusBadParameter, fmt.Errorf("%d units, max %d", units, cs.max))
	}
	if err := acquire(ctx, cs.sem, int64(units), timeout); err != nil {
		return s.waitFailed("wait_semaphore", err)
	}
	cs.mu.Lock()
	cs.held += units
	cs.mu.Unlock()
	return nil
}

// SignalSemaphore fails with ErrLimit when units would raise the count
// above the maximum given at creation.
func (s *Services) SignalSemaphore(_ context.Context, h entities.SemaphoreHandle, units uint32) error {
	cs, err := s.lookupSemaphore("signal_semaphore", h)
	if err != nil {
		return err
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if units > cs.held {
		return errors.Wrap("signal_semaphore", entities.StatusLimit,
			fmt.Errorf("%d units would exceed max %d", units, cs.max))
	}
	cs.held -= units
	cs.sem.Release(int64(units))
	return nil
}

func (s *Services) CreateLock(context.Context) (entities.SpinlockHandle, error) {
	t := s.sync
	h := entities.SpinlockHandle(t.handle())
	t.mu.Lock()
	t.spinlocks[h] = &spinlock{}
	t.mu.Unlock()
	return h, nil
}

func (s *Services) lookupLock(op string, h entities.SpinlockHandle) (*spinlock, error) {
	s.sync.mu.RLock()
	l, ok := s.sync.spinlocks[h]
	s.sync.mu.RUnlock()
	if !ok {
		return nil, errors.Wrap(op, entities.StatusBadParameter, fmt.Errorf("unknown spinlock %d", h))
	}
	return l, nil
}

func (s *Services) DeleteLock(_ context.Context, h entities.SpinlockHandle) error {
	t := s.sync
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.spinlocks[h]; !ok {
		return errors.Wrap("delete_lock", entities.StatusBadParameter, fmt.Errorf("unknown spinlock %d", h))
	}
	delete(t.spinlocks, h)
	return nil
}

// AcquireLock spins on the lock word, yielding the scheduler after a
// bounded number of attempts. It never sleeps.
func (s *Services) AcquireLock(_ context.Context, h entities.SpinlockHandle) (entities.CPUFlags, error) {
	l, err := s.lookupLock("acquire_lock", h)
	if err != nil {
		return 0, err
	}
	for attempt := 1; !l.state.CompareAndSwap(0, 1); attempt++ {
		if attempt%spinsBeforeYield == 0 {
			runtime.Gosched()
		}
	}
	return interruptsEnabled, nil
}

func (s *Services) ReleaseLock(_ context.Context, h entities.SpinlockHandle, _ entities.CPUFlags) error {
	l, err := s.lookupLock("release_lock", h)
	if err != nil {
		return err
	}
	if !l.state.CompareAndSwap(1, 0) {
		return errors.New("release_lock", entities.StatusNotAcquired)
	}
	return nil
}
