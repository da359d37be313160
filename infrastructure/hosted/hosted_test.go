package hosted

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	osl "github.com/reglet-dev/acpica-osl"
	"github.com/reglet-dev/acpica-osl/domain/entities"
	"github.com/reglet-dev/acpica-osl/domain/errors"
	"github.com/reglet-dev/acpica-osl/infrastructure/config"
	"github.com/reglet-dev/acpica-osl/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMachine(t *testing.T, mutate ...func(*config.Machine)) *Services {
	t.Helper()
	cfg := config.Default()
	cfg.Memory.PhysicalSize = 2 << 20
	cfg.Console.Output = "discard"
	for _, fn := range mutate {
		fn(&cfg)
	}
	s, err := New(cfg, WithLogger(quietLogger()))
	require.NoError(t, err)
	return s
}

func started(t *testing.T, mutate ...func(*config.Machine)) *Services {
	t.Helper()
	s := newMachine(t, mutate...)
	require.NoError(t, s.Initialize(context.Background()))
	t.Cleanup(func() {
		_ = s.Terminate(context.Background())
	})
	return s
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Workers.Count = 0
	_, err := New(cfg)
	testutil.AssertErrorStatus(t, entities.StatusBadParameter, err)
}

func TestLifecycle(t *testing.T) {
	s := newMachine(t)
	ctx := context.Background()

	testutil.AssertErrorStatus(t, entities.StatusError, s.Terminate(ctx))
	require.NoError(t, s.Initialize(ctx))
	testutil.AssertErrorStatus(t, entities.StatusAlreadyExists, s.Initialize(ctx))
	require.NoError(t, s.Terminate(ctx))
	testutil.AssertErrorStatus(t, entities.StatusError, s.Terminate(ctx))
}

func TestMapUnmap(t *testing.T) {
	s := started(t)
	ctx := context.Background()

	ptr, err := s.Map(ctx, 0x1234, 0x100)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, uint64(ptr), uint64(VirtualBase))
	assert.Equal(t, uint64(0x234), uint64(ptr)&pageMask)

	phys, err := s.GetPhysicalAddress(ctx, ptr+0x10)
	require.NoError(t, err)
	assert.Equal(t, entities.PhysicalAddress(0x1244), phys)

	// Overlapping mappings are independent.
	again, err := s.Map(ctx, 0x1200, 0x100)
	require.NoError(t, err)
	assert.NotEqual(t, ptr, again)
	assert.Equal(t, 2, s.Stats().Mappings)

	testutil.AssertErrorStatus(t, entities.StatusBadParameter, s.Unmap(ctx, ptr, 0x80))
	require.NoError(t, s.Unmap(ctx, ptr, 0x100))
	require.NoError(t, s.Unmap(ctx, again, 0x100))
	assert.Equal(t, 0, s.Stats().Mappings)

	_, err = s.GetPhysicalAddress(ctx, ptr)
	testutil.AssertErrorStatus(t, entities.StatusNotExist, err)
}

func TestGetPhysicalAddress_RegionEnd(t *testing.T) {
	s := started(t)
	ctx := context.Background()

	ptr, err := s.Map(ctx, 0x2000, 0x100)
	require.NoError(t, err)

	phys, err := s.GetPhysicalAddress(ctx, ptr+0xff)
	require.NoError(t, err)
	assert.Equal(t, entities.PhysicalAddress(0x20ff), phys)

	_, err = s.GetPhysicalAddress(ctx, ptr+0x100)
	testutil.AssertErrorStatus(t, entities.StatusNotExist, err)
	assert.False(t, s.Readable(ctx, ptr+0x100, 0))
	assert.True(t, s.Readable(ctx, ptr, 0x100))
}

func TestMap_Errors(t *testing.T) {
	s := started(t)
	ctx := context.Background()

	_, err := s.Map(ctx, 0x1000, 0)
	testutil.AssertErrorStatus(t, entities.StatusBadParameter, err)

	_, err = s.Map(ctx, 2<<20, 1)
	testutil.AssertErrorStatus(t, entities.StatusNoMemory, err)

	_, err = s.Map(ctx, ^entities.PhysicalAddress(0), 2)
	testutil.AssertErrorStatus(t, entities.StatusNoMemory, err)
}

func TestMappedMemoryAliasesPhysical(t *testing.T) {
	s := started(t)
	ctx := context.Background()

	require.NoError(t, s.WriteMemory(ctx, 0x2000, 0x1122334455667788, entities.Width64))
	v, err := s.ReadMemory(ctx, 0x2002, entities.Width16)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x5566), v)

	ptr, err := s.Map(ctx, 0x2000, 8)
	require.NoError(t, err)
	buf := make([]byte, 8)
	require.NoError(t, s.ReadVirtual(ptr, buf))
	assert.Equal(t, []byte{0x88, 0x77, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11}, buf)

	require.NoError(t, s.WriteVirtual(ptr, []byte{0xaa}))
	v, err = s.ReadMemory(ctx, 0x2000, entities.Width8)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xaa), v)

	assert.True(t, s.Readable(ctx, ptr, 8))
	assert.False(t, s.Readable(ctx, ptr, 9))
	assert.True(t, s.Writable(ctx, ptr+4, 4))
	require.NoError(t, s.Unmap(ctx, ptr, 8))
	assert.False(t, s.Readable(ctx, ptr, 1))

	_, err = s.ReadMemory(ctx, 2<<20, entities.Width8)
	testutil.AssertErrorStatus(t, entities.StatusBadParameter, err)
}

func TestAllocateFree(t *testing.T) {
	s := started(t, func(m *config.Machine) { m.Memory.MaxAllocation = 4096 })
	ctx := context.Background()

	ptr, err := s.Allocate(ctx, 64)
	require.NoError(t, err)
	require.NoError(t, s.WriteVirtual(ptr, []byte("hello")))
	buf := make([]byte, 5)
	require.NoError(t, s.ReadVirtual(ptr, buf))
	assert.Equal(t, "hello", string(buf))

	_, err = s.GetPhysicalAddress(ctx, ptr)
	testutil.AssertErrorStatus(t, entities.StatusNotExist, err)

	_, err = s.Allocate(ctx, 8192)
	testutil.AssertErrorStatus(t, entities.StatusNoMemory, err)
	_, err = s.Allocate(ctx, 0)
	testutil.AssertErrorStatus(t, entities.StatusBadParameter, err)

	assert.Equal(t, 1, s.Stats().Allocations)
	require.NoError(t, s.Free(ctx, ptr))
	testutil.AssertErrorStatus(t, entities.StatusBadParameter, s.Free(ctx, ptr))
	assert.Equal(t, 0, s.Stats().Allocations)

	assert.Equal(t, float64(0), promtest.ToFloat64(s.Metrics().Regions.WithLabelValues("allocation")))
	assert.Equal(t, float64(1), promtest.ToFloat64(s.Metrics().RegionOps.WithLabelValues("free", "AE_OK")))
}

func TestAllocate_UnlimitedCapsAtPhysicalSize(t *testing.T) {
	s := started(t, func(m *config.Machine) {
		m.Memory.PhysicalSize = 1 << 20
		m.Memory.MaxAllocation = 0
	})
	ctx := context.Background()

	ptr, err := s.Allocate(ctx, 1<<20)
	require.NoError(t, err)
	require.NoError(t, s.Free(ctx, ptr))

	_, err = s.Allocate(ctx, 1<<40)
	testutil.AssertErrorStatus(t, entities.StatusNoMemory, err)
}

func TestFree_RejectsMapping(t *testing.T) {
	s := started(t)
	ctx := context.Background()

	ptr, err := s.Map(ctx, 0, 16)
	require.NoError(t, err)
	testutil.AssertErrorStatus(t, entities.StatusBadParameter, s.Free(ctx, ptr))
	require.NoError(t, s.Unmap(ctx, ptr, 16))
}

func TestGlobalLock(t *testing.T) {
	s := started(t)
	ctx := context.Background()

	facs, err := s.Map(ctx, 0x3000, 64)
	require.NoError(t, err)
	lock := facs + 16

	acquired, err := s.AcquireGlobalLock(ctx, lock)
	require.NoError(t, err)
	assert.True(t, acquired)

	acquired, err = s.AcquireGlobalLock(ctx, lock)
	require.NoError(t, err)
	assert.False(t, acquired)

	word, err := s.ReadMemory(ctx, 0x3010, entities.Width32)
	require.NoError(t, err)
	assert.Equal(t, uint64(osl.GlobalLockOwned|osl.GlobalLockPending), word)

	pending, err := s.ReleaseGlobalLock(ctx, lock)
	require.NoError(t, err)
	assert.True(t, pending)

	_, err = s.AcquireGlobalLock(ctx, lock+1)
	testutil.AssertErrorStatus(t, entities.StatusBadParameter, err)
}

func TestMutex(t *testing.T) {
	s := started(t)
	ctx := context.Background()

	h, err := s.CreateMutex(ctx)
	require.NoError(t, err)

	require.NoError(t, s.AcquireMutex(ctx, h, entities.WaitForever))
	testutil.AssertErrorStatus(t, entities.StatusTime, s.AcquireMutex(ctx, h, entities.DoNotWait))

	start := time.Now()
	testutil.AssertErrorStatus(t, entities.StatusTime, s.AcquireMutex(ctx, h, 20))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	require.NoError(t, s.ReleaseMutex(ctx, h))
	testutil.AssertErrorStatus(t, entities.StatusNotAcquired, s.ReleaseMutex(ctx, h))
	require.NoError(t, s.DeleteMutex(ctx, h))
	testutil.AssertErrorStatus(t, entities.StatusBadParameter, s.AcquireMutex(ctx, h, entities.DoNotWait))

	assert.Equal(t, float64(2), promtest.ToFloat64(s.Metrics().SemaphoreTimeouts))
}

func TestMutex_HandoffBetweenGoroutines(t *testing.T) {
	s := started(t)
	ctx := context.Background()

	h, err := s.CreateMutex(ctx)
	require.NoError(t, err)
	require.NoError(t, s.AcquireMutex(ctx, h, entities.WaitForever))

	got := make(chan error, 1)
	go func() {
		got <- s.AcquireMutex(ctx, h, 2000)
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, s.ReleaseMutex(ctx, h))
	require.NoError(t, <-got)
}

func TestSemaphore(t *testing.T) {
	s := started(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := s.CreateSemaphore(ctx, 0, 0)
	testutil.AssertErrorStatus(t, entities.StatusBadParameter, err)
	_, err = s.CreateSemaphore(ctx, 1, 2)
	testutil.AssertErrorStatus(t, entities.StatusBadParameter, err)

	h, err := s.CreateSemaphore(ctx, 3, 0)
	require.NoError(t, err)

	testutil.AssertErrorStatus(t, entities.StatusTime, s.WaitSemaphore(ctx, h, 1, entities.DoNotWait))
	testutil.AssertErrorStatus(t, entities.StatusBadParameter, s.WaitSemaphore(ctx, h, 4, entities.DoNotWait))

	require.NoError(t, s.SignalSemaphore(ctx, h, 2))
	require.NoError(t, s.WaitSemaphore(ctx, h, 2, entities.DoNotWait))
	require.NoError(t, s.SignalSemaphore(ctx, h, 3))
	testutil.AssertErrorStatus(t, entities.StatusLimit, s.SignalSemaphore(ctx, h, 1))

	require.NoError(t, s.DeleteSemaphore(ctx, h))
	testutil.AssertErrorStatus(t, entities.StatusBadParameter, s.SignalSemaphore(ctx, h, 1))
}

func TestSemaphore_WaitCancelled(t *testing.T) {
	s := started(t)
	h, err := s.CreateSemaphore(context.Background(), 1, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	testutil.AssertErrorStatus(t, entities.StatusError, s.WaitSemaphore(ctx, h, 1, entities.WaitForever))
}

func TestSpinlock(t *testing.T) {
	s := started(t)
	ctx := context.Background()

	h, err := s.CreateLock(ctx)
	require.NoError(t, err)

	var counter int
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				flags, err := s.AcquireLock(ctx, h)
				if !assert.NoError(t, err) {
					return
				}
				counter++
				assert.NoError(t, s.ReleaseLock(ctx, h, flags))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, counter)
	testutil.AssertErrorStatus(t, entities.StatusNotAcquired, s.ReleaseLock(ctx, h, 0))
	require.NoError(t, s.DeleteLock(ctx, h))
	_, err = s.AcquireLock(ctx, h)
	testutil.AssertErrorStatus(t, entities.StatusBadParameter, err)
}

func TestInterrupts(t *testing.T) {
	s := started(t)
	ctx := context.Background()

	var seen atomic.Uint64
	var inISR atomic.Bool
	handler := entities.InterruptHandler{
		Address: 0x100,
		Service: func(ctx context.Context, data entities.Context) entities.InterruptResult {
			seen.Store(uint64(data))
			inISR.Store(osl.InInterruptContext(ctx))
			return entities.InterruptHandled
		},
	}

	require.NoError(t, s.InstallInterruptHandler(ctx, 9, handler, 42))
	testutil.AssertErrorStatus(t, entities.StatusAlreadyExists, s.InstallInterruptHandler(ctx, 9, handler, 0))
	testutil.AssertErrorStatus(t, entities.StatusBadParameter, s.InstallInterruptHandler(ctx, 300, handler, 0))

	result, err := s.Raise(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, entities.InterruptHandled, result)
	assert.Equal(t, uint64(42), seen.Load())
	assert.True(t, inISR.Load())

	_, err = s.Raise(ctx, 10)
	testutil.AssertErrorStatus(t, entities.StatusNotExist, err)

	other := entities.InterruptHandler{Address: 0x200}
	testutil.AssertErrorStatus(t, entities.StatusNotExist, s.RemoveInterruptHandler(ctx, 9, other))
	require.NoError(t, s.RemoveInterruptHandler(ctx, 9, handler))
	testutil.AssertErrorStatus(t, entities.StatusNotExist, s.RemoveInterruptHandler(ctx, 9, handler))

	assert.Equal(t, float64(1), promtest.ToFloat64(s.Metrics().Interrupts.WithLabelValues("9", "handled")))
}

func TestRemoveInterruptHandler_GoRoutines(t *testing.T) {
	s := started(t)
	ctx := context.Background()

	a := entities.InterruptHandler{Service: func(context.Context, entities.Context) entities.InterruptResult {
		return entities.InterruptHandled
	}}
	b := entities.InterruptHandler{Service: func(context.Context, entities.Context) entities.InterruptResult {
		return entities.InterruptNotHandled
	}}

	require.NoError(t, s.InstallInterruptHandler(ctx, 9, a, 0))
	testutil.AssertErrorStatus(t, entities.StatusNotExist, s.RemoveInterruptHandler(ctx, 9, b))
	testutil.AssertErrorStatus(t, entities.StatusNotExist, s.RemoveInterruptHandler(ctx, 9, entities.InterruptHandler{}))
	testutil.AssertErrorStatus(t, entities.StatusNotExist,
		s.RemoveInterruptHandler(ctx, 9, entities.InterruptHandler{Address: 0x100}))
	require.NoError(t, s.RemoveInterruptHandler(ctx, 9, a))
}

func TestExecute(t *testing.T) {
	s := started(t)
	ctx := context.Background()

	var mu sync.Mutex
	ids := map[entities.ThreadID]bool{}
	var ran atomic.Int32
	for i := 0; i < 20; i++ {
		err := s.Execute(ctx, entities.DeferredTask{
			Type: entities.ExecuteNotifyHandler,
			Run: func(ctx context.Context, _ entities.Context) {
				mu.Lock()
				ids[s.GetThreadID(ctx)] = true
				mu.Unlock()
				time.Sleep(time.Millisecond)
				ran.Add(1)
			},
		})
		require.NoError(t, err)
	}

	require.NoError(t, s.WaitEventsComplete(ctx))
	assert.Equal(t, int32(20), ran.Load())

	mu.Lock()
	defer mu.Unlock()
	assert.NotContains(t, ids, MainThreadID)
	assert.NotContains(t, ids, entities.ThreadID(0))
	assert.Equal(t, MainThreadID, s.GetThreadID(ctx))
}

func TestExecute_QueueFull(t *testing.T) {
	s := started(t, func(m *config.Machine) {
		m.Workers.Count = 1
		m.Workers.QueueDepth = 1
	})
	ctx := context.Background()

	release := make(chan struct{})
	block := entities.DeferredTask{Run: func(context.Context, entities.Context) { <-release }}

	require.NoError(t, s.Execute(ctx, block))
	// Fill the queue behind the running task; one of these must be rejected.
	var rejected error
	for i := 0; i < 3 && rejected == nil; i++ {
		rejected = s.Execute(ctx, block)
	}
	testutil.AssertErrorStatus(t, entities.StatusNoMemory, rejected)

	close(release)
	require.NoError(t, s.WaitEventsComplete(ctx))
}

func TestExecute_Errors(t *testing.T) {
	s := newMachine(t)
	ctx := context.Background()

	task := entities.DeferredTask{Run: func(context.Context, entities.Context) {}}
	testutil.AssertErrorStatus(t, entities.StatusError, s.Execute(ctx, task))
	testutil.AssertErrorStatus(t, entities.StatusBadParameter, s.Execute(ctx, entities.DeferredTask{}))
}

func TestWaitEventsComplete_Deadline(t *testing.T) {
	s := started(t)
	release := make(chan struct{})
	defer close(release)
	require.NoError(t, s.Execute(context.Background(), entities.DeferredTask{
		Run: func(context.Context, entities.Context) { <-release },
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	testutil.AssertErrorStatus(t, entities.StatusTime, s.WaitEventsComplete(ctx))
}

func TestTiming(t *testing.T) {
	s := newMachine(t)
	ctx := context.Background()

	t0 := s.GetTimer(ctx)
	start := time.Now()
	s.Sleep(ctx, 5)
	s.Stall(ctx, 100)
	elapsed := time.Since(start)
	t1 := s.GetTimer(ctx)

	assert.GreaterOrEqual(t, elapsed, 5*time.Millisecond)
	assert.Greater(t, t1, t0)
	assert.GreaterOrEqual(t, t1-t0, uint64(elapsed/100)/2)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	start = time.Now()
	s.Sleep(cancelled, 10_000)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPorts(t *testing.T) {
	s := newMachine(t, func(m *config.Machine) {
		m.Ports = []config.Port{{Address: 0x70, Value: 0xbeef, Width: 16}}
	})
	ctx := context.Background()

	v, err := s.ReadPort(ctx, 0x70, entities.Width16)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xbeef), v)

	v, err = s.ReadPort(ctx, 0x71, entities.Width16)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xffbe), v)

	require.NoError(t, s.WritePort(ctx, 0x80, 0x12345678, entities.Width32))
	v, err = s.ReadPort(ctx, 0x82, entities.Width8)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x34), v)

	_, err = s.ReadPort(ctx, 0xffff, entities.Width16)
	testutil.AssertErrorStatus(t, entities.StatusBadParameter, err)
	_, err = s.ReadPort(ctx, 0xffffffff_fffffffe, entities.Width32)
	testutil.AssertErrorStatus(t, entities.StatusBadParameter, err)
	testutil.AssertErrorStatus(t, entities.StatusBadParameter,
		s.WritePort(ctx, 0xffffffff_fffffffe, 1, entities.Width32))
}

func TestPCIConfiguration(t *testing.T) {
	id := entities.PCIID{Device: 0x1f, Function: 3}
	s := newMachine(t, func(m *config.Machine) {
		m.PCI = []config.PCIDevice{{Device: 0x1f, Function: 3, VendorID: 0x8086, DeviceID: 0x2930}}
	})
	ctx := context.Background()

	v, err := s.ReadPCIConfiguration(ctx, id, 0, entities.Width32)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x29308086), v)

	require.NoError(t, s.WritePCIConfiguration(ctx, id, 0, 0xffffffff_00000007, entities.Width64))
	v, err = s.ReadPCIConfiguration(ctx, id, 0, entities.Width64)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xffffffff_29308086), v)

	absent := entities.PCIID{Bus: 3}
	v, err = s.ReadPCIConfiguration(ctx, absent, 0, entities.Width16)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xffff), v)
	require.NoError(t, s.WritePCIConfiguration(ctx, absent, 4, 1, entities.Width8))

	_, err = s.ReadPCIConfiguration(ctx, id, 0xffe, entities.Width32)
	testutil.AssertErrorStatus(t, entities.StatusBadParameter, err)

	// Offsets that wrap a 32-bit sum are rejected.
	_, err = s.ReadPCIConfiguration(ctx, id, 0xfffffffe, entities.Width32)
	testutil.AssertErrorStatus(t, entities.StatusBadParameter, err)
	testutil.AssertErrorStatus(t, entities.StatusBadParameter,
		s.WritePCIConfiguration(ctx, id, 0xfffffffe, 1, entities.Width32))
}

func rsdp(oemID string) []byte {
	b := make([]byte, rsdpV1Length)
	copy(b, rsdpSignature)
	copy(b[9:15], oemID)
	var sum uint8
	for _, v := range b {
		sum += v
	}
	b[8] = -sum
	return b
}

func TestGetRootPointer(t *testing.T) {
	ctx := context.Background()

	t.Run("configured", func(t *testing.T) {
		s := newMachine(t, func(m *config.Machine) { m.RootPointer = 0xf0000 })
		addr, err := s.GetRootPointer(ctx)
		require.NoError(t, err)
		assert.Equal(t, entities.PhysicalAddress(0xf0000), addr)
	})

	t.Run("scanned", func(t *testing.T) {
		bad := rsdp("BAD")
		bad[8]++
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.bin"), bad, 0o600))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "good.bin"), rsdp("GOOD"), 0o600))

		s := newMachine(t, func(m *config.Machine) {
			m.Memory.Regions = []config.Region{
				{Address: 0xe0010, File: filepath.Join(dir, "bad.bin")},
				{Address: 0xf0020, File: filepath.Join(dir, "good.bin")},
			}
		})
		addr, err := s.GetRootPointer(ctx)
		require.NoError(t, err)
		assert.Equal(t, entities.PhysicalAddress(0xf0020), addr)
	})

	t.Run("missing", func(t *testing.T) {
		s := newMachine(t)
		_, err := s.GetRootPointer(ctx)
		testutil.AssertErrorStatus(t, entities.StatusNotFound, err)
	})
}

func TestOverrides(t *testing.T) {
	dir := t.TempDir()
	dsdt := entities.TableHeader{Length: 40, Revision: 2}
	copy(dsdt.Signature[:], "DSDT")
	raw, err := dsdt.MarshalBinary()
	require.NoError(t, err)
	raw = append(raw, 1, 2, 3, 4, 0xee, 0xee)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dsdt.aml"), raw, 0o600))

	s := newMachine(t, func(m *config.Machine) {
		m.Overrides.Predefined = map[string]string{"_OS_": "Linux"}
		m.Overrides.Tables = map[string]string{
			"DSDT": filepath.Join(dir, "dsdt.aml"),
			"SSDT": filepath.Join(dir, "dsdt.aml"),
		}
	})
	ctx := context.Background()

	v, ok, err := s.PredefinedOverride(ctx, entities.PredefinedName{Name: "_OS_"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Linux", v)

	_, ok, err = s.PredefinedOverride(ctx, entities.PredefinedName{Name: "_REV"})
	require.NoError(t, err)
	assert.False(t, ok)

	var existing entities.TableHeader
	copy(existing.Signature[:], "DSDT")
	table, err := s.TableOverride(ctx, existing)
	require.NoError(t, err)
	assert.Len(t, table, 40)

	copy(existing.Signature[:], "SSDT")
	_, err = s.TableOverride(ctx, existing)
	testutil.AssertErrorStatus(t, entities.StatusBadParameter, err)

	copy(existing.Signature[:], "FACP")
	table, err = s.TableOverride(ctx, existing)
	require.NoError(t, err)
	assert.Nil(t, table)

	addr, length, err := s.PhysicalTableOverride(ctx, existing)
	require.NoError(t, err)
	assert.Zero(t, addr)
	assert.Zero(t, length)
}

func TestDiagnostics(t *testing.T) {
	var out bytes.Buffer
	cfg := config.Default()
	s, err := New(cfg, WithLogger(quietLogger()), WithOutput(&out))
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, s.Initialize(ctx))

	s.Print(ctx, "ACPI: ")
	s.Print(ctx, "Interpreter enabled\n")
	require.NoError(t, s.FlushConsole(ctx))
	assert.Equal(t, "ACPI: Interpreter enabled\n", out.String())

	var redirected bytes.Buffer
	require.NoError(t, s.RedirectOutput(ctx, &redirected))
	s.Print(ctx, "moved")
	require.NoError(t, s.FlushConsole(ctx))
	assert.Equal(t, "moved", redirected.String())
	testutil.AssertErrorStatus(t, entities.StatusBadParameter, s.RedirectOutput(ctx, nil))

	require.NoError(t, s.Signal(ctx, entities.SignalFatal, entities.SignalInfo{Type: 1, Code: 2, Argument: 3}))
	require.NoError(t, s.Signal(ctx, entities.SignalBreakpoint, entities.SignalInfo{Message: "stop"}))
	testutil.AssertErrorStatus(t, entities.StatusBadParameter, s.Signal(ctx, entities.SignalFunction(9), entities.SignalInfo{}))
	assert.Len(t, s.Signals(), 3)

	_, ok := s.LastSleep()
	assert.False(t, ok)
	require.NoError(t, s.EnterSleep(ctx, entities.SleepS3, 5, 6))
	req, ok := s.LastSleep()
	require.True(t, ok)
	assert.Equal(t, SleepRequest{State: entities.SleepS3, RegA: 5, RegB: 6}, req)
	testutil.AssertErrorStatus(t, entities.StatusBadParameter, s.EnterSleep(ctx, entities.SleepState(9), 0, 0))

	require.NoError(t, s.InitializeDebugger(ctx))
	testutil.AssertErrorStatus(t, entities.StatusAlreadyExists, s.InitializeDebugger(ctx))
	require.NoError(t, s.TerminateDebugger(ctx))
	testutil.AssertErrorStatus(t, entities.StatusNotExist, s.TerminateDebugger(ctx))
	testutil.AssertErrorStatus(t, entities.StatusNotImplemented, s.WaitCommandReady(ctx))
	testutil.AssertErrorStatus(t, entities.StatusNotImplemented, s.NotifyCommandComplete(ctx))

	require.NoError(t, s.Terminate(ctx))
}

func TestMiddleware_InterruptGuard(t *testing.T) {
	s := started(t, func(m *config.Machine) { m.Debug.InterruptGuard = true })
	r := osl.NewRegistry()
	require.NoError(t, r.Bind(s, osl.WithMiddleware(s.Middleware()...)))
	ctx := context.Background()

	var status entities.Status
	handler := entities.InterruptHandler{
		Address: 0x1,
		Service: func(ctx context.Context, _ entities.Context) entities.InterruptResult {
			_, status = r.Allocate(ctx, 32)
			return entities.InterruptHandled
		},
	}
	testutil.RequireOK(t, r.InstallInterruptHandler(ctx, 5, handler, 0))
	_, err := s.Raise(ctx, 5)
	require.NoError(t, err)
	testutil.AssertStatus(t, entities.StatusAccess, status)
	assert.Equal(t, 0, s.Stats().Allocations)
}

func TestScenario_ThroughRegistry(t *testing.T) {
	s := newMachine(t)
	r := osl.NewRegistry()
	require.NoError(t, r.Bind(s))
	ctx := context.Background()

	testutil.RequireOK(t, r.Initialize(ctx))
	ptr, status := r.Map(ctx, 0x1000, 0x100)
	testutil.RequireOK(t, status)
	testutil.RequireOK(t, r.Unmap(ctx, ptr, 0x100))
	testutil.RequireOK(t, r.Terminate(ctx))

	stats := s.Stats()
	assert.Zero(t, stats.Mappings)
	assert.Zero(t, stats.Allocations)
	assert.True(t, errors.Is(s.Terminate(ctx), errors.ErrGeneric))
}
