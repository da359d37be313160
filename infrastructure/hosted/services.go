// Package hosted implements the OS services on an ordinary process: a
// simulated physical address space, goroutine-backed workers, software
// interrupts and in-memory port and PCI spaces, all described by a
// config.Machine.
package hosted

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	osl "github.com/reglet-dev/acpica-osl"
	"github.com/reglet-dev/acpica-osl/domain/entities"
	"github.com/reglet-dev/acpica-osl/domain/errors"
	"github.com/reglet-dev/acpica-osl/domain/ports"
	"github.com/reglet-dev/acpica-osl/infrastructure/config"
	osllog "github.com/reglet-dev/acpica-osl/log"
)

var _ ports.OSServices = (*Services)(nil)

// Services is the hosted OSServices implementation.
type Services struct {
	cfg     config.Machine
	logger  *slog.Logger
	metrics *Metrics
	start   time.Time

	mem     *memory
	sync    *syncTable
	irq     *interruptTable
	workers *workerPool
	io      *ioSpace
	console *osllog.Console

	mu          sync.Mutex
	initialized bool
	terminated  bool
	debugger    bool
	lastSleep   *SleepRequest
	signals     []SignalEvent
}

// Option configures New.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics *Metrics
	output  io.Writer
}

// WithLogger sets the logger for host events. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics shares a set of collectors. By default each instance gets
// its own unregistered set.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithOutput overrides the console destination chosen by cfg.Console.Output.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.output = w
	}
}

// New builds a machine from cfg. Memory regions and PCI devices are loaded
// immediately; workers start on Initialize.
func New(cfg config.Machine, opts ...Option) (*Services, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap("new", entities.StatusBadParameter, err)
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.metrics == nil {
		o.metrics = NewMetrics()
	}
	if o.output == nil {
		o.output = consoleOutput(cfg.Console.Output)
	}

	mem, err := newMemory(&cfg)
	if err != nil {
		return nil, errors.Wrap("new", entities.StatusBadParameter, err)
	}

	s := &Services{
		cfg:     cfg,
		logger:  o.logger.With("component", "osl"),
		metrics: o.metrics,
		start:   time.Now(),
		mem:     mem,
		sync:    newSyncTable(),
		irq:     newInterruptTable(),
		io:      newIOSpace(&cfg),
	}
	s.workers = newWorkerPool(cfg.Workers, s.logger, s.metrics)
	s.console = osllog.NewConsole(o.output, cfg.Console.Buffer, osllog.WithDropHook(func() {
		s.metrics.ConsoleDropped.Inc()
	}))
	return s, nil
}

func consoleOutput(name string) io.Writer {
	switch name {
	case "stdout":
		return os.Stdout
	case "discard":
		return io.Discard
	default:
		return os.Stderr
	}
}

// Config returns the machine description.
func (s *Services) Config() config.Machine {
	return s.cfg
}

// Metrics returns the collectors this instance updates.
func (s *Services) Metrics() *Metrics {
	return s.metrics
}

// Middleware returns the registry middleware the machine asks for.
func (s *Services) Middleware() []osl.Middleware {
	var mw []osl.Middleware
	if s.cfg.Debug.InterruptGuard {
		mw = append(mw, osl.InterruptGuard(osl.WithViolationHandler(func(ctx context.Context, v *osl.ContextViolation) {
			s.logger.ErrorContext(ctx, "blocking call in interrupt context", "op", v.Op, "level", v.Level)
		})))
	}
	return mw
}

func (s *Services) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return errors.New("initialize", entities.StatusAlreadyExists)
	}
	s.workers.start()
	s.initialized = true
	s.logger.InfoContext(ctx, "os services initialized",
		"physical_size", s.cfg.Memory.PhysicalSize,
		"workers", s.cfg.Workers.Count)
	return nil
}

// Terminate waits for deferred work, stops the workers and the console and
// reports resources the interpreter never released.
func (s *Services) Terminate(ctx context.Context) error {
	s.mu.Lock()
	if !s.initialized || s.terminated {
		s.mu.Unlock()
		return errors.New("terminate", entities.StatusError)
	}
	s.terminated = true
	s.mu.Unlock()

	if err := s.workers.stop(ctx); err != nil {
		s.logger.WarnContext(ctx, "deferred work did not finish", "error", err)
	}

	stats := s.Stats()
	if stats.Mappings > 0 || stats.Allocations > 0 {
		s.logger.WarnContext(ctx, "outstanding resources at terminate",
			"mappings", stats.Mappings,
			"allocations", stats.Allocations)
	}
	_ = s.console.Flush(ctx)
	_ = s.console.Close()
	s.logger.InfoContext(ctx, "os services terminated")
	return nil
}

// Stats summarizes live resources.
type Stats struct {
	Mappings       int
	Allocations    int
	Mutexes        int
	Semaphores     int
	Spinlocks      int
	Handlers       int
	ConsoleDropped uint64
}

// Stats returns a snapshot of live resources.
func (s *Services) Stats() Stats {
	mappings, allocations := s.mem.counts()
	mutexes, semaphores, spinlocks := s.sync.counts()
	return Stats{
		Mappings:       mappings,
		Allocations:    allocations,
		Mutexes:        mutexes,
		Semaphores:     semaphores,
		Spinlocks:      spinlocks,
		Handlers:       s.irq.count(),
		ConsoleDropped: s.console.Dropped(),
	}
}
