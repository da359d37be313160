package hosted

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"sync"

	osl "github.com/reglet-dev/acpica-osl"
	"github.com/reglet-dev/acpica-osl/domain/entities"
	"github.com/reglet-dev/acpica-osl/domain/errors"
)

// MaxInterruptLevel is the highest line a handler can be installed on.
const MaxInterruptLevel = 255

type installedHandler struct {
	handler entities.InterruptHandler
	data    entities.Context
}

type interruptTable struct {
	mu       sync.RWMutex
	handlers map[uint32]installedHandler
}

func newInterruptTable() *interruptTable {
	return &interruptTable{handlers: make(map[uint32]installedHandler)}
}

func (t *interruptTable) count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.handlers)
}

// InstallInterruptHandler allows one handler per level.
func (s *Services) InstallInterruptHandler(ctx context.Context, level uint32, handler entities.InterruptHandler, data entities.Context) error {
	if level > MaxInterruptLevel {
		return errors.Wrap("install_interrupt_handler", entities.StatusBadParameter, fmt.Errorf("level %d", level))
	}
	if handler.Service == nil {
		return errors.Wrap("install_interrupt_handler", entities.StatusBadParameter, fmt.Errorf("handler has no service routine"))
	}

	t := s.irq
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.handlers[level]; ok {
		return errors.Wrap("install_interrupt_handler", entities.StatusAlreadyExists, fmt.Errorf("level %d", level))
	}
	t.handlers[level] = installedHandler{handler: handler, data: data}
	s.logger.DebugContext(ctx, "interrupt handler installed", "level", level, "address", uint64(handler.Address))
	return nil
}

// sameHandler matches guest handlers by address. Handlers installed from Go
// carry no address and match by service routine instead.
func sameHandler(installed, h entities.InterruptHandler) bool {
	if installed.Address != 0 || h.Address != 0 {
		return installed.Address == h.Address
	}
	if h.Service == nil {
		return false
	}
	return reflect.ValueOf(installed.Service).Pointer() == reflect.ValueOf(h.Service).Pointer()
}

// RemoveInterruptHandler matches registrations with sameHandler.
func (s *Services) RemoveInterruptHandler(ctx context.Context, level uint32, handler entities.InterruptHandler) error {
	t := s.irq
	t.mu.Lock()
	defer t.mu.Unlock()
	inst, ok := t.handlers[level]
	if !ok || !sameHandler(inst.handler, handler) {
		return errors.Wrap("remove_interrupt_handler", entities.StatusNotExist, fmt.Errorf("level %d", level))
	}
	delete(t.handlers, level)
	s.logger.DebugContext(ctx, "interrupt handler removed", "level", level)
	return nil
}

// Raise delivers a software interrupt on level to its installed handler.
// The handler runs on the calling goroutine with an interrupt context.
func (s *Services) Raise(ctx context.Context, level uint32) (entities.InterruptResult, error) {
	s.irq.mu.RLock()
	inst, ok := s.irq.handlers[level]
	s.irq.mu.RUnlock()

	label := strconv.FormatUint(uint64(level), 10)
	if !ok {
		s.metrics.Interrupts.WithLabelValues(label, "spurious").Inc()
		return entities.InterruptNotHandled, errors.Wrap("raise", entities.StatusNotExist, fmt.Errorf("no handler on level %d", level))
	}

	result := inst.handler.Service(osl.WithInterruptContext(ctx, level), inst.data)
	if result == entities.InterruptHandled {
		s.metrics.Interrupts.WithLabelValues(label, "handled").Inc()
	} else {
		s.metrics.Interrupts.WithLabelValues(label, "not_handled").Inc()
	}
	return result, nil
}
