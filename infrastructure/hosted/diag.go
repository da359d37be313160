package hosted

import (
	"context"
	"io"

	"github.com/reglet-dev/acpica-osl/domain/entities"
	"github.com/reglet-dev/acpica-osl/domain/errors"
)

// SignalEvent is a firmware signal seen by the machine.
type SignalEvent struct {
	Function entities.SignalFunction
	Info     entities.SignalInfo
}

// SleepRequest is the last sleep-state transition asked for.
type SleepRequest struct {
	State      entities.SleepState
	RegA, RegB uint32
}

// Print queues text on the console and returns without waiting.
func (s *Services) Print(_ context.Context, text string) {
	_, _ = io.WriteString(s.console, text)
}

func (s *Services) RedirectOutput(_ context.Context, w io.Writer) error {
	if w == nil {
		return errors.New("redirect_output", entities.StatusBadParameter)
	}
	s.console.Redirect(w)
	return nil
}

// FlushConsole waits until queued console output is written.
func (s *Services) FlushConsole(ctx context.Context) error {
	return s.console.Flush(ctx)
}

// Signal records the event. A fatal signal is logged at error level; the
// machine keeps running so the host decides whether to stop.
func (s *Services) Signal(ctx context.Context, function entities.SignalFunction, info entities.SignalInfo) error {
	s.mu.Lock()
	s.signals = append(s.signals, SignalEvent{Function: function, Info: info})
	s.mu.Unlock()
	s.metrics.Signals.WithLabelValues(function.String()).Inc()

	switch function {
	case entities.SignalFatal:
		s.logger.ErrorContext(ctx, "firmware fatal signal",
			"type", info.Type, "code", info.Code, "argument", info.Argument)
	case entities.SignalBreakpoint:
		s.logger.InfoContext(ctx, "firmware breakpoint", "message", info.Message)
	default:
		return errors.New("signal", entities.StatusBadParameter)
	}
	return nil
}

// Signals returns the signals received so far.
func (s *Services) Signals() []SignalEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SignalEvent(nil), s.signals...)
}

// EnterSleep records the request. The hosted machine never powers down.
func (s *Services) EnterSleep(ctx context.Context, state entities.SleepState, regA, regB uint32) error {
	if state > entities.SleepS5 {
		return errors.New("enter_sleep", entities.StatusBadParameter)
	}
	s.mu.Lock()
	s.lastSleep = &SleepRequest{State: state, RegA: regA, RegB: regB}
	s.mu.Unlock()
	s.logger.InfoContext(ctx, "sleep requested", "state", int(state), "reg_a", regA, "reg_b", regB)
	return nil
}

// LastSleep returns the most recent EnterSleep request.
func (s *Services) LastSleep() (SleepRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastSleep == nil {
		return SleepRequest{}, false
	}
	return *s.lastSleep, true
}

func (s *Services) InitializeDebugger(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.debugger {
		return errors.New("initialize_debugger", entities.StatusAlreadyExists)
	}
	s.debugger = true
	s.logger.DebugContext(ctx, "debugger attached")
	return nil
}

func (s *Services) TerminateDebugger(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.debugger {
		return errors.New("terminate_debugger", entities.StatusNotExist)
	}
	s.debugger = false
	return nil
}

// WaitCommandReady has no command source on a hosted machine.
func (s *Services) WaitCommandReady(context.Context) error {
	return errors.New("wait_command_ready", entities.StatusNotImplemented)
}

func (s *Services) NotifyCommandComplete(context.Context) error {
	return errors.New("notify_command_complete", entities.StatusNotImplemented)
}
