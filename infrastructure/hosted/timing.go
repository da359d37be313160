package hosted

import (
	"context"
	"time"
)

// Sleep parks the caller on a timer. ctx cancellation cuts it short.
func (s *Services) Sleep(ctx context.Context, milliseconds uint64) {
	if milliseconds == 0 {
		return
	}
	timer := time.NewTimer(time.Duration(milliseconds) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// Stall spins on the monotonic clock without yielding.
func (s *Services) Stall(_ context.Context, microseconds uint32) {
	deadline := time.Now().Add(time.Duration(microseconds) * time.Microsecond)
	for time.Now().Before(deadline) {
	}
}

// GetTimer returns 100ns ticks since the machine was built.
func (s *Services) GetTimer(context.Context) uint64 {
	return uint64(time.Since(s.start) / 100)
}
