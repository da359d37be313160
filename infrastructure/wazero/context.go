package wazero

import (
	"context"

	"github.com/tetratelabs/wazero/api"
)

type guestNameKey struct{}

// WithGuestName makes calls under ctx share per-guest state (bounce buffers,
// queued callbacks) under name rather than the calling module's own name.
// Hosts that run several module instances as one interpreter use it.
func WithGuestName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, guestNameKey{}, name)
}

// GuestNameFromContext returns the name set by WithGuestName.
func GuestNameFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(guestNameKey{}).(string)
	return name, ok && name != ""
}

// GetGuestName keys the dispatcher's per-guest state.
func GetGuestName(ctx context.Context, mod api.Module) string {
	if name, ok := GuestNameFromContext(ctx); ok {
		return name
	}
	return mod.Name()
}
