package osl_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	osl "github.com/reglet-dev/acpica-osl"
	"github.com/reglet-dev/acpica-osl/domain/entities"
	"github.com/reglet-dev/acpica-osl/domain/errors"
	"github.com/reglet-dev/acpica-osl/domain/ports"
	"github.com/reglet-dev/acpica-osl/internal/testutil"
)

func TestRegistry_StartsUnbound(t *testing.T) {
	r := osl.NewRegistry()
	assert.False(t, r.Bound())

	s, ok := r.Services()
	assert.False(t, ok)
	assert.Nil(t, s)
}

func TestRegistry_Bind(t *testing.T) {
	r := osl.NewRegistry()
	fake := testutil.NewFake()

	require.NoError(t, r.Bind(fake))
	assert.True(t, r.Bound())

	s, ok := r.Services()
	require.True(t, ok)
	assert.Same(t, fake, s)
}

func TestRegistry_SecondBindRejected(t *testing.T) {
	r := osl.NewRegistry()
	first := testutil.NewFake()
	second := testutil.NewFake()

	require.NoError(t, r.Bind(first))
	err := r.Bind(second)
	require.ErrorIs(t, err, osl.ErrAlreadyBound)
	assert.ErrorIs(t, err, errors.ErrAlreadyExists)

	testutil.RequireOK(t, r.Initialize(context.Background()))
	assert.Equal(t, 1, first.Calls("initialize"))
	assert.Equal(t, 0, second.Calls("initialize"))
}

func TestRegistry_BindNil(t *testing.T) {
	r := osl.NewRegistry()

	err := r.Bind(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrBadParameter)
	assert.False(t, r.Bound())
}

func TestRegistry_MiddlewareReturningNil(t *testing.T) {
	r := osl.NewRegistry()
	broken := func(ports.OSServices) ports.OSServices { return nil }

	err := r.Bind(testutil.NewFake(), osl.WithMiddleware(broken))
	require.Error(t, err)
	assert.False(t, r.Bound())
}

type tracer struct {
	ports.OSServices
	name  string
	trace *[]string
}

func (tr tracer) Initialize(ctx context.Context) error {
	*tr.trace = append(*tr.trace, tr.name)
	return tr.OSServices.Initialize(ctx)
}

func TestRegistry_MiddlewareOrder(t *testing.T) {
	var trace []string
	named := func(name string) osl.Middleware {
		return func(next ports.OSServices) ports.OSServices {
			return tracer{OSServices: next, name: name, trace: &trace}
		}
	}

	r := osl.NewRegistry()
	require.NoError(t, r.Bind(testutil.NewFake(), osl.WithMiddleware(named("outer"), named("inner"))))

	testutil.RequireOK(t, r.Initialize(context.Background()))
	assert.Equal(t, []string{"outer", "inner"}, trace)
}

func TestRegistry_ConcurrentBindOneWinner(t *testing.T) {
	r := osl.NewRegistry()
	const n = 16

	results := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			results <- r.Bind(testutil.NewFake())
		}()
	}

	wins := 0
	for i := 0; i < n; i++ {
		if err := <-results; err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, osl.ErrAlreadyBound)
		}
	}
	assert.Equal(t, 1, wins)
}

func TestRegistry_Scenario(t *testing.T) {
	r := osl.NewRegistry()
	fake := testutil.NewFake()
	require.NoError(t, r.Bind(fake))
	ctx := context.Background()

	testutil.RequireOK(t, r.Initialize(ctx))
	ptr, s := r.Map(ctx, 0x1000, 0x100)
	testutil.RequireOK(t, s)
	assert.NotEqual(t, entities.NullPointer, ptr)
	testutil.RequireOK(t, r.Unmap(ctx, ptr, 0x100))
	testutil.RequireOK(t, r.Terminate(ctx))

	assert.Equal(t, 0, fake.Outstanding())
}
