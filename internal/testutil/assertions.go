// Package testutil provides shared assertions and fakes for OSL tests.
package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/acpica-osl/domain/entities"
	"github.com/reglet-dev/acpica-osl/domain/errors"
)

// AssertStatus compares statuses by mnemonic so failures read as AE_* names.
func AssertStatus(t *testing.T, expected, actual entities.Status, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Equal(t, expected.String(), actual.String(), msgAndArgs...)
}

// RequireOK fails the test immediately unless status is AE_OK.
func RequireOK(t *testing.T, status entities.Status, msgAndArgs ...interface{}) {
	t.Helper()
	require.Equal(t, entities.StatusOK.String(), status.String(), msgAndArgs...)
}

// AssertErrorStatus asserts that err is non-nil and carries the expected status.
func AssertErrorStatus(t *testing.T, expected entities.Status, err error, msgAndArgs ...interface{}) {
	t.Helper()
	require.Error(t, err, msgAndArgs...)
	assert.Equal(t, expected.String(), errors.ToStatus(err).String(), msgAndArgs...)
}

// AssertDurationWithin asserts that a duration is within a tolerance of an expected value
func AssertDurationWithin(t *testing.T, expected, actual, tolerance time.Duration, msgAndArgs ...interface{}) {
	t.Helper()

	diff := expected - actual
	if diff < 0 {
		diff = -diff
	}

	assert.LessOrEqual(t, diff, tolerance, msgAndArgs...)
}

// AssertNotPanics asserts that the function does not panic
func AssertNotPanics(t *testing.T, f func(), msgAndArgs ...interface{}) {
	t.Helper()
	assert.NotPanics(t, f, msgAndArgs...)
}
