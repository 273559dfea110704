package errutil

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertErrorCode checks that err carries code anywhere in its chain,
// e.g. LOAD_FAILED from loader.Load or CONFIG_INVALID from config.Load.
func AssertErrorCode(t testing.TB, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, Code(err), "error: %v", err)
}

// AssertErrorContext checks that the oops context of err holds value
// under key.
func AssertErrorContext(t testing.TB, err error, key string, value any) {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "want a coded error, got %T: %v", err, err)
	got, ok := oopsErr.Context()[key]
	require.True(t, ok, "context of %v has no %q", err, key)
	assert.Equal(t, value, got)
}
