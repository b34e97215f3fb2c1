package errutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// AssertErrorCode reports whether err carries the oops code
func AssertErrorCode(t testing.TB, err error, code string) bool {
	t.Helper()
	if !assert.Error(t, err) {
		return false
	}
	return assert.Equal(t, code, Code(err), "code of %q", err)
}

// AssertErrorContext reports whether err carries key = value in its oops
// context
func AssertErrorContext(t testing.TB, err error, key string, value any) bool {
	t.Helper()
	ctx := Context(err)
	if !assert.Contains(t, ctx, key, "context of %q", err) {
		return false
	}
	return assert.Equal(t, value, ctx[key])
}
