package errkind

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWrapsNilAsNil(t *testing.T) {
	assert.NoError(t, New(Transient, "op", nil))
}

func TestIsClassifiesWrappedError(t *testing.T) {
	err := New(Upstream, "fetch", errors.New("boom"))
	assert.True(t, Is(err, Upstream))
	assert.False(t, Is(err, Transient))
}

func TestIsFalseForPlainError(t *testing.T) {
	assert.False(t, Is(errors.New("plain"), Transient))
}

func TestRetryableOnlyTransient(t *testing.T) {
	assert.True(t, Retryable(New(Transient, "op", errors.New("x"))))
	assert.False(t, Retryable(New(Upstream, "op", errors.New("x"))))
	assert.False(t, Retryable(errors.New("unwrapped")))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := New(Storage, "insert", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "insert")
	assert.Contains(t, err.Error(), "storage")
}
