package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	e := NewError(ErrProviderUnavailable, "no provider available")
	assert.Equal(t, "[PROVIDER_UNAVAILABLE] no provider available", e.Error())

	cause := errors.New("connection refused")
	e = NewError(ErrProviderExecution, "whisper call failed").WithCause(cause)
	assert.Equal(t, "[PROVIDER_EXECUTION] whisper call failed: connection refused", e.Error())
	assert.Equal(t, cause, errors.Unwrap(e))
}

func TestError_Builders(t *testing.T) {
	e := NewError(ErrCircuitOpen, "breaker open").
		WithHTTPStatus(503).
		WithRetryable(true).
		WithProvider("azure")

	assert.Equal(t, 503, e.HTTPStatus)
	assert.True(t, e.Retryable)
	assert.Equal(t, "azure", e.Provider)
	assert.True(t, IsRetryable(e))
	assert.False(t, IsRetryable(errors.New("plain")))
}
