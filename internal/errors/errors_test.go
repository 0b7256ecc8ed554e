package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := Wrap(cause, ErrCodeTransient, "fetch object")

	require.Error(t, err)
	assert.Equal(t, "fetch object: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsTransient(err))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "nothing"))
	assert.Nil(t, Wrapf(nil, ErrCodeInternal, "nothing %d", 1))
}

func TestPredicatesMatchWrappedErrors(t *testing.T) {
	inner := NotFound("object missing")
	outer := fmt.Errorf("fetch: %w", inner)

	assert.True(t, IsNotFound(outer))
	assert.False(t, IsTransient(outer))
	assert.Equal(t, ErrCodeNotFound, GetCode(outer))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(Transient("blip")))
	assert.False(t, Retryable(NotFound("missing")))
	assert.False(t, Retryable(AccessDenied("nope")))
	assert.False(t, Retryable(Engine("model crashed")))
	assert.False(t, Retryable(Timeout("too slow")))
}

func TestKindLabel(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not found", NotFound("x"), "NotFound"},
		{"access denied", AccessDenied("x"), "AccessDenied"},
		{"transient", Transient("x"), "Transient"},
		{"engine", Engine("x"), "EngineError"},
		{"timeout", Timeout("x"), "Timeout"},
		{"wrapped", fmt.Errorf("step: %w", Engine("x")), "EngineError"},
		{"plain error", fmt.Errorf("boom"), "InternalError"},
		{"context deadline", context.DeadlineExceeded, "Timeout"},
		{"wrapped deadline", fmt.Errorf("fetch: %w", context.DeadlineExceeded), "Timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindLabel(tt.err))
		})
	}
}

func TestValidationField(t *testing.T) {
	err := ValidationField("input_s3_path", "input_s3_path is required")
	assert.True(t, IsValidation(err))
	assert.Equal(t, "input_s3_path", err.Field)
}
