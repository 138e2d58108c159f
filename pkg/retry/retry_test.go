package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastOpts() []Option {
	return []Option{
		WithMaxAttempts(3),
		WithInitialDelay(time.Millisecond),
		WithMaxDelay(time.Millisecond),
		WithJitter(0),
	}
}

func TestDo_RetriesRetryableErrors(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return Retryable(errors.New("connection refused"))
		}
		return nil
	}, fastOpts()...)

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDo_PermanentErrorStopsImmediately(t *testing.T) {
	cause := errors.New("bad credentials")
	attempts := 0

	err := Do(context.Background(), func(context.Context) error {
		attempts++
		return Permanent(cause)
	}, fastOpts()...)

	assert.Equal(t, cause, err)
	assert.Equal(t, 1, attempts)
}

func TestDo_ExhaustedAttemptsReturnsCause(t *testing.T) {
	cause := errors.New("still down")
	attempts := 0

	err := Do(context.Background(), func(context.Context) error {
		attempts++
		return Retryable(cause)
	}, fastOpts()...)

	assert.Equal(t, cause, err)
	assert.Equal(t, 3, attempts)
}

func TestDo_NonRetryableByDefault(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), func(context.Context) error {
		attempts++
		return errors.New("plain error")
	}, fastOpts()...)

	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDoWithData(t *testing.T) {
	attempts := 0
	got, err := DoWithData(context.Background(), func(context.Context) (int, error) {
		attempts++
		if attempts < 2 {
			return 0, Retryable(errors.New("not yet"))
		}
		return 42, nil
	}, fastOpts()...)

	require.NoError(t, err)
	assert.Equal(t, 42, got)
}
