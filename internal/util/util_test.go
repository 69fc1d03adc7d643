package util

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryWithContext(t *testing.T) {
	t.Run("success after retries", func(t *testing.T) {
		calls := 0
		got, err := RetryWithContext(context.Background(), 3, time.Millisecond, func(context.Context) (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.New("transient")
			}
			return 7, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 7, got)
		assert.Equal(t, 3, calls)
	})

	t.Run("persistent failure returns last error", func(t *testing.T) {
		calls := 0
		_, err := RetryWithContext(context.Background(), 2, 0, func(context.Context) (int, error) {
			calls++
			return 0, errors.New("persistent")
		})
		assert.EqualError(t, err, "persistent")
		assert.Equal(t, 2, calls)
	})

	t.Run("non-positive tries means one", func(t *testing.T) {
		calls := 0
		_ = RetryErrWithContext(context.Background(), -1, 0, func(context.Context) error {
			calls++
			return errors.New("fail")
		})
		assert.Equal(t, 1, calls)
	})

	t.Run("context error stops immediately", func(t *testing.T) {
		calls := 0
		err := RetryErrWithContext(context.Background(), 5, 0, func(context.Context) error {
			calls++
			return context.DeadlineExceeded
		})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, 1, calls)
	})

	t.Run("cancelled while waiting", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := RetryErrWithContext(ctx, 5, time.Hour, func(context.Context) error {
			calls++
			cancel()
			return errors.New("fail")
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("BN_NUM", "2.5")
	t.Setenv("BN_BAD_NUM", "abc")
	t.Setenv("BN_BOOL", "true")
	t.Setenv("BN_BAD_BOOL", "yes")
	t.Setenv("BN_DUR", "90s")
	t.Setenv("BN_BAD_DUR", "-5m")
	t.Setenv("BN_EMPTY", "")

	assert.Equal(t, 2.5, GetEnvNumeric("BN_NUM", 1))
	assert.Equal(t, 1.0, GetEnvNumeric("BN_BAD_NUM", 1))
	assert.Equal(t, 2, GetEnvInt("BN_NUM", 9))
	assert.True(t, GetEnvBool("BN_BOOL", false))
	assert.False(t, GetEnvBool("BN_BAD_BOOL", false))
	assert.Equal(t, 90*time.Second, GetEnvDuration("BN_DUR", time.Minute))
	assert.Equal(t, time.Minute, GetEnvDuration("BN_BAD_DUR", time.Minute))
	assert.Equal(t, "fallback", GetEnvString("BN_EMPTY", "fallback"))
	assert.Equal(t, "fallback", GetEnvString("BN_UNSET_KEY", "fallback"))
}
