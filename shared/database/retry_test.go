package database

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsTransientError(t *testing.T) {
	t.Run("nil is not transient", func(t *testing.T) {
		assert.False(t, IsTransientError(nil))
	})

	t.Run("connection errors are transient", func(t *testing.T) {
		transient := []error{
			errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"),
			errors.New("read tcp: connection reset by peer"),
			errors.New("write: broken pipe"),
			errors.New("driver: bad connection"),
			errors.New("i/o timeout"),
			errors.New("pq: sorry, too many connections"),
			errors.New("unexpected EOF"),
		}
		for _, err := range transient {
			assert.True(t, IsTransientError(err), "expected transient: %v", err)
		}
	})

	t.Run("logic errors are not transient", func(t *testing.T) {
		permanent := []error{
			errors.New("duplicate key value violates unique constraint"),
			errors.New("record not found"),
			errors.New("permission denied for table users"),
		}
		for _, err := range permanent {
			assert.False(t, IsTransientError(err), "expected permanent: %v", err)
		}
	})
}

func TestWithRetry(t *testing.T) {
	t.Run("returns nil on first success", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), "op", func() error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries transient errors until success", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), "op", func() error {
			calls++
			if calls < 2 {
				return errors.New("connection refused")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("does not retry permanent errors", func(t *testing.T) {
		calls := 0
		permanent := errors.New("duplicate key value violates unique constraint")
		err := WithRetry(context.Background(), "op", func() error {
			calls++
			return permanent
		})
		assert.ErrorIs(t, err, permanent)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), "op", func() error {
			calls++
			return errors.New("connection refused")
		})
		assert.Error(t, err)
		assert.Equal(t, maxRetryAttempts, calls)
	})

	t.Run("stops when context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		calls := 0
		err := WithRetry(ctx, "op", func() error {
			calls++
			return errors.New("connection refused")
		})
		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}
