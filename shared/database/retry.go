package database

import (
	"context"
	"log"
	"strings"
	"time"
)

const maxRetryAttempts = 3

var transientErrorMarkers = []string{
	"connection refused",
	"connection reset",
	"connection timed out",
	"broken pipe",
	"server closed the connection",
	"bad connection",
	"i/o timeout",
	"too many connections",
	"eof",
}

// IsTransientError reports whether an error looks like a temporary
// connectivity failure worth retrying.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientErrorMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// WithRetry runs op, retrying transient failures with exponential backoff
// (0.5s, 1s, 2s). Non-transient errors and context cancellation return
// immediately.
func WithRetry(ctx context.Context, name string, op func() error) error {
	delay := 500 * time.Millisecond

	var err error
	for attempt := 1; attempt <= maxRetryAttempts; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if !IsTransientError(err) {
			return err
		}
		if attempt == maxRetryAttempts {
			break
		}

		log.Printf("🔄 %s failed (attempt %d/%d), retrying in %s: %v",
			name, attempt, maxRetryAttempts, delay, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	log.Printf("❌ %s failed after %d attempts: %v", name, maxRetryAttempts, err)
	return err
}
