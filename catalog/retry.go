package catalog

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"strings"
	"time"

	"kit-marketplace/logger"
)

func isRecoverableError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "temporarily unavailable") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset")
}

// retryWithBackoff runs operation until it succeeds, fails with an error that
// is not recoverable, or maxRetries attempts have been made. The delay doubles
// after every attempt, plus up to half of it in jitter.
func retryWithBackoff(ctx context.Context, operation func() error, maxRetries int, initialDelay time.Duration) error {
	delay := initialDelay
	var err error

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}
		if !isRecoverableError(err) {
			return err
		}
		if i == maxRetries-1 {
			break
		}

		logger.Audit.Printf("catalog attempt %d failed: %v. Retrying in %v", i+1, err, delay)

		wait := delay
		if half := int64(delay / 2); half > 0 {
			wait += time.Duration(rand.Int63n(half))
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}
	return fmt.Errorf("operation failed after %d attempts: %w", maxRetries, err)
}
