package syncer

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"
)

// retryableErrors are substrings of transient driver errors
var retryableErrors = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"timeout",
	"too many connections",
	"temporary failure",
	"network is unreachable",
	"i/o timeout",
}

// isRetryableError reports whether err looks transient: timeouts and
// connection problems. Everything else is reported right away.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	errStr := strings.ToLower(err.Error())
	for _, retryable := range retryableErrors {
		if strings.Contains(errStr, retryable) {
			return true
		}
	}
	return false
}

// backoff returns the wait before attempt (2-based): base, 2*base, 4*base, ...
func backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 2 {
		return 0
	}
	shift := min(attempt-2, 16)
	return base << shift
}

// sleep waits d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
