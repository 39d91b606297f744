package retry

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	errs "wallheaven-sync/pkg/errors"
)

// Policy decides whether a server-requested wait may be honoured.
// attempt counts the waits already requested for the current request, starting at 1.
// A nil return allows the wait; an error aborts the request with that error.
type Policy interface {
	Allow(attempt int, wait time.Duration) error
}

// Unbounded honours every wait the server asks for, however many and however long
type Unbounded struct{}

// Allow always permits the wait
func (Unbounded) Allow(attempt int, wait time.Duration) error {
	return nil
}

// Bounded honours waits up to a count and length ceiling.
// A zero field disables that ceiling.
type Bounded struct {
	MaxAttempts int
	MaxWait     time.Duration
}

// Allow refuses the wait with a quota error once a ceiling is exceeded
func (b Bounded) Allow(attempt int, wait time.Duration) error {
	if b.MaxAttempts > 0 && attempt > b.MaxAttempts {
		return errs.New(errs.ErrorTypeQuota,
			fmt.Sprintf("server requested %d waits, limit is %d", attempt, b.MaxAttempts))
	}
	if b.MaxWait > 0 && wait > b.MaxWait {
		return errs.New(errs.ErrorTypeQuota,
			fmt.Sprintf("server requested a %s wait, limit is %s", wait, b.MaxWait))
	}
	return nil
}

// NewPolicy returns Unbounded when both limits are zero, and Bounded otherwise
func NewPolicy(maxAttempts int, maxWait time.Duration) Policy {
	if maxAttempts <= 0 && maxWait <= 0 {
		return Unbounded{}
	}
	return Bounded{MaxAttempts: maxAttempts, MaxWait: maxWait}
}

// ParseRetryAfter converts a Retry-After header value into a wait.
// The value is either a number of seconds, fractions allowed, or an HTTP date.
// Dates in the past yield a zero wait.
func ParseRetryAfter(value string, now time.Time) (time.Duration, error) {
	value = strings.TrimSpace(value)

	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
			return 0, errs.New(errs.ErrorTypeProtocol, fmt.Sprintf("invalid Retry-After value %q", value))
		}
		return time.Duration(seconds * float64(time.Second)), nil
	}

	if at, err := http.ParseTime(value); err == nil {
		if wait := at.Sub(now); wait > 0 {
			return wait, nil
		}
		return 0, nil
	}

	return 0, errs.New(errs.ErrorTypeProtocol, fmt.Sprintf("invalid Retry-After value %q", value))
}

// Wait waits for the specified duration or until context is cancelled
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
