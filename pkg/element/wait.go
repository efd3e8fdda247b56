package element

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/shane-reaume/appium-suite/pkg/appium"
)

// errNotYet marks an attempt whose condition does not hold yet, e.g. the
// element exists but is still disabled.
var errNotYet = errors.New("condition not met yet")

// errTimedOut is wrapped by poll when the deadline passes without success.
var errTimedOut = errors.New("wait timed out")

// retryable reports whether a failed attempt should be polled again.
// Anything else, transport failures included, ends the wait at once.
func retryable(err error) bool {
	return errors.Is(err, errNotYet) ||
		appium.IsNoSuchElement(err) ||
		appium.IsStaleElement(err) ||
		appium.IsNotInteractable(err)
}

// poll runs check until it succeeds, fails with a non-retryable error, or
// timeout elapses. Attempts start at most once per interval; the remote
// round-trip counts toward the interval. The last attempt runs at the
// deadline, so a condition that holds at any poll before it is seen.
func poll(ctx context.Context, timeout, interval time.Duration, check func() error) error {
	deadline := time.Now().Add(timeout)
	limiter := rate.NewLimiter(rate.Every(interval), 1)

	var last error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if d := min(limiter.Reserve().Delay(), time.Until(deadline)); d > 0 {
			if err := sleep(ctx, d); err != nil {
				return err
			}
		}

		err := check()
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		last = err

		if !time.Now().Before(deadline) {
			return fmt.Errorf("%w after %s (%d attempts): %w", errTimedOut, timeout, attempt, last)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
