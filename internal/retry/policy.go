package retry

import (
	"context"
	"math/rand"
	"time"
)

// Policy describes how a blocking connect loop waits between attempts.
//
// The uplink deliberately retries forever at a fixed interval: an unattended
// device must keep trying to reach its network and broker, and a transceiver
// that takes minutes to register is not a terminal failure. Jitter spreads
// reconnect storms when many devices share an access point.
type Policy struct {
	// Interval is the fixed delay between attempts.
	Interval time.Duration

	// Jitter is the maximum random addition to each delay. Zero disables it.
	Jitter time.Duration
}

// Fixed returns a Policy with the given interval and no jitter.
func Fixed(interval time.Duration) Policy {
	return Policy{Interval: interval}
}

// None returns a zero-delay Policy, used in tests to retry immediately.
func None() Policy {
	return Policy{}
}

// Wait blocks for one retry delay or until the context is cancelled.
//
// Returns:
//   - error: ctx.Err() if the context was cancelled, nil after a full delay
func (p Policy) Wait(ctx context.Context) error {
	d := p.Interval
	if p.Jitter > 0 {
		d += time.Duration(rand.Int63n(int64(p.Jitter)))
	}
	if d <= 0 {
		// Still honour cancellation on zero-delay policies.
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
