package netlink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-uplink/internal/retry"
)

// Sentinel errors for link operations.
var (
	// ErrClockUnavailable indicates the link's time source has no valid
	// wall-clock time yet. TLS peer validation must fail closed on it.
	ErrClockUnavailable = errors.New("netlink: wall clock unavailable")

	// ErrJoinFailed indicates a single association attempt failed.
	ErrJoinFailed = errors.New("netlink: association attempt failed")
)

// minValidTime is the sanity floor for the link clock. A radio module that
// has not synchronised reports the epoch; anything before this is treated
// as no clock at all.
var minValidTime = time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC)

// State describes radio network association.
type State int

const (
	// Disconnected means the device is not associated with the network.
	Disconnected State = iota

	// Connected means the device is associated and the link is usable.
	Connected
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Driver abstracts the underlying radio driver.
//
// The production driver shells out to the platform's network tooling and
// reads interface state from the kernel; tests substitute fakes.
type Driver interface {
	// State reports current association state. Polled, never pushed.
	State() State

	// Join triggers one association attempt. A slow-registering
	// transceiver returning an error here is normal; the Link retries.
	Join(ctx context.Context, ssid, passphrase string) error

	// Now returns the driver's current wall-clock time. The zero time
	// means the clock has not synchronised yet.
	Now() time.Time
}

// Logger is the subset of logging used by the link.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Link maintains association with the local radio network and supplies the
// time source used for TLS certificate validity checks.
type Link struct {
	driver     Driver
	policy     retry.Policy
	ssid       string
	passphrase string
	logger     Logger
}

// New creates a Link over the given driver.
//
// Parameters:
//   - driver: Radio driver
//   - ssid, passphrase: Network identity to associate with
//   - policy: Delay between association attempts
//   - logger: Destination for association progress
func New(driver Driver, ssid, passphrase string, policy retry.Policy, logger Logger) *Link {
	return &Link{
		driver:     driver,
		policy:     policy,
		ssid:       ssid,
		passphrase: passphrase,
		logger:     logger,
	}
}

// Status returns the current association state.
func (l *Link) Status() State {
	return l.driver.State()
}

// Connect blocks until the link is associated or the context is cancelled.
//
// Attempts are unbounded with a fixed delay between them. This is
// intentional for an unattended device: a transceiver with a long
// registration time must not be abandoned as a terminal failure.
//
// Returns:
//   - error: ctx.Err() on cancellation; otherwise nil once associated
func (l *Link) Connect(ctx context.Context) error {
	l.logger.Info("associating with network", "ssid", l.ssid)

	for attempt := 1; ; attempt++ {
		if err := l.driver.Join(ctx, l.ssid, l.passphrase); err != nil {
			l.logger.Warn("association attempt failed",
				"ssid", l.ssid,
				"attempt", attempt,
				"error", err,
			)
		} else if l.driver.State() == Connected {
			l.logger.Info("network associated", "ssid", l.ssid, "attempts", attempt)
			return nil
		}

		if err := l.policy.Wait(ctx); err != nil {
			return fmt.Errorf("association cancelled: %w", err)
		}
	}
}

// CurrentTime returns the link's wall-clock time for certificate validity
// checks.
//
// Returns:
//   - time.Time: Current time when the clock is synchronised
//   - error: ErrClockUnavailable when it is not; callers must fail closed
//     rather than accept an unchecked peer certificate
func (l *Link) CurrentTime() (time.Time, error) {
	now := l.driver.Now()
	if now.IsZero() || now.Before(minValidTime) {
		return time.Time{}, ErrClockUnavailable
	}
	return now, nil
}
