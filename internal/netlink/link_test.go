package netlink

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-uplink/internal/retry"
)

// fakeDriver is a scriptable Driver for tests.
type fakeDriver struct {
	state      State
	joinCalls  int
	failJoins  int // number of leading Join calls that fail
	now        time.Time
	lastSSID   string
	lastPass   string
}

func (d *fakeDriver) State() State {
	return d.state
}

func (d *fakeDriver) Join(_ context.Context, ssid, passphrase string) error {
	d.joinCalls++
	d.lastSSID = ssid
	d.lastPass = passphrase
	if d.joinCalls <= d.failJoins {
		return ErrJoinFailed
	}
	d.state = Connected
	return nil
}

func (d *fakeDriver) Now() time.Time {
	return d.now
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any) {}
func (nopLogger) Warn(string, ...any) {}

func TestConnect_FirstAttempt(t *testing.T) {
	driver := &fakeDriver{}
	link := New(driver, "greenhouse", "secret", retry.None(), nopLogger{})

	if err := link.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if driver.joinCalls != 1 {
		t.Errorf("join calls = %d, want 1", driver.joinCalls)
	}
	if driver.lastSSID != "greenhouse" || driver.lastPass != "secret" {
		t.Errorf("Join called with (%q, %q), want configured credentials", driver.lastSSID, driver.lastPass)
	}
	if link.Status() != Connected {
		t.Errorf("Status() = %v, want Connected", link.Status())
	}
}

func TestConnect_RetriesUntilAssociated(t *testing.T) {
	driver := &fakeDriver{failJoins: 3}
	link := New(driver, "greenhouse", "secret", retry.None(), nopLogger{})

	if err := link.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if driver.joinCalls != 4 {
		t.Errorf("join calls = %d, want 4 (3 failures then success)", driver.joinCalls)
	}
}

func TestConnect_Cancelled(t *testing.T) {
	// A driver that never associates; cancellation is the only way out.
	driver := &fakeDriver{failJoins: 1 << 30}
	link := New(driver, "greenhouse", "secret", retry.Fixed(time.Millisecond), nopLogger{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := link.Connect(ctx)
	if err == nil {
		t.Fatal("Connect() = nil, want error after cancellation")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Connect() error = %v, want deadline exceeded", err)
	}
}

func TestStatus_Disconnected(t *testing.T) {
	link := New(&fakeDriver{state: Disconnected}, "s", "p", retry.None(), nopLogger{})

	if link.Status() != Disconnected {
		t.Errorf("Status() = %v, want Disconnected", link.Status())
	}
}

func TestCurrentTime(t *testing.T) {
	tests := []struct {
		name    string
		now     time.Time
		wantErr bool
	}{
		{"synchronised clock", time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC), false},
		{"zero clock", time.Time{}, true},
		{"epoch clock", time.Unix(0, 0), true},
		{"pre-sync clock", time.Date(2019, time.June, 1, 0, 0, 0, 0, time.UTC), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link := New(&fakeDriver{now: tt.now}, "s", "p", retry.None(), nopLogger{})

			got, err := link.CurrentTime()
			if tt.wantErr {
				if !errors.Is(err, ErrClockUnavailable) {
					t.Errorf("CurrentTime() error = %v, want ErrClockUnavailable", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CurrentTime() error = %v", err)
			}
			if !got.Equal(tt.now) {
				t.Errorf("CurrentTime() = %v, want %v", got, tt.now)
			}
		})
	}
}

func TestStateString(t *testing.T) {
	if Connected.String() != "connected" || Disconnected.String() != "disconnected" {
		t.Error("State.String() returned unexpected names")
	}
}
