package netlink

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// joinTimeout bounds a single association command run.
const joinTimeout = 30 * time.Second

// SystemDriver is the production Driver for Linux gateways.
//
// Association state comes from the kernel's operstate file for the
// configured interface. Joins are delegated to the platform's network
// tooling via a configurable command template: the uplink supervises,
// the OS does the work.
type SystemDriver struct {
	// Interface is the radio interface, e.g. "wlan0".
	Interface string

	// JoinCommand is the command template run for each association
	// attempt. "{ssid}" and "{passphrase}" are substituted. An empty
	// template makes Join a no-op for externally managed links.
	JoinCommand []string
}

// State reads the interface operstate from sysfs.
func (d *SystemDriver) State() State {
	data, err := os.ReadFile(filepath.Join("/sys/class/net", d.Interface, "operstate"))
	if err != nil {
		return Disconnected
	}
	if strings.TrimSpace(string(data)) == "up" {
		return Connected
	}
	return Disconnected
}

// Join runs the configured association command once.
func (d *SystemDriver) Join(ctx context.Context, ssid, passphrase string) error {
	if len(d.JoinCommand) == 0 {
		return nil
	}

	runCtx, cancel := context.WithTimeout(ctx, joinTimeout)
	defer cancel()

	args := make([]string, len(d.JoinCommand))
	for i, arg := range d.JoinCommand {
		arg = strings.ReplaceAll(arg, "{ssid}", ssid)
		arg = strings.ReplaceAll(arg, "{passphrase}", passphrase)
		args[i] = arg
	}

	cmd := exec.CommandContext(runCtx, args[0], args[1:]...) // #nosec G204 -- command comes from local config
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrJoinFailed, strings.TrimSpace(string(out)), err)
	}
	return nil
}

// Now returns the system clock. Gateways run NTP; a host whose clock has not
// synchronised yet still reports a pre-2021 time and is rejected upstream.
func (d *SystemDriver) Now() time.Time {
	return time.Now()
}
