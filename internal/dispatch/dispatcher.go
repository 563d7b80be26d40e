package dispatch

import (
	"bytes"
	"fmt"
)

// Actuator is the boundary to the local actuation subsystem.
//
// Actuate reports whether the name matched a known addressable zone and the
// actuation was issued. It does not imply hardware-level confirmation.
type Actuator interface {
	Actuate(name string) bool
}

// Logger is the subset of logging used by the dispatcher.
type Logger interface {
	Info(msg string, args ...any)
}

// Result is the outcome of dispatching one inbound frame. It is produced
// once per frame and consumed exactly once to build one acknowledgement.
type Result struct {
	// Command is the decoded command text, echoed in the acknowledgement.
	Command string

	// Accepted reflects the actuator's own success signal, not decoding
	// success. An unknown zone name is a normal negative result, not an
	// error.
	Accepted bool
}

// Dispatcher turns a bounded inbound payload into one actuation call and
// one acknowledgement payload.
type Dispatcher struct {
	actuator Actuator
	logger   Logger
}

// New creates a Dispatcher over the given actuation capability.
func New(actuator Actuator, logger Logger) *Dispatcher {
	return &Dispatcher{
		actuator: actuator,
		logger:   logger,
	}
}

// Dispatch decodes the payload as a UTF-8 command token and invokes the
// actuation capability exactly once.
//
// The command is bounded to the received length and truncated at the first
// NUL, so bytes left over from an earlier, longer message can never leak
// into the command.
//
// Returns:
//   - Result: Exactly one per frame, feeding exactly one acknowledgement
func (d *Dispatcher) Dispatch(payload []byte) Result {
	command := decodeCommand(payload)

	accepted := d.actuator.Actuate(command)

	d.logger.Info("command dispatched",
		"command", command,
		"accepted", accepted,
	)

	return Result{
		Command:  command,
		Accepted: accepted,
	}
}

// AckPayload builds the acknowledgement frame for one dispatch result,
// echoing the command text with a human-readable outcome marker.
func AckPayload(result Result) []byte {
	outcome := "unsuccessfully"
	if result.Accepted {
		outcome = "successfully"
	}
	return []byte(fmt.Sprintf("the command string <%s> was processed %s", result.Command, outcome))
}

// decodeCommand bounds the command text to the received bytes, cut at the
// first NUL.
func decodeCommand(payload []byte) string {
	if i := bytes.IndexByte(payload, 0); i >= 0 {
		payload = payload[:i]
	}
	return string(payload)
}
