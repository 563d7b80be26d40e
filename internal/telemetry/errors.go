package telemetry

import "errors"

// Sentinel errors for telemetry operations.
var (
	// ErrDisabled indicates telemetry is disabled in configuration.
	ErrDisabled = errors.New("telemetry disabled")

	// ErrConnectionFailed indicates the InfluxDB server could not be reached.
	ErrConnectionFailed = errors.New("telemetry connection failed")

	// ErrNotConnected indicates an operation was attempted on a closed client.
	ErrNotConnected = errors.New("telemetry not connected")
)
