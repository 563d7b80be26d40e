// Package telemetry streams uplink operational metrics to InfluxDB v2.
//
// The client batches points and writes asynchronously so the supervisor's
// control loop never blocks on the time-series backend. Telemetry is
// optional: when disabled in configuration, Connect returns ErrDisabled and
// the agent runs without it.
//
// Measurements:
//   - uplink_session: broker session transitions (connect, subscribe, lost)
//   - uplink_command: per-command dispatch outcomes
//   - uplink_heartbeat: periodic liveness publishes
//   - uplink_drops: cumulative dropped-frame counters
//
// Write errors surface through an optional callback set with SetOnError;
// they are logged, never fatal.
package telemetry
