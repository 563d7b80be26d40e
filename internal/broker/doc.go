// Package broker maintains the device's publish/subscribe session with the
// cloud IoT hub.
//
// This package manages:
//   - Session establishment over the mutually authenticated TLS stream
//   - The devicebound subscription (confirmed before Subscribed is reported)
//   - A bounded inbound frame queue with oversize enforcement
//   - At-most-once acknowledgement and telemetry publishes
//
// # Wire conventions
//
// The hub speaks plain MQTT with Azure IoT Hub naming:
//
//	publish:   devices/{deviceId}/messages/events/
//	subscribe: devices/{deviceId}/messages/devicebound/#
//	username:  {brokerHost}/{deviceId}/api-version=2018-06-30
//
// Payloads are plain bytes carrying application-level text commands; there
// is no structured encoding beyond the broker's own framing.
//
// # Session state machine
//
// Disconnected → Connected → Subscribed, degraded back to Disconnected by
// any I/O failure observed by Poll. The supervisor owns the transitions;
// the transport's own auto-reconnect is disabled so there is exactly one
// reconnection authority.
package broker
