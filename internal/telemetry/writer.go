package telemetry

import (
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
)

// Measurement names written by the uplink agent.
const (
	measurementSession   = "uplink_session"
	measurementCommand   = "uplink_command"
	measurementHeartbeat = "uplink_heartbeat"
	measurementDrops     = "uplink_drops"
)

// WriteSessionEvent records a broker session transition (connected,
// disconnected, subscribed).
//
// Non-blocking: the point is queued for batched delivery.
func (c *Client) WriteSessionEvent(event string) {
	if !c.IsConnected() {
		return
	}

	point := influxdb2.NewPoint(
		measurementSession,
		map[string]string{
			"device_id": c.deviceID,
			"event":     event,
		},
		map[string]interface{}{
			"count": 1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteCommand records the outcome of one dispatched command frame.
func (c *Client) WriteCommand(command string, accepted bool) {
	if !c.IsConnected() {
		return
	}

	point := influxdb2.NewPoint(
		measurementCommand,
		map[string]string{
			"device_id": c.deviceID,
		},
		map[string]interface{}{
			"command":  command,
			"accepted": accepted,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteHeartbeat records one periodic liveness publish.
func (c *Client) WriteHeartbeat() {
	if !c.IsConnected() {
		return
	}

	point := influxdb2.NewPoint(
		measurementHeartbeat,
		map[string]string{
			"device_id": c.deviceID,
		},
		map[string]interface{}{
			"count": 1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteDroppedFrames records the cumulative count of inbound frames dropped
// for exceeding the payload limit or overflowing the inbound queue.
func (c *Client) WriteDroppedFrames(oversized, overflow uint64) {
	if !c.IsConnected() {
		return
	}

	point := influxdb2.NewPoint(
		measurementDrops,
		map[string]string{
			"device_id": c.deviceID,
		},
		map[string]interface{}{
			"oversized": int64(oversized), // #nosec G115 -- counter, wraps at int64 max in theory only
			"overflow":  int64(overflow),  // #nosec G115
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
