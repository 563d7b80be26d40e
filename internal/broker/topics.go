package broker

import "fmt"

// apiVersion is the IoT hub API version pinned in the session username.
const apiVersion = "2018-06-30"

// EventsTopic returns the topic this device publishes telemetry and
// acknowledgements to.
//
// Example: devices/garden-gateway-01/messages/events/
func EventsTopic(deviceID string) string {
	return fmt.Sprintf("devices/%s/messages/events/", deviceID)
}

// DeviceboundFilter returns the subscription filter for messages addressed
// to this device.
//
// Example: devices/garden-gateway-01/messages/devicebound/#
func DeviceboundFilter(deviceID string) string {
	return fmt.Sprintf("devices/%s/messages/devicebound/#", deviceID)
}

// Username returns the session username the hub expects:
// {brokerHost}/{deviceId}/api-version={version}.
func Username(brokerHost, deviceID string) string {
	return fmt.Sprintf("%s/%s/api-version=%s", brokerHost, deviceID, apiVersion)
}
