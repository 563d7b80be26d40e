// Package lighting is the local zone-lighting actuation boundary.
//
// The controller resolves command tokens against the configured zone names
// and hands matches to a hardware hook. Everything beyond that hook —
// drivers, buses, fixtures — belongs to the lighting subsystem, not the
// uplink.
package lighting
