// Package session establishes the mutually authenticated TLS stream
// between the device and the cloud broker.
//
// Client authentication uses the hardware-backed identity from the
// identity package; the private key never leaves the security element.
// Peer validation runs against the network link's time source rather than
// the host clock, and fails closed when no synchronised time exists.
package session
