// Package netlink maintains association with the local radio network.
//
// The link is polled, never pushed: the supervisor checks Status on each
// tick and calls Connect when the radio has dropped off. Connect blocks
// with unbounded fixed-interval retries, which is deliberate for an
// unattended device.
//
// The link also supplies the wall-clock time source used for TLS peer
// certificate validation. When no synchronised clock is available,
// CurrentTime fails and secure handshakes fail closed with it.
package netlink
