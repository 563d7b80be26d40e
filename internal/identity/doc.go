// Package identity reconstructs the device's TLS client identity from a
// hardware security element.
//
// The element stores the device private key and performs all signing
// internally; the key is never readable by the host. At startup the
// Provider rebuilds the self-signed certificate the device was registered
// with (subject bound to the element's serial number) and wires the
// element into crypto/tls through a crypto.Signer.
//
// An element that does not respond is the one unrecoverable fault in the
// uplink: with no secure identity there is no safe operation, so callers
// halt on ErrElementNotPresent instead of retrying.
package identity
