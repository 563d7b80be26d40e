package identity

import (
	"crypto/ecdsa"
	"errors"
)

// Sentinel errors for security element operations.
var (
	// ErrElementNotPresent indicates the security element did not respond.
	// This is the only unrecoverable error in the uplink: without a hardware
	// identity the device cannot authenticate and must halt.
	ErrElementNotPresent = errors.New("identity: security element not present")

	// ErrNoSuchSlot indicates the requested key slot is not provisioned.
	ErrNoSuchSlot = errors.New("identity: key slot not provisioned")
)

// Element models a hardware security element holding device key material.
//
// The private key never leaves the element: callers obtain the public key
// and ask the element to sign digests, and nothing more. Implementations
// exist per target element; SoftwareElement backs tests and software-only
// deployments.
//
// The element is a single shared resource. The uplink only touches it from
// the startup and handshake paths, never concurrently.
type Element interface {
	// Serial returns the element's unique serial number.
	Serial() (string, error)

	// PublicKey returns the public half of the key stored in the given slot.
	PublicKey(slot int) (*ecdsa.PublicKey, error)

	// Sign signs the given digest with the key in the given slot and
	// returns an ASN.1 DER encoded ECDSA signature.
	Sign(slot int, digest []byte) ([]byte, error)
}
