package identity

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
)

// SoftwareElement is an Element backed by in-memory ECDSA keys.
//
// It exists for tests and for deployments without a hardware element.
// Key material lives in process memory, so it offers none of the extraction
// resistance of real hardware.
type SoftwareElement struct {
	serial string
	slots  map[int]*ecdsa.PrivateKey
}

// NewSoftwareElement creates a software element with the given serial and keys.
func NewSoftwareElement(serial string, slots map[int]*ecdsa.PrivateKey) *SoftwareElement {
	return &SoftwareElement{serial: serial, slots: slots}
}

// GenerateSoftwareElement creates a software element with a fresh P-256 key
// in slot 0. Used in tests.
func GenerateSoftwareElement(serial string) (*SoftwareElement, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating element key: %w", err)
	}
	return NewSoftwareElement(serial, map[int]*ecdsa.PrivateKey{0: key}), nil
}

// LoadSoftwareElement creates a software element from a PEM encoded EC
// private key file, placing the key in slot 0.
//
// Parameters:
//   - serial: Serial number to report for this element
//   - path: Path to a PEM file containing an EC PRIVATE KEY or PRIVATE KEY block
//
// Returns:
//   - *SoftwareElement: Element ready for use
//   - error: If the file cannot be read or does not contain an ECDSA key
func LoadSoftwareElement(serial, path string) (*SoftwareElement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading key file: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("key file %s: no PEM block found", path)
	}

	var key *ecdsa.PrivateKey
	switch block.Type {
	case "EC PRIVATE KEY":
		key, err = x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parsing EC private key: %w", err)
		}
	case "PRIVATE KEY":
		parsed, parseErr := x509.ParsePKCS8PrivateKey(block.Bytes)
		if parseErr != nil {
			return nil, fmt.Errorf("parsing private key: %w", parseErr)
		}
		ecKey, ok := parsed.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("key file %s: not an ECDSA key", path)
		}
		key = ecKey
	default:
		return nil, fmt.Errorf("key file %s: unsupported PEM block %q", path, block.Type)
	}

	return NewSoftwareElement(serial, map[int]*ecdsa.PrivateKey{0: key}), nil
}

// Serial returns the element's serial number.
func (e *SoftwareElement) Serial() (string, error) {
	return e.serial, nil
}

// PublicKey returns the public key for the given slot.
func (e *SoftwareElement) PublicKey(slot int) (*ecdsa.PublicKey, error) {
	key, ok := e.slots[slot]
	if !ok {
		return nil, fmt.Errorf("%w: slot %d", ErrNoSuchSlot, slot)
	}
	return &key.PublicKey, nil
}

// Sign signs the digest with the key in the given slot.
func (e *SoftwareElement) Sign(slot int, digest []byte) ([]byte, error) {
	key, ok := e.slots[slot]
	if !ok {
		return nil, fmt.Errorf("%w: slot %d", ErrNoSuchSlot, slot)
	}
	sig, err := ecdsa.SignASN1(rand.Reader, key, digest)
	if err != nil {
		return nil, fmt.Errorf("signing digest: %w", err)
	}
	return sig, nil
}
