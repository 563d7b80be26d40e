package identity

import (
	"crypto"
	"crypto/rand"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"io"
	"math/big"
	"time"
)

// Validity window for the reconstructed self-signed certificate.
//
// The window is fixed so the certificate the provider reconstructs is the
// same one the device was registered with: the broker matches it by
// thumbprint, so subject, key and validity must be stable across reboots.
var (
	certNotBefore = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	certNotAfter  = time.Date(2050, time.January, 1, 0, 0, 0, 0, time.UTC)
)

// Identity is the device's cryptographic identity towards the broker.
//
// The private key stays inside the security element; Certificate's key is a
// crypto.Signer that delegates every operation to the element.
type Identity struct {
	// DeviceID is the device identifier registered with the IoT hub.
	DeviceID string

	// Serial is the security element's serial number. The certificate
	// subject is bound to it.
	Serial string

	// Certificate is the self-signed client certificate with the
	// element-backed signer, ready for tls.Config.
	Certificate tls.Certificate

	// Leaf is the parsed certificate.
	Leaf *x509.Certificate
}

// Provider reconstructs the device identity from a security element.
type Provider struct {
	element  Element
	deviceID string
	keySlot  int
}

// NewProvider creates a Provider for the given element and key slot.
func NewProvider(element Element, deviceID string, keySlot int) *Provider {
	return &Provider{
		element:  element,
		deviceID: deviceID,
		keySlot:  keySlot,
	}
}

// Initialize reconstructs the device's self-signed certificate from the
// security element.
//
// The certificate subject common name is the element's serial number, the
// public key is the slot's stored key, and the signature is produced by the
// element itself. Reconstruction is deterministic in identity terms (same
// subject, key and validity for the same hardware and slot), so it is safe
// to call once at startup and keep for the process lifetime. No network I/O.
//
// Returns:
//   - *Identity: Reconstructed identity ready for TLS client authentication
//   - error: ErrElementNotPresent (wrapped) if the element does not respond
func (p *Provider) Initialize() (*Identity, error) {
	serial, err := p.element.Serial()
	if err != nil {
		return nil, fmt.Errorf("reading element serial: %w", err)
	}

	pub, err := p.element.PublicKey(p.keySlot)
	if err != nil {
		return nil, fmt.Errorf("reading slot %d public key: %w", p.keySlot, err)
	}

	signer := &elementSigner{element: p.element, slot: p.keySlot, pub: pub}

	template := &x509.Certificate{
		SerialNumber: certSerialNumber(serial, p.keySlot),
		Subject: pkix.Name{
			CommonName: serial,
		},
		NotBefore:             certNotBefore,
		NotAfter:              certNotAfter,
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, pub, signer)
	if err != nil {
		return nil, fmt.Errorf("reconstructing certificate: %w", err)
	}

	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("parsing reconstructed certificate: %w", err)
	}

	return &Identity{
		DeviceID: p.deviceID,
		Serial:   serial,
		Certificate: tls.Certificate{
			Certificate: [][]byte{der},
			PrivateKey:  signer,
			Leaf:        leaf,
		},
		Leaf: leaf,
	}, nil
}

// certSerialNumber derives a stable X.509 serial number from the element
// serial and slot index.
func certSerialNumber(serial string, slot int) *big.Int {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s/%d", serial, slot)))
	// Positive 63-bit value keeps every TLS stack happy.
	n := new(big.Int).SetBytes(sum[:8])
	return n.Rsh(n, 1)
}

// elementSigner is a crypto.Signer that delegates to the security element.
// It gives crypto/tls and crypto/x509 a signing capability without ever
// holding the private key in process memory.
type elementSigner struct {
	element Element
	slot    int
	pub     crypto.PublicKey
}

// Public returns the slot's public key.
func (s *elementSigner) Public() crypto.PublicKey {
	return s.pub
}

// Sign asks the element to sign the digest. The rand source is ignored; the
// element generates its own nonces internally.
func (s *elementSigner) Sign(_ io.Reader, digest []byte, _ crypto.SignerOpts) ([]byte, error) {
	return s.element.Sign(s.slot, digest)
}
