package identity

import (
	"crypto/ecdsa"
	"crypto/tls"
	"errors"
	"net"
	"testing"
)

// absentElement simulates a security element that does not respond.
type absentElement struct{}

func (absentElement) Serial() (string, error) {
	return "", ErrElementNotPresent
}

func (absentElement) PublicKey(int) (*ecdsa.PublicKey, error) {
	return nil, ErrElementNotPresent
}

func (absentElement) Sign(int, []byte) ([]byte, error) {
	return nil, ErrElementNotPresent
}

func TestInitialize(t *testing.T) {
	element, err := GenerateSoftwareElement("0123EE45F2A9")
	if err != nil {
		t.Fatalf("GenerateSoftwareElement() error = %v", err)
	}

	provider := NewProvider(element, "garden-gateway-01", 0)
	id, err := provider.Initialize()
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	if id.DeviceID != "garden-gateway-01" {
		t.Errorf("DeviceID = %q, want %q", id.DeviceID, "garden-gateway-01")
	}
	if id.Serial != "0123EE45F2A9" {
		t.Errorf("Serial = %q, want element serial", id.Serial)
	}
	if id.Leaf == nil {
		t.Fatal("Leaf should not be nil")
	}
	if id.Leaf.Subject.CommonName != "0123EE45F2A9" {
		t.Errorf("certificate CN = %q, want element serial", id.Leaf.Subject.CommonName)
	}
	if err := id.Leaf.CheckSignatureFrom(id.Leaf); err != nil {
		t.Errorf("certificate should be self-signed: %v", err)
	}
}

func TestInitialize_StableIdentity(t *testing.T) {
	element, err := GenerateSoftwareElement("SN001")
	if err != nil {
		t.Fatalf("GenerateSoftwareElement() error = %v", err)
	}
	provider := NewProvider(element, "dev-01", 0)

	first, err := provider.Initialize()
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	second, err := provider.Initialize()
	if err != nil {
		t.Fatalf("Initialize() again error = %v", err)
	}

	// ECDSA signatures are randomised, so the DER bytes differ run to run.
	// The identity itself must not: same subject, serial number, validity
	// and public key, so the broker-side thumbprint registration based on
	// these fields keeps matching.
	if first.Leaf.Subject.CommonName != second.Leaf.Subject.CommonName {
		t.Error("subject changed between reconstructions")
	}
	if first.Leaf.SerialNumber.Cmp(second.Leaf.SerialNumber) != 0 {
		t.Error("serial number changed between reconstructions")
	}
	if !first.Leaf.NotBefore.Equal(second.Leaf.NotBefore) || !first.Leaf.NotAfter.Equal(second.Leaf.NotAfter) {
		t.Error("validity window changed between reconstructions")
	}
	if !first.Leaf.PublicKey.(*ecdsa.PublicKey).Equal(second.Leaf.PublicKey) {
		t.Error("public key changed between reconstructions")
	}
}

func TestInitialize_ElementNotPresent(t *testing.T) {
	provider := NewProvider(absentElement{}, "dev-01", 0)

	_, err := provider.Initialize()
	if err == nil {
		t.Fatal("Initialize() = nil, want error for absent element")
	}
	if !errors.Is(err, ErrElementNotPresent) {
		t.Errorf("Initialize() error = %v, want ErrElementNotPresent", err)
	}
}

func TestInitialize_UnprovisionedSlot(t *testing.T) {
	element, err := GenerateSoftwareElement("SN001")
	if err != nil {
		t.Fatalf("GenerateSoftwareElement() error = %v", err)
	}

	provider := NewProvider(element, "dev-01", 7)

	_, err = provider.Initialize()
	if !errors.Is(err, ErrNoSuchSlot) {
		t.Errorf("Initialize() error = %v, want ErrNoSuchSlot", err)
	}
}

// TestIdentity_TLSHandshake proves the element-backed signer works inside a
// real TLS handshake: the client authenticates with the reconstructed
// certificate and the private key operations run through the element.
func TestIdentity_TLSHandshake(t *testing.T) {
	element, err := GenerateSoftwareElement("SN-HANDSHAKE")
	if err != nil {
		t.Fatalf("GenerateSoftwareElement() error = %v", err)
	}
	id, err := NewProvider(element, "dev-01", 0).Initialize()
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	// Server side also uses the identity cert; the point is exercising the
	// signer on both ends of a handshake over an in-memory pipe.
	serverConn, clientConn := net.Pipe()

	serverCfg := &tls.Config{
		Certificates: []tls.Certificate{id.Certificate},
		ClientAuth:   tls.RequireAnyClientCert,
		MinVersion:   tls.VersionTLS12,
	}
	clientCfg := &tls.Config{
		Certificates:       []tls.Certificate{id.Certificate},
		InsecureSkipVerify: true,
		MinVersion:         tls.VersionTLS12,
	}

	server := tls.Server(serverConn, serverCfg)
	client := tls.Client(clientConn, clientCfg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Handshake()
	}()

	if err := client.Handshake(); err != nil {
		t.Fatalf("client handshake error = %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("server handshake error = %v", err)
	}

	state := server.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		t.Fatal("server saw no client certificate")
	}
	if got := state.PeerCertificates[0].Subject.CommonName; got != "SN-HANDSHAKE" {
		t.Errorf("client certificate CN = %q, want element serial", got)
	}

	client.Close()
	server.Close()
}
