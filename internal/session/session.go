package session

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/nerrad567/gray-logic-uplink/internal/identity"
)

// Sentinel errors for secure session establishment.
var (
	// ErrPeerRejected indicates the broker's certificate chain failed
	// validation.
	ErrPeerRejected = errors.New("session: peer certificate rejected")

	// ErrClockUnavailable indicates no trusted wall-clock time was
	// available for validity checks. The handshake fails closed.
	ErrClockUnavailable = errors.New("session: clock unavailable, failing closed")

	// ErrHandshakeFailed indicates the TLS handshake did not complete.
	ErrHandshakeFailed = errors.New("session: handshake failed")
)

// dialTimeout bounds the TCP connect preceding a handshake.
const dialTimeout = 30 * time.Second

// Clock supplies the current time for certificate validity checks.
// It returns an error when no synchronised time source exists.
type Clock func() (time.Time, error)

// Session builds TLS client sessions authenticated by the hardware-backed
// device identity.
//
// Every private-key operation during a handshake runs inside the security
// element via the identity's crypto.Signer. Peer certificates are validated
// at the link's current time; with no valid clock the handshake fails
// closed rather than accept an unchecked peer.
//
// Repeated Handshake calls after a failure start fresh with no residual
// state.
type Session struct {
	identity *identity.Identity
	clock    Clock
}

// New creates a Session for the given identity and time source.
func New(id *identity.Identity, clock Clock) *Session {
	return &Session{
		identity: id,
		clock:    clock,
	}
}

// TLSConfig returns a client TLS configuration for the given broker host.
//
// Standard chain verification is replaced by verifyPeer so the validity
// check uses the link clock instead of the host clock. roots selects the
// trust anchors; nil means the system pool.
func (s *Session) TLSConfig(serverName string, roots *x509.CertPool) *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		GetClientCertificate: func(*tls.CertificateRequestInfo) (*tls.Certificate, error) {
			return &s.identity.Certificate, nil
		},
		// Verification happens in VerifyPeerCertificate with the link
		// clock; this does not disable it.
		InsecureSkipVerify:    true,
		VerifyPeerCertificate: s.verifyPeer(serverName, roots),
	}
}

// Handshake dials the broker and completes a fresh TLS handshake.
//
// Parameters:
//   - ctx: Context bounding dial and handshake
//   - host, port: Broker endpoint
//
// Returns:
//   - *tls.Conn: Established secure stream
//   - error: ErrClockUnavailable, ErrPeerRejected or ErrHandshakeFailed (wrapped)
func (s *Session) Handshake(ctx context.Context, host string, port int) (*tls.Conn, error) {
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: dialTimeout},
		Config:    s.TLSConfig(host, nil),
	}

	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, fmt.Sprintf("%d", port)))
	if err != nil {
		if errors.Is(err, ErrClockUnavailable) || errors.Is(err, ErrPeerRejected) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
	}

	return conn.(*tls.Conn), nil
}

// verifyPeer builds the peer verification callback for one handshake.
//
// The chain is verified against roots at the link's current time, and the
// leaf must match the broker hostname.
func (s *Session) verifyPeer(serverName string, roots *x509.CertPool) func([][]byte, [][]*x509.Certificate) error {
	return func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		now, err := s.clock()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrClockUnavailable, err)
		}

		if len(rawCerts) == 0 {
			return fmt.Errorf("%w: no certificate presented", ErrPeerRejected)
		}

		certs := make([]*x509.Certificate, 0, len(rawCerts))
		for _, raw := range rawCerts {
			cert, parseErr := x509.ParseCertificate(raw)
			if parseErr != nil {
				return fmt.Errorf("%w: parsing certificate: %v", ErrPeerRejected, parseErr)
			}
			certs = append(certs, cert)
		}

		intermediates := x509.NewCertPool()
		for _, cert := range certs[1:] {
			intermediates.AddCert(cert)
		}

		opts := x509.VerifyOptions{
			Roots:         roots,
			Intermediates: intermediates,
			CurrentTime:   now,
			DNSName:       serverName,
		}
		if _, err := certs[0].Verify(opts); err != nil {
			return fmt.Errorf("%w: %v", ErrPeerRejected, err)
		}

		return nil
	}
}
