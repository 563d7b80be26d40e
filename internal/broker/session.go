package broker

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-uplink/internal/retry"
)

// Connection constants.
const (
	// MaxPayloadSize is the inbound payload buffer capacity. The hub's
	// framing does not cap declared lengths, so anything larger is an
	// attacker-controlled oversize and is dropped at this boundary.
	MaxPayloadSize = 256

	// connectTimeout is the maximum time to wait for one CONNACK.
	connectTimeout = 10 * time.Second

	// subscribeTimeout is the maximum time to wait for one SUBACK.
	subscribeTimeout = 5 * time.Second

	// publishTimeout is the maximum time to wait for the transport to
	// accept an outbound frame.
	publishTimeout = 5 * time.Second

	// disconnectQuiesce is the time to wait for pending operations on
	// disconnect, in milliseconds.
	disconnectQuiesce = 1000
)

// SessionState describes the broker session lifecycle.
//
// Disconnected -(Connect)-> Connected -(Subscribe)-> Subscribed
// -(any I/O failure seen by Poll)-> Disconnected. No partial-subscribed
// state is ever exposed; Subscribed requires a confirmed SUBACK.
type SessionState int

const (
	StateDisconnected SessionState = iota
	StateConnected
	StateSubscribed
)

// String returns a human-readable state name.
func (s SessionState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateSubscribed:
		return "subscribed"
	default:
		return "disconnected"
	}
}

// Frame is one complete inbound devicebound message.
type Frame struct {
	Topic   string
	Payload []byte
}

// Config contains broker session parameters.
type Config struct {
	// Host and Port identify the IoT hub's MQTT endpoint.
	Host string
	Port int

	// DeviceID doubles as the MQTT client ID and the topic namespace key.
	DeviceID string

	// Secret is the device credential used as the session password.
	Secret string

	// Keepalive is the MQTT keep-alive interval. The supervisor must call
	// Poll at a shorter cadence or the session is dropped broker-side.
	Keepalive time.Duration

	// InboundQueue is the devicebound frame queue capacity.
	InboundQueue int
}

// Dialer opens the secure stream the broker session runs over. It is
// implemented by the session package; every connect attempt goes through a
// fresh handshake so the TLS identity and clock checks apply each time.
type Dialer interface {
	Handshake(ctx context.Context, host string, port int) (*tls.Conn, error)
}

// Logger is the subset of logging used by the session.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Session is the device's publish/subscribe session with the cloud broker,
// layered on the secure stream from the session package.
//
// The session is driven from the single supervisor goroutine: Connect and
// Subscribe block, Poll and ReceiveNext never do. The paho transport
// delivers inbound frames from its own goroutines into a bounded queue,
// which is the only crossing point.
type Session struct {
	cfg    Config
	dialer Dialer
	policy retry.Policy
	logger Logger

	client pahomqtt.Client

	state   SessionState
	stateMu sync.RWMutex

	inbound   chan Frame
	oversized atomic.Uint64
	overflow  atomic.Uint64

	// newClient is the paho constructor, replaceable in tests.
	newClient func(*pahomqtt.ClientOptions) pahomqtt.Client
}

// New creates a broker session.
//
// Parameters:
//   - cfg: Session parameters
//   - dialer: Secure stream dialer from the session package
//   - policy: Delay between connect attempts
//   - logger: Destination for session events
func New(cfg Config, dialer Dialer, policy retry.Policy, logger Logger) *Session {
	if cfg.InboundQueue <= 0 {
		cfg.InboundQueue = 16
	}
	return &Session{
		cfg:       cfg,
		dialer:    dialer,
		policy:    policy,
		logger:    logger,
		inbound:   make(chan Frame, cfg.InboundQueue),
		newClient: pahomqtt.NewClient,
	}
}

// State returns the current session state.
func (s *Session) State() SessionState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

func (s *Session) setState(state SessionState) {
	s.stateMu.Lock()
	s.state = state
	s.stateMu.Unlock()
}

// Connect establishes the application-layer session over a fresh TLS
// handshake, blocking with fixed-interval retries until the broker accepts
// or the context is cancelled.
//
// The retry policy mirrors the network link's unattended-device stance:
// a broker that is briefly unreachable is not a terminal failure.
//
// Returns:
//   - error: ctx.Err() (wrapped) on cancellation; otherwise nil once Connected
func (s *Session) Connect(ctx context.Context) error {
	s.logger.Info("connecting to broker",
		"host", s.cfg.Host,
		"port", s.cfg.Port,
		"client_id", s.cfg.DeviceID,
	)

	for attempt := 1; ; attempt++ {
		client := s.newClient(s.buildOptions())

		token := client.Connect()
		if token.WaitTimeout(connectTimeout) && token.Error() == nil {
			s.client = client
			s.setState(StateConnected)
			s.logger.Info("broker session established", "attempts", attempt)
			return nil
		}

		err := token.Error()
		if err == nil {
			err = fmt.Errorf("%w: timeout after %v", ErrConnectFailed, connectTimeout)
		}
		s.logger.Warn("broker connect attempt failed",
			"attempt", attempt,
			"error", err,
		)
		client.Disconnect(0)

		if waitErr := s.policy.Wait(ctx); waitErr != nil {
			return fmt.Errorf("broker connect cancelled: %w", waitErr)
		}
	}
}

// Subscribe subscribes to the device's devicebound topic filter.
//
// Idempotent across reconnects: on an already-subscribed session it is a
// no-op. The session only reports Subscribed after the broker confirms
// with a SUBACK.
//
// Returns:
//   - error: ErrNotConnected before Connect, ErrSubscribeFailed (wrapped)
//     when the broker does not confirm
func (s *Session) Subscribe() error {
	switch s.State() {
	case StateSubscribed:
		return nil
	case StateDisconnected:
		return ErrNotConnected
	}

	filter := DeviceboundFilter(s.cfg.DeviceID)
	token := s.client.Subscribe(filter, 0, s.handleInbound)
	if !token.WaitTimeout(subscribeTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrSubscribeFailed, subscribeTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}

	s.setState(StateSubscribed)
	s.logger.Info("devicebound subscription confirmed", "filter", filter)
	return nil
}

// Poll services the session's liveness check. Non-blocking.
//
// Keep-alive pings run inside the transport; Poll's job is detecting that
// the transport has died and degrading the state machine to Disconnected so
// the supervisor's next tick reconnects. It must be called at a cadence
// shorter than the keep-alive interval.
func (s *Session) Poll() {
	if s.State() == StateDisconnected {
		return
	}
	if s.client == nil || !s.client.IsConnectionOpen() {
		s.logger.Warn("broker session lost")
		s.setState(StateDisconnected)
	}
}

// ReceiveNext returns the next fully framed devicebound message, or false
// when none is queued. Non-blocking.
func (s *Session) ReceiveNext() (Frame, bool) {
	select {
	case frame := <-s.inbound:
		return frame, true
	default:
		return Frame{}, false
	}
}

// Publish sends one frame to the given topic, at most once (QoS 0).
//
// Failure degrades to "unsent": the error is surfaced so the caller can
// log it, but nothing retries. A broken session will shortly be
// rediscovered by Poll and rebuilt by the supervisor; retrying here would
// only pile publishes onto a dead transport.
func (s *Session) Publish(topic string, payload []byte) error {
	if s.State() == StateDisconnected || s.client == nil {
		return ErrNotConnected
	}

	token := s.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// OversizedDropped returns how many inbound frames were dropped for
// exceeding MaxPayloadSize.
func (s *Session) OversizedDropped() uint64 {
	return s.oversized.Load()
}

// OverflowDropped returns how many inbound frames were dropped because the
// bounded queue was full.
func (s *Session) OverflowDropped() uint64 {
	return s.overflow.Load()
}

// Close disconnects from the broker, waiting briefly for pending traffic.
func (s *Session) Close() {
	if s.client != nil {
		s.client.Disconnect(disconnectQuiesce)
	}
	s.setState(StateDisconnected)
}

// handleInbound runs on a transport goroutine for every devicebound
// message and moves it into the bounded queue.
//
// Oversize enforcement happens here, before any copy into the frame
// buffer: the declared length is attacker-controlled, the buffer is not.
// The dropped frame is fully consumed by the transport, so the stream
// stays aligned and the next frame parses normally.
func (s *Session) handleInbound(_ pahomqtt.Client, msg pahomqtt.Message) {
	payload := msg.Payload()
	if len(payload) > MaxPayloadSize {
		s.oversized.Add(1)
		s.logger.Warn("dropping oversize devicebound frame",
			"topic", msg.Topic(),
			"size", len(payload),
			"max", MaxPayloadSize,
			"error", ErrPayloadTooLarge,
		)
		return
	}

	// Copy out of the transport's buffer; the frame may sit in the queue
	// past this callback's lifetime.
	frame := Frame{
		Topic:   msg.Topic(),
		Payload: append([]byte(nil), payload...),
	}

	select {
	case s.inbound <- frame:
	default:
		s.overflow.Add(1)
		s.logger.Warn("inbound queue full, dropping devicebound frame",
			"topic", msg.Topic(),
		)
	}
}

// buildOptions creates paho options for one connect attempt.
//
// The transport connection is opened through the dialer's Handshake rather
// than paho's own TLS dial, so the hardware-backed identity and the link
// clock govern every connection. Auto-reconnect stays off: reconnection is
// the supervisor's job, driven through the explicit session state machine,
// not the transport's.
func (s *Session) buildOptions() *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("ssl://%s:%d", s.cfg.Host, s.cfg.Port))
	opts.SetClientID(s.cfg.DeviceID)
	opts.SetUsername(Username(s.cfg.Host, s.cfg.DeviceID))
	opts.SetPassword(s.cfg.Secret)
	opts.SetCustomOpenConnectionFn(func(_ *url.URL, _ pahomqtt.ClientOptions) (net.Conn, error) {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()

		conn, err := s.dialer.Handshake(ctx, s.cfg.Host, s.cfg.Port)
		if err != nil {
			return nil, err
		}
		return conn, nil
	})
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetKeepAlive(s.cfg.Keepalive)
	opts.SetConnectTimeout(connectTimeout)

	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		s.logger.Warn("broker connection lost", "error", err)
		s.setState(StateDisconnected)
	})

	return opts
}
