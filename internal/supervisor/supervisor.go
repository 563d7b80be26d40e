package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-uplink/internal/audit"
	"github.com/nerrad567/gray-logic-uplink/internal/broker"
	"github.com/nerrad567/gray-logic-uplink/internal/dispatch"
	"github.com/nerrad567/gray-logic-uplink/internal/netlink"
)

// NetworkLink is the subset of the network link used by the supervisor.
type NetworkLink interface {
	Status() netlink.State
	Connect(ctx context.Context) error
}

// BrokerSession is the subset of the broker session used by the supervisor.
type BrokerSession interface {
	State() broker.SessionState
	Connect(ctx context.Context) error
	Subscribe() error
	Poll()
	ReceiveNext() (broker.Frame, bool)
	Publish(topic string, payload []byte) error
	OversizedDropped() uint64
	OverflowDropped() uint64
}

// Commander turns one inbound payload into one actuation result.
type Commander interface {
	Dispatch(payload []byte) dispatch.Result
}

// Recorder persists command history. Best-effort: a failing recorder never
// blocks acknowledgement.
type Recorder interface {
	Record(ctx context.Context, entry audit.Entry) error
}

// Metrics receives operational telemetry. Best-effort and optional.
type Metrics interface {
	WriteSessionEvent(event string)
	WriteCommand(command string, accepted bool)
	WriteHeartbeat()
	WriteDroppedFrames(oversized, overflow uint64)
}

// Logger is the subset of logging used by the supervisor.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Config contains supervisor timing parameters.
type Config struct {
	// DeviceID keys the publish topic namespace.
	DeviceID string

	// PollInterval is the tick cadence. Must be shorter than the broker
	// keep-alive interval or the session is dropped broker-side.
	PollInterval time.Duration

	// HeartbeatInterval is the minimum spacing between liveness publishes.
	HeartbeatInterval time.Duration
}

// Supervisor owns the link, broker session and dispatcher for the process
// lifetime and drives them from a single goroutine.
//
// All session state transitions happen on the tick goroutine; the only
// concurrent input is the broker's bounded inbound queue, drained here with
// non-blocking reads. Nothing in the loop blocks indefinitely except the
// connect paths, and those honour context cancellation.
type Supervisor struct {
	cfg        Config
	link       NetworkLink
	session    BrokerSession
	dispatcher Commander
	recorder   Recorder
	metrics    Metrics
	logger     Logger

	lastHeartbeat time.Time

	// Last drop counts reported to the metrics sink; a new report goes out
	// only when the session's counters have moved.
	lastOversized uint64
	lastOverflow  uint64

	// now is the heartbeat clock, replaceable in tests.
	now func() time.Time
}

// New creates a Supervisor.
//
// Parameters:
//   - cfg: Timing parameters
//   - link: Network association
//   - session: Broker session
//   - dispatcher: Command dispatch
//   - recorder: Command history store, may be nil
//   - metrics: Telemetry sink, may be nil
//   - logger: Destination for loop events
func New(cfg Config, link NetworkLink, session BrokerSession, dispatcher Commander, recorder Recorder, metrics Metrics, logger Logger) *Supervisor {
	return &Supervisor{
		cfg:        cfg,
		link:       link,
		session:    session,
		dispatcher: dispatcher,
		recorder:   recorder,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// Run drives the poll loop until the context is cancelled.
//
// Every tick re-establishes whatever layer has degraded, from the radio up:
// link first, then broker session, then subscription. Only after the full
// stack is healthy are inbound frames drained and the heartbeat serviced.
//
// Returns:
//   - error: ctx.Err() (wrapped) on cancellation; the loop has no other exit
func (s *Supervisor) Run(ctx context.Context) error {
	s.logger.Info("supervisor started",
		"poll_interval", s.cfg.PollInterval,
		"heartbeat_interval", s.cfg.HeartbeatInterval,
	)

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("supervisor stopping")
			return fmt.Errorf("supervisor stopped: %w", ctx.Err())
		case <-ticker.C:
			if err := s.tick(ctx); err != nil {
				return fmt.Errorf("supervisor stopped: %w", err)
			}
		}
	}
}

// tick performs one pass of the supervision cycle.
//
// Returns:
//   - error: Only context cancellation; every operational failure is
//     absorbed and retried on a later tick
func (s *Supervisor) tick(ctx context.Context) error {
	if s.link.Status() != netlink.Connected {
		s.logger.Warn("network link down, re-associating")
		if err := s.link.Connect(ctx); err != nil {
			return err
		}
	}

	if err := s.ensureSession(ctx); err != nil {
		return err
	}

	s.session.Poll()
	if s.session.State() != broker.StateSubscribed {
		// The transport died since we checked. Next tick rebuilds it.
		return nil
	}

	s.drainInbound(ctx)
	s.reportDrops()
	s.serviceHeartbeat()

	return nil
}

// ensureSession walks the session back to Subscribed from whatever state the
// last tick left it in.
func (s *Supervisor) ensureSession(ctx context.Context) error {
	if s.session.State() == broker.StateDisconnected {
		if err := s.session.Connect(ctx); err != nil {
			return err
		}
		if s.metrics != nil {
			s.metrics.WriteSessionEvent("connected")
		}
	}

	if s.session.State() == broker.StateConnected {
		if err := s.session.Subscribe(); err != nil {
			// A refused SUBACK is not terminal; the broker may still be
			// settling. Leave the session Connected and try again next tick.
			s.logger.Warn("devicebound subscribe failed", "error", err)
			return nil
		}
		if s.metrics != nil {
			s.metrics.WriteSessionEvent("subscribed")
		}
	}

	return nil
}

// drainInbound dispatches every queued devicebound frame, publishing exactly
// one acknowledgement per frame.
func (s *Supervisor) drainInbound(ctx context.Context) {
	for {
		frame, ok := s.session.ReceiveNext()
		if !ok {
			return
		}

		result := s.dispatcher.Dispatch(frame.Payload)

		ack := dispatch.AckPayload(result)
		if err := s.session.Publish(broker.EventsTopic(s.cfg.DeviceID), ack); err != nil {
			// At-most-once: the ack is not retried. The command was already
			// actuated; a duplicate ack would misreport a second actuation.
			s.logger.Warn("acknowledgement publish failed",
				"command", result.Command,
				"error", err,
			)
		}

		s.record(ctx, result)
		if s.metrics != nil {
			s.metrics.WriteCommand(result.Command, result.Accepted)
		}
	}
}

// record persists one command outcome, best-effort.
func (s *Supervisor) record(ctx context.Context, result dispatch.Result) {
	if s.recorder == nil {
		return
	}
	entry := audit.NewEntry(result.Command, result.Accepted)
	if err := s.recorder.Record(ctx, entry); err != nil {
		s.logger.Warn("command history write failed",
			"command", result.Command,
			"error", err,
		)
	}
}

// reportDrops forwards the session's dropped-frame counters to the metrics
// sink whenever they have advanced, and logs the movement either way so a
// lossy hub shows up even with telemetry disabled.
func (s *Supervisor) reportDrops() {
	oversized := s.session.OversizedDropped()
	overflow := s.session.OverflowDropped()
	if oversized == s.lastOversized && overflow == s.lastOverflow {
		return
	}

	s.logger.Warn("devicebound frames dropped",
		"oversized", oversized,
		"overflow", overflow,
	)
	if s.metrics != nil {
		s.metrics.WriteDroppedFrames(oversized, overflow)
	}
	s.lastOversized = oversized
	s.lastOverflow = overflow
}

// serviceHeartbeat publishes a liveness frame when the interval has elapsed.
//
// The comparison is monotonic elapsed time, not wall-clock modulo, so a
// delayed tick never skips a whole heartbeat window.
func (s *Supervisor) serviceHeartbeat() {
	now := s.now()
	if !s.lastHeartbeat.IsZero() && now.Sub(s.lastHeartbeat) < s.cfg.HeartbeatInterval {
		return
	}

	payload := []byte(fmt.Sprintf(`{"deviceId":%q,"event":"heartbeat"}`, s.cfg.DeviceID))
	if err := s.session.Publish(broker.EventsTopic(s.cfg.DeviceID), payload); err != nil {
		s.logger.Warn("heartbeat publish failed", "error", err)
		return
	}

	s.lastHeartbeat = now
	if s.metrics != nil {
		s.metrics.WriteHeartbeat()
	}
}
