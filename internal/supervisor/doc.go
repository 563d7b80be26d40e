// Package supervisor drives the uplink agent's single-threaded control loop.
//
// One goroutine owns the whole connectivity stack: it re-associates the
// network link when it drops, rebuilds the broker session and subscription
// when they degrade, drains inbound command frames through the dispatcher
// with exactly one acknowledgement each, and publishes periodic heartbeats.
//
// Failure handling is layered: operational errors (a lost session, a failed
// publish, a slow history write) are logged and absorbed, with the next tick
// responsible for recovery. Only context cancellation exits the loop.
package supervisor
