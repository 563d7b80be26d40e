// Package dispatch decodes devicebound command frames and drives the local
// actuation capability.
//
// The protocol's core correctness property lives here: every received
// frame produces exactly one actuation call and exactly one
// acknowledgement payload. The actuator's answer feeds the ack verbatim;
// an unrecognised command is a normal negative outcome, not an error.
package dispatch
