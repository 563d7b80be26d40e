// Package audit keeps a local history of dispatched commands in SQLite.
//
// The history answers "what did this device actuate, and when" without the
// cloud: acknowledgements are at-most-once and the broker link is not
// trusted to exist. Recording is best-effort — a failed insert is logged
// by the supervisor and never interferes with the command path.
package audit
