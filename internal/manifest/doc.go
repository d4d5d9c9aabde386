// Package manifest persists capture session and frame records in SQLite.
//
// The manifest is an observability surface, not a control channel: the daemon
// is the only writer, and the CLI reads it to answer "what has been captured".
// Losing the database loses history but never affects capture itself.
package manifest
