// Package logging constructs the slog loggers used across the capture
// service.
//
// Every event is appended as one UTC-timestamped line to capture.log under the
// session directory and mirrored to stderr for console visibility. The console
// sink colorizes levels only when stderr is a terminal; the file sink always
// writes plain text (or JSON when NEXUS_LOG_FORMAT=json).
//
// The package also supplies slog.Attr helper aliases and the standardized
// field names (component, session_id, pid, event_type) so log lines stay
// greppable across components.
package logging
