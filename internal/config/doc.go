// Package config resolves the capture service configuration from the
// environment.
//
// The only functional knob is NEXUS_BASE_DIR, which selects the base output
// directory (the working directory when unset). NEXUS_LOG_LEVEL and
// NEXUS_LOG_FORMAT tune diagnostics. Every path the daemon and CLI touch is
// derived here: the frames directory, the capture log, and the state directory
// holding the lock file, heartbeat, and session manifest.
//
// Always obtain paths through this package so downstream code agrees on the
// sessions/current layout and directories exist before they are used.
package config
