// Package daemon ties the capture supervisor to process-level concerns:
// single-instance locking, startup and shutdown ordering, and resource
// cleanup.
//
// The daemon owns the supervisor goroutine. Start acquires the lock file and
// launches the supervisor; Stop cancels it, waits for the current session to
// tear down, and releases the lock. Only one daemon may run per base
// directory since they would otherwise race on the frames directory and the
// manifest.
package daemon
