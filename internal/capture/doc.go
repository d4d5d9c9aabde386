// Package capture implements the frame capture pipeline: the shared frame
// buffer, the asynchronous frame ingest callback, the 1 Hz periodic saver,
// and the supervisor state machine that drives session lifecycle across
// target process restarts.
//
// The platform capture subsystem is consumed through the Backend capability
// boundary (device, target, frame pool, session, process handle), so the
// pipeline itself stays platform-free and fully testable with fakes.
//
// Concurrency model: the ingest callback runs on whatever thread the capture
// subsystem dispatches from and only performs a locked texture copy; the saver
// runs on its own goroutine with a drift-free absolute schedule; the
// supervisor is sequential and blocks only on the monitored process handle.
// Shared state is limited to the frame buffer (mutex), the running flag, and
// the frame event counter (both atomic).
package capture
