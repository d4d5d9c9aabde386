// Package heartbeat maintains a small JSON state file other processes can
// poll to see what the daemon is doing. The file is replaced atomically so a
// reader never observes a partial document.
package heartbeat

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"nexuscap/internal/capture"
	"nexuscap/internal/fileutil"
	"nexuscap/internal/logging"
)

// Snapshot is the on-disk heartbeat document.
type Snapshot struct {
	State       string    `json:"state"`
	SessionID   string    `json:"session_id,omitempty"`
	PID         int32     `json:"pid,omitempty"`
	FrameEvents uint64    `json:"frame_events"`
	FramesSaved int       `json:"frames_saved"`
	DaemonPID   int       `json:"daemon_pid"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Age reports how long ago the heartbeat was written.
func (s *Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.UpdatedAt)
}

// Writer persists supervisor state transitions. It implements
// capture.StateSink; a write failure is logged and otherwise ignored since the
// heartbeat is advisory.
type Writer struct {
	path   string
	logger *slog.Logger
	now    func() time.Time

	mu sync.Mutex
}

// NewWriter creates a heartbeat writer targeting path.
func NewWriter(path string, logger *slog.Logger) *Writer {
	return &Writer{
		path:   path,
		logger: logging.NewComponentLogger(logger, "heartbeat"),
		now:    time.Now,
	}
}

// StateChanged writes a fresh snapshot for the given transition.
func (w *Writer) StateChanged(state capture.State, sessionID string, pid int32, frameEvents uint64, framesSaved int) {
	snap := Snapshot{
		State:       string(state),
		SessionID:   sessionID,
		PID:         pid,
		FrameEvents: frameEvents,
		FramesSaved: framesSaved,
		DaemonPID:   os.Getpid(),
		UpdatedAt:   w.now().UTC(),
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := fileutil.WriteJSONAtomic(w.path, &snap); err != nil {
		w.logger.Warn("heartbeat_write_failed", logging.Error(err))
	}
}

// Clear removes the heartbeat file, typically at daemon shutdown.
func (w *Writer) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := os.Remove(w.path); err != nil && !os.IsNotExist(err) {
		w.logger.Warn("heartbeat_remove_failed", logging.Error(err))
	}
}

// Read loads a heartbeat snapshot from path. os.IsNotExist errors pass
// through so callers can distinguish "daemon not running" from corruption.
func Read(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse heartbeat %s: %w", path, err)
	}
	return &snap, nil
}
