package manifest

import "time"

// Session is one capture lifecycle of the target process.
type Session struct {
	ID          string
	PID         int32
	Title       string
	Width       int
	Height      int
	StartedAt   time.Time
	EndedAt     *time.Time
	ExitCode    *uint32
	FramesSaved int
}

// Active reports whether the session has not been closed out yet.
func (s *Session) Active() bool { return s.EndedAt == nil }

// Duration is the session length, measured to now for active sessions.
func (s *Session) Duration(now time.Time) time.Duration {
	if s.EndedAt != nil {
		return s.EndedAt.Sub(s.StartedAt)
	}
	return now.Sub(s.StartedAt)
}

// Frame is one still saved to disk during a session.
type Frame struct {
	SessionID string
	Seq       int
	Filename  string
	Width     int
	Height    int
	SavedAt   time.Time
}
