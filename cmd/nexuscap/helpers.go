package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"nexuscap/internal/manifest"
)

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatDuration(d time.Duration) string {
	return d.Truncate(time.Second).String()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatExit(s *manifest.Session) string {
	if s.Active() {
		return "-"
	}
	if s.ExitCode == nil {
		return "unknown"
	}
	return fmt.Sprintf("%d", *s.ExitCode)
}

func sessionRow(s *manifest.Session, now time.Time) []string {
	state := "ended"
	if s.Active() {
		state = "active"
	}
	return []string{
		shortID(s.ID),
		fmt.Sprintf("%d", s.PID),
		s.Title,
		fmt.Sprintf("%dx%d", s.Width, s.Height),
		formatTime(s.StartedAt),
		formatDuration(s.Duration(now)),
		fmt.Sprintf("%d", s.FramesSaved),
		formatExit(s),
		state,
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
