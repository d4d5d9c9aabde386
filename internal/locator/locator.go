// Package locator finds the target process and its primary visible window.
//
// Matching is case-insensitive exact on the executable image name, with a
// window-title substring fallback for the edge cases where the process table
// is not yet consistent with the window table. Absence is not an error: Find
// simply reports false and the caller retries on its own schedule.
package locator

import (
	"log/slog"
	"strings"

	"nexuscap/internal/logging"
)

// Executable names and the display-title fallback for the target application.
const (
	PrimaryExecutable = "HeroesOfTheStorm_x64.exe"
	AltExecutable     = "HeroesOfTheStorm.exe"
	TitleSubstring    = "heroes of the storm"
)

// Window is an opaque OS window handle.
type Window uintptr

// TargetProcess identifies the running instance to capture.
type TargetProcess struct {
	PID    int32
	Window Window
	Title  string
}

// Process is one entry from the OS process table.
type Process struct {
	PID  int32
	Name string
}

// WindowInfo is one entry from the OS window table.
type WindowInfo struct {
	Handle  Window
	PID     int32
	Title   string
	Visible bool
	Owned   bool
}

// ProcessLister enumerates running processes.
type ProcessLister interface {
	Processes() ([]Process, error)
}

// WindowEnumerator enumerates top-level windows.
type WindowEnumerator interface {
	Windows() ([]WindowInfo, error)
}

// Locator combines process and window enumeration into target discovery.
type Locator struct {
	procs  ProcessLister
	wins   WindowEnumerator
	logger *slog.Logger
}

// New constructs a Locator. A nil logger is replaced with a no-op logger.
func New(procs ProcessLister, wins WindowEnumerator, logger *slog.Logger) *Locator {
	return &Locator{
		procs:  procs,
		wins:   wins,
		logger: logging.NewComponentLogger(logger, "locator"),
	}
}

// Find attempts to establish a process/window pair. It never blocks and
// reports false while the target is absent.
func (l *Locator) Find() (TargetProcess, bool) {
	pid, found := l.findProcess()
	if !found {
		// The process table can lag behind the window table right after
		// launch; fall back to the title heuristic.
		if win, ok := l.findWindowByTitle(); ok && win.PID != 0 {
			pid = win.PID
			l.logger.Info("process_found_via_title", logging.Int("pid", int(pid)))
			found = true
		}
	}
	if !found {
		return TargetProcess{}, false
	}

	if win, ok := l.findMainWindow(pid); ok {
		return TargetProcess{PID: pid, Window: win.Handle, Title: win.Title}, true
	}
	if win, ok := l.findWindowByTitle(); ok {
		l.logger.Info("window_found_via_title", logging.Int("pid", int(pid)))
		return TargetProcess{PID: pid, Window: win.Handle, Title: win.Title}, true
	}
	l.logger.Debug("no_window_yet", logging.Int("pid", int(pid)))
	return TargetProcess{}, false
}

func (l *Locator) findProcess() (int32, bool) {
	procs, err := l.procs.Processes()
	if err != nil {
		l.logger.Debug("process_enumeration_failed", logging.Error(err))
		return 0, false
	}
	for _, p := range procs {
		if strings.EqualFold(p.Name, PrimaryExecutable) || strings.EqualFold(p.Name, AltExecutable) {
			return p.PID, true
		}
	}
	return 0, false
}

// findMainWindow selects the first visible, unowned top-level window belonging
// to pid.
func (l *Locator) findMainWindow(pid int32) (WindowInfo, bool) {
	wins, err := l.wins.Windows()
	if err != nil {
		l.logger.Debug("window_enumeration_failed", logging.Error(err))
		return WindowInfo{}, false
	}
	for _, w := range wins {
		if w.PID == pid && w.Visible && !w.Owned {
			return w, true
		}
	}
	return WindowInfo{}, false
}

func (l *Locator) findWindowByTitle() (WindowInfo, bool) {
	wins, err := l.wins.Windows()
	if err != nil {
		return WindowInfo{}, false
	}
	for _, w := range wins {
		if w.Visible && strings.Contains(strings.ToLower(w.Title), TitleSubstring) {
			return w, true
		}
	}
	return WindowInfo{}, false
}
