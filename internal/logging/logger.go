package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"

	"nexuscap/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level   string
	Format  string
	LogPath string
	Console io.Writer
}

// New constructs a slog logger using the provided options. Output goes to the
// log file (append-only) and is mirrored to the console writer.
func New(opts Options) (*slog.Logger, error) {
	levelVar := new(slog.LevelVar)
	levelVar.Set(parseLevel(opts.Level))

	handlers := make([]slog.Handler, 0, 2)

	if opts.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(opts.LogPath), 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
		file, err := os.OpenFile(opts.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		switch strings.ToLower(strings.TrimSpace(opts.Format)) {
		case "", "console":
			handlers = append(handlers, newConsoleHandler(file, levelVar, false))
		case "json":
			handlers = append(handlers, slog.NewJSONHandler(file, &slog.HandlerOptions{Level: levelVar}))
		default:
			file.Close()
			return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
		}
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	color := false
	if f, ok := console.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	handlers = append(handlers, newConsoleHandler(console, levelVar, color))

	return slog.New(newFanoutHandler(handlers...)), nil
}

// NewFromConfig creates the daemon logger writing to capture.log.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{})
	}
	return New(Options{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		LogPath: cfg.LogPath(),
	})
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
