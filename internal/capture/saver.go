package capture

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"nexuscap/internal/bmp"
	"nexuscap/internal/fileutil"
	"nexuscap/internal/logging"
)

const (
	// DefaultSaveInterval is the fixed save cadence.
	DefaultSaveInterval = time.Second
	// stallAfter is how long the saver tolerates zero frame events before
	// emitting a stall diagnostic.
	stallAfter = 2 * time.Second

	frameTimestampLayout = "2006-01-02T15-04-05.000"
)

// Saver drains the shared frame buffer to disk on a fixed schedule.
type Saver struct {
	dev       Device
	buffer    *FrameBuffer
	dir       string
	sessionID string
	interval  time.Duration
	clock     Clock
	running   *atomic.Bool
	events    *atomic.Uint64
	recorder  Recorder
	logger    *slog.Logger

	start time.Time
	seq   int
	saved atomic.Int64
}

// NewSaver constructs a saver for one session. recorder may be nil.
func NewSaver(dev Device, buffer *FrameBuffer, dir, sessionID string, interval time.Duration, clock Clock, running *atomic.Bool, events *atomic.Uint64, recorder Recorder, logger *slog.Logger) *Saver {
	if interval <= 0 {
		interval = DefaultSaveInterval
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &Saver{
		dev:       dev,
		buffer:    buffer,
		dir:       dir,
		sessionID: sessionID,
		interval:  interval,
		clock:     clock,
		running:   running,
		events:    events,
		recorder:  recorder,
		logger:    logging.NewComponentLogger(logger, "saver"),
	}
}

// Saved reports how many frames this saver wrote. Safe to call while the
// saver is running.
func (s *Saver) Saved() int { return int(s.saved.Load()) }

// Run executes the save loop until the running flag clears or ctx is
// cancelled. The schedule is absolute: each wake time is derived from the
// previous target, not from "now", so copy and encode time does not
// accumulate drift.
func (s *Saver) Run(ctx context.Context) {
	s.start = s.clock.Now()
	next := s.start

	for {
		next = next.Add(s.interval)
		if wait := next.Sub(s.clock.Now()); wait > 0 {
			select {
			case <-ctx.Done():
				return
			case <-s.clock.After(wait):
			}
		} else if ctx.Err() != nil {
			return
		}
		if !s.running.Load() {
			return
		}
		s.tick(ctx)
	}
}

func (s *Saver) tick(ctx context.Context) {
	now := s.clock.Now()
	if s.events.Load() == 0 {
		if now.Sub(s.start) > stallAfter {
			s.logger.Warn("capture_stalled_no_events", logging.Duration("elapsed", now.Sub(s.start)))
		}
		return
	}

	ref, width, height, ok := s.buffer.Snapshot()
	if !ok {
		return
	}
	bgra, err := s.dev.Download(ref.Texture())
	ref.Release()
	if err != nil {
		s.logger.Warn("frame_download_failed", logging.Error(err))
		return
	}

	name := fmt.Sprintf("%sZ_%05d.bmp", now.UTC().Format(frameTimestampLayout), s.seq)
	path := filepath.Join(s.dir, name)
	if err := fileutil.WriteAtomic(path, func(w io.Writer) error {
		return bmp.Encode(w, bgra, width, height)
	}); err != nil {
		s.logger.Warn("frame_write_failed", logging.Error(err), logging.String("file", name))
		return
	}

	if s.recorder != nil {
		if err := s.recorder.RecordFrame(ctx, s.sessionID, s.seq, name, width, height, now); err != nil {
			s.logger.Warn("frame_record_failed", logging.Error(err))
		}
	}
	s.logger.Info("frame_saved",
		logging.Int("index", s.seq),
		logging.Int("width", width),
		logging.Int("height", height),
		logging.Uint64("events", s.events.Load()),
	)
	s.seq++
	s.saved.Add(1)
}
