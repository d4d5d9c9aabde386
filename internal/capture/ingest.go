package capture

import (
	"log/slog"
	"sync/atomic"

	"nexuscap/internal/logging"
)

// Ingest is the frame-arrived callback target. It is invoked by the capture
// subsystem on an arbitrary thread, once per available frame, and must never
// perform disk I/O or blocking waits: its only cost is a device-side copy and
// one lock acquisition.
type Ingest struct {
	pool    FramePool
	buffer  *FrameBuffer
	running *atomic.Bool
	events  *atomic.Uint64
	logger  *slog.Logger
}

// NewIngest wires a frame pool into the shared frame buffer.
func NewIngest(pool FramePool, buffer *FrameBuffer, running *atomic.Bool, events *atomic.Uint64, logger *slog.Logger) *Ingest {
	return &Ingest{
		pool:    pool,
		buffer:  buffer,
		running: running,
		events:  events,
		logger:  logging.NewComponentLogger(logger, "ingest"),
	}
}

// OnFrame handles one frame-arrived notification.
func (i *Ingest) OnFrame() {
	if !i.running.Load() {
		return
	}
	frame := i.pool.TryGetNextFrame()
	if frame == nil {
		// The pool may signal spuriously; not an error.
		return
	}
	defer frame.Release()

	count := i.events.Add(1)
	i.logger.Debug("frame_event", logging.Uint64("count", count))
	i.buffer.Update(frame.Surface())
}
