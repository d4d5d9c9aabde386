package capture

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"nexuscap/internal/logging"
)

// TextureRef is a reference-counted texture handle. Snapshots retain the
// underlying texture so it outlives a buffer reallocation triggered by a
// dimension change.
type TextureRef struct {
	tex  Texture
	refs atomic.Int32
}

func newTextureRef(tex Texture) *TextureRef {
	r := &TextureRef{tex: tex}
	r.refs.Store(1)
	return r
}

// Texture returns the referenced texture. Valid until Release.
func (r *TextureRef) Texture() Texture { return r.tex }

func (r *TextureRef) retain() { r.refs.Add(1) }

// Release drops one reference, freeing the texture when the last holder lets
// go.
func (r *TextureRef) Release() {
	if r.refs.Add(-1) == 0 {
		r.tex.Release()
	}
}

// FrameBuffer is the mutex-guarded single-slot holder for the most recent
// complete frame. The lock covers only texture allocation and the device-side
// copy, never disk I/O.
type FrameBuffer struct {
	dev    Device
	logger *slog.Logger

	mu     sync.Mutex
	cur    *TextureRef
	width  int
	height int
}

// NewFrameBuffer creates an empty buffer backed by dev.
func NewFrameBuffer(dev Device, logger *slog.Logger) *FrameBuffer {
	return &FrameBuffer{
		dev:    dev,
		logger: logging.NewComponentLogger(logger, "frame-buffer"),
	}
}

// Update copies src into the buffer, reallocating when dimensions change.
// Allocation or copy failure drops the frame silently apart from a debug log.
// Same-size updates overwrite in place; a snapshot read concurrently with such
// an overwrite may observe a torn frame, which is accepted at the 1 Hz
// consumption cadence.
func (b *FrameBuffer) Update(src Texture) {
	w, h := src.Width(), src.Height()
	if w <= 0 || h <= 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cur == nil || b.width != w || b.height != h {
		tex, err := b.dev.NewTexture(w, h)
		if err != nil {
			b.logger.Debug("texture_alloc_failed", logging.Error(err), logging.Int("width", w), logging.Int("height", h))
			return
		}
		if b.cur != nil {
			b.cur.Release()
		}
		b.cur = newTextureRef(tex)
		b.width = w
		b.height = h
		b.logger.Info("shared_texture_recreated", logging.Int("width", w), logging.Int("height", h))
	}

	if err := b.dev.Copy(b.cur.tex, src); err != nil {
		b.logger.Debug("texture_copy_failed", logging.Error(err))
	}
}

// Snapshot returns a retained handle to the latest frame and its dimensions,
// or ok=false before the first frame arrives. The caller must Release the
// handle.
func (b *FrameBuffer) Snapshot() (ref *TextureRef, width, height int, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cur == nil {
		return nil, 0, 0, false
	}
	b.cur.retain()
	return b.cur, b.width, b.height, true
}

// Close releases the buffer's own reference. Outstanding snapshot handles
// remain valid until released.
func (b *FrameBuffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cur != nil {
		b.cur.Release()
		b.cur = nil
		b.width = 0
		b.height = 0
	}
}
