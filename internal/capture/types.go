package capture

import (
	"context"
	"errors"
	"time"

	"nexuscap/internal/locator"
)

// ErrUnsupported is returned by backends on platforms without a capture
// subsystem.
var ErrUnsupported = errors.New("capture: not supported on this platform")

// Texture is an opaque device-resident image.
type Texture interface {
	Width() int
	Height() int
	Release()
}

// Frame is one delivered capture frame. Surface stays valid until Release.
type Frame interface {
	Surface() Texture
	Release()
}

// Device is a device/context pair capable of allocating textures, copying
// between them, and downloading pixels to host memory as BGRA rows.
type Device interface {
	NewTexture(width, height int) (Texture, error)
	Copy(dst, src Texture) error
	Download(src Texture) ([]byte, error)
	Close()
}

// Target is a capture target derived from a window handle.
type Target interface {
	Size() (width, height int)
}

// FramePool produces frames for a target. The registered callback is invoked
// on an arbitrary thread whenever a frame may be available; registering nil
// revokes it.
type FramePool interface {
	TryGetNextFrame() Frame
	OnFrameArrived(fn func())
	Close()
}

// Session owns a started capture bound to a frame pool.
type Session interface {
	Start() error
	Close()
}

// ProcessHandle monitors a process for exit.
type ProcessHandle interface {
	// Wait blocks until the process exits or ctx is done, polling at the
	// given interval. ok reports whether an exit was observed; exitCode is
	// only meaningful when ok and known are both true.
	Wait(ctx context.Context, poll time.Duration) (exitCode uint32, known bool, ok bool)
	Close()
}

// Backend is the platform capture capability boundary.
type Backend interface {
	NewDevice() (Device, error)
	NewTarget(win locator.Window) (Target, error)
	NewFramePool(dev Device, target Target, width, height int) (FramePool, error)
	NewSession(pool FramePool, target Target) (Session, error)
	OpenProcess(pid int32) (ProcessHandle, error)
}

// TargetLocator is the discovery dependency of the supervisor.
type TargetLocator interface {
	Find() (locator.TargetProcess, bool)
}

// Recorder persists session and frame records. Implemented by the manifest
// store; a nil Recorder disables persistence.
type Recorder interface {
	BeginSession(ctx context.Context, id string, pid int32, title string, width, height int, startedAt time.Time) error
	EndSession(ctx context.Context, id string, exitCode uint32, exitKnown bool, endedAt time.Time) error
	RecordFrame(ctx context.Context, sessionID string, seq int, filename string, width, height int, savedAt time.Time) error
}
