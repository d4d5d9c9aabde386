//go:build windows

package wincap

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/kbinani/screenshot"
	"golang.org/x/sys/windows"

	"nexuscap/internal/capture"
	"nexuscap/internal/locator"
	"nexuscap/internal/logging"
)

// captureInterval is the frame production cadence. The consumer samples at
// 1 Hz, so producing at 10 Hz keeps the shared buffer fresh without burning a
// core on GDI blits.
const captureInterval = 100 * time.Millisecond

type backend struct {
	logger *slog.Logger
}

// NewBackend returns the Windows capture backend.
func NewBackend(logger *slog.Logger) (capture.Backend, error) {
	return &backend{logger: logging.NewComponentLogger(logger, "wincap")}, nil
}

func (b *backend) NewDevice() (capture.Device, error) {
	return &cpuDevice{}, nil
}

func (b *backend) NewTarget(win locator.Window) (capture.Target, error) {
	hwnd := uintptr(win)
	if hwnd == 0 {
		return nil, errors.New("nil window handle")
	}
	if _, err := clientRect(hwnd); err != nil {
		return nil, fmt.Errorf("%w: %v", errWindowGone, err)
	}
	return &gdiTarget{hwnd: hwnd}, nil
}

func (b *backend) NewFramePool(dev capture.Device, target capture.Target, width, height int) (capture.FramePool, error) {
	cpu, ok := dev.(*cpuDevice)
	if !ok {
		return nil, errors.New("device is not a wincap device")
	}
	tgt, ok := target.(*gdiTarget)
	if !ok {
		return nil, errors.New("target is not a wincap target")
	}
	return &gdiFramePool{
		dev:    cpu,
		hwnd:   tgt.hwnd,
		frames: make(chan capture.Frame, 2),
		logger: b.logger,
	}, nil
}

func (b *backend) NewSession(pool capture.FramePool, target capture.Target) (capture.Session, error) {
	p, ok := pool.(*gdiFramePool)
	if !ok {
		return nil, errors.New("pool is not a wincap pool")
	}
	return &gdiSession{pool: p}, nil
}

func (b *backend) OpenProcess(pid int32) (capture.ProcessHandle, error) {
	handle, err := windows.OpenProcess(windows.SYNCHRONIZE|windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return nil, fmt.Errorf("OpenProcess pid %d: %w", pid, err)
	}
	return &winProcess{handle: handle}, nil
}

// cpuDevice keeps textures in host memory. GDI already delivers pixels on the
// CPU side, so the device copy is a memcpy and download is free.
type cpuDevice struct{}

func (d *cpuDevice) NewTexture(width, height int) (capture.Texture, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid texture size %dx%d", width, height)
	}
	return &hostTexture{width: width, height: height, data: make([]byte, width*height*4)}, nil
}

func (d *cpuDevice) Copy(dst, src capture.Texture) error {
	dt, ok := dst.(*hostTexture)
	if !ok {
		return errors.New("destination is not a host texture")
	}
	st, ok := src.(*hostTexture)
	if !ok {
		return errors.New("source is not a host texture")
	}
	if dt.width != st.width || dt.height != st.height {
		return fmt.Errorf("copy size mismatch: %dx%d into %dx%d", st.width, st.height, dt.width, dt.height)
	}
	copy(dt.data, st.data)
	return nil
}

func (d *cpuDevice) Download(src capture.Texture) ([]byte, error) {
	st, ok := src.(*hostTexture)
	if !ok {
		return nil, errors.New("source is not a host texture")
	}
	out := make([]byte, len(st.data))
	copy(out, st.data)
	return out, nil
}

func (d *cpuDevice) Close() {}

type hostTexture struct {
	width  int
	height int
	data   []byte
}

func (t *hostTexture) Width() int  { return t.width }
func (t *hostTexture) Height() int { return t.height }
func (t *hostTexture) Release()    {}

type gdiTarget struct {
	hwnd uintptr
}

func (t *gdiTarget) Size() (int, int) {
	rc, err := clientRect(t.hwnd)
	if err != nil {
		return 0, 0
	}
	return int(rc.Right - rc.Left), int(rc.Bottom - rc.Top)
}

// gdiFramePool polls the window at captureInterval and queues the grabs.
// The queue is small; when the consumer lags, the oldest frame is dropped.
type gdiFramePool struct {
	dev    *cpuDevice
	hwnd   uintptr
	frames chan capture.Frame
	logger *slog.Logger

	mu sync.Mutex
	cb func()

	stop chan struct{}
	wg   sync.WaitGroup
}

func (p *gdiFramePool) TryGetNextFrame() capture.Frame {
	select {
	case f := <-p.frames:
		return f
	default:
		return nil
	}
}

func (p *gdiFramePool) OnFrameArrived(fn func()) {
	p.mu.Lock()
	p.cb = fn
	p.mu.Unlock()
}

func (p *gdiFramePool) Close() {
	p.mu.Lock()
	stop := p.stop
	p.stop = nil
	p.mu.Unlock()
	if stop != nil {
		close(stop)
		p.wg.Wait()
	}
	for {
		select {
		case f := <-p.frames:
			f.Release()
		default:
			return
		}
	}
}

func (p *gdiFramePool) start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		return errors.New("capture already started")
	}
	p.stop = make(chan struct{})
	p.wg.Add(1)
	go p.pump(p.stop)
	return nil
}

func (p *gdiFramePool) pump(stop chan struct{}) {
	defer p.wg.Done()
	ticker := time.NewTicker(captureInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		tex, err := p.grab()
		if err != nil {
			p.logger.Debug("frame_grab_failed", logging.Error(err))
			continue
		}
		frame := &gdiFrame{tex: tex}
		for {
			select {
			case p.frames <- frame:
			default:
				// Queue full: drop the oldest grab.
				select {
				case old := <-p.frames:
					old.Release()
				default:
				}
				continue
			}
			break
		}

		p.mu.Lock()
		cb := p.cb
		p.mu.Unlock()
		if cb != nil {
			cb()
		}
	}
}

// grab captures the window into a device texture, trying GDI first and the
// screen grab as a last resort.
func (p *gdiFramePool) grab() (*hostTexture, error) {
	bgra, width, height, err := grabWindowGDI(p.hwnd)
	if err != nil {
		bgra, width, height, err = p.grabScreen()
		if err != nil {
			return nil, err
		}
	}
	tex, err := p.dev.NewTexture(width, height)
	if err != nil {
		return nil, err
	}
	ht := tex.(*hostTexture)
	copy(ht.data, bgra)
	return ht, nil
}

// grabScreen captures the window's bounds from the desktop. This sees
// whatever overlaps the window, but it keeps frames flowing when GDI refuses
// to render the window directly.
func (p *gdiFramePool) grabScreen() ([]byte, int, int, error) {
	rc, err := windowRect(p.hwnd)
	if err != nil {
		return nil, 0, 0, err
	}
	img, err := screenshot.CaptureRect(image.Rect(int(rc.Left), int(rc.Top), int(rc.Right), int(rc.Bottom)))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("screen capture: %w", err)
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	out := make([]byte, width*height*4)
	for y := 0; y < height; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+width*4]
		dst := out[y*width*4:]
		for x := 0; x < width; x++ {
			// RGBA to BGRA.
			dst[x*4+0] = row[x*4+2]
			dst[x*4+1] = row[x*4+1]
			dst[x*4+2] = row[x*4+0]
			dst[x*4+3] = row[x*4+3]
		}
	}
	return out, width, height, nil
}

type gdiFrame struct {
	tex *hostTexture
}

func (f *gdiFrame) Surface() capture.Texture { return f.tex }
func (f *gdiFrame) Release()                 { f.tex.Release() }

type gdiSession struct {
	pool *gdiFramePool
}

func (s *gdiSession) Start() error { return s.pool.start() }

func (s *gdiSession) Close() { s.pool.Close() }

// winProcess waits on a real process handle.
type winProcess struct {
	handle windows.Handle
}

func (p *winProcess) Wait(ctx context.Context, poll time.Duration) (uint32, bool, bool) {
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	for {
		if ctx.Err() != nil {
			return 0, false, false
		}
		event, err := windows.WaitForSingleObject(p.handle, uint32(poll.Milliseconds()))
		switch {
		case err != nil:
			// Treat a broken wait as an exit with unknown code rather than
			// spinning forever.
			return 0, false, true
		case event == windows.WAIT_OBJECT_0:
			var code uint32
			if err := windows.GetExitCodeProcess(p.handle, &code); err != nil {
				return 0, false, true
			}
			return code, true, true
		case event == uint32(windows.WAIT_TIMEOUT):
			continue
		default:
			return 0, false, true
		}
	}
}

func (p *winProcess) Close() {
	_ = windows.CloseHandle(p.handle)
}
