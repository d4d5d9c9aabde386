package capture

import (
	"context"
	"errors"
	"sync"
	"time"

	"nexuscap/internal/locator"
)

// fakeDevice allocates host-memory textures and tracks live allocations so
// tests can assert nothing leaks across session teardown.
type fakeDevice struct {
	mu        sync.Mutex
	live      int
	allocs    int
	failAlloc bool
	closed    bool
}

func newFakeDevice() *fakeDevice { return &fakeDevice{} }

func (d *fakeDevice) NewTexture(width, height int) (Texture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failAlloc {
		return nil, errors.New("alloc refused")
	}
	d.live++
	d.allocs++
	return &fakeTexture{dev: d, width: width, height: height, data: make([]byte, width*height*4)}, nil
}

func (d *fakeDevice) Copy(dst, src Texture) error {
	dt, ok := dst.(*fakeTexture)
	if !ok {
		return errors.New("bad dst")
	}
	st, ok := src.(*fakeTexture)
	if !ok {
		return errors.New("bad src")
	}
	if dt.width != st.width || dt.height != st.height {
		return errors.New("size mismatch")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	copy(dt.data, st.data)
	return nil
}

func (d *fakeDevice) Download(src Texture) ([]byte, error) {
	st, ok := src.(*fakeTexture)
	if !ok {
		return nil, errors.New("bad src")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]byte, len(st.data))
	copy(out, st.data)
	return out, nil
}

func (d *fakeDevice) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
}

func (d *fakeDevice) liveTextures() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.live
}

type fakeTexture struct {
	dev      *fakeDevice
	width    int
	height   int
	data     []byte
	released bool
}

func (t *fakeTexture) Width() int  { return t.width }
func (t *fakeTexture) Height() int { return t.height }

func (t *fakeTexture) Release() {
	t.dev.mu.Lock()
	defer t.dev.mu.Unlock()
	if t.released {
		panic("double release")
	}
	t.released = true
	t.dev.live--
}

// fill writes a uniform byte value so tests can tell frames apart.
func (t *fakeTexture) fill(v byte) {
	for i := range t.data {
		t.data[i] = v
	}
}

type fakeFrame struct {
	tex      *fakeTexture
	released bool
}

func (f *fakeFrame) Surface() Texture { return f.tex }
func (f *fakeFrame) Release() {
	if f.released {
		panic("double frame release")
	}
	f.released = true
	f.tex.Release()
}

type fakeTarget struct {
	width  int
	height int
}

func (t *fakeTarget) Size() (int, int) { return t.width, t.height }

// fakeFramePool queues frames and delivers the arrival callback synchronously
// from emit, mimicking delivery on a foreign thread.
type fakeFramePool struct {
	mu     sync.Mutex
	cb     func()
	queue  []Frame
	closed bool
}

func (p *fakeFramePool) TryGetNextFrame() Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return nil
	}
	f := p.queue[0]
	p.queue = p.queue[1:]
	return f
}

func (p *fakeFramePool) OnFrameArrived(fn func()) {
	p.mu.Lock()
	p.cb = fn
	p.mu.Unlock()
}

func (p *fakeFramePool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

func (p *fakeFramePool) callback() func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cb
}

// emit enqueues a frame and fires the callback, as the platform pool would.
func (p *fakeFramePool) emit(dev *fakeDevice, width, height int, v byte) {
	tex, err := dev.NewTexture(width, height)
	if err != nil {
		panic(err)
	}
	ft := tex.(*fakeTexture)
	ft.fill(v)
	p.mu.Lock()
	p.queue = append(p.queue, &fakeFrame{tex: ft})
	cb := p.cb
	p.mu.Unlock()
	if cb != nil {
		cb()
	}
}

type fakeSession struct {
	mu       sync.Mutex
	startErr error
	started  bool
	closed   bool
}

func (s *fakeSession) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return s.startErr
	}
	s.started = true
	return nil
}

func (s *fakeSession) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// fakeProcess exits when its exit channel closes.
type fakeProcess struct {
	exit     chan struct{}
	exitOnce sync.Once
	code     uint32
	known    bool
	closed   bool
}

func newFakeProcess(code uint32) *fakeProcess {
	return &fakeProcess{exit: make(chan struct{}), code: code, known: true}
}

func (p *fakeProcess) terminate() { p.exitOnce.Do(func() { close(p.exit) }) }

func (p *fakeProcess) Wait(ctx context.Context, poll time.Duration) (uint32, bool, bool) {
	select {
	case <-ctx.Done():
		return 0, false, false
	case <-p.exit:
		return p.code, p.known, true
	}
}

func (p *fakeProcess) Close() { p.closed = true }

// fakeBackend hands out one set of fakes per session and remembers them so a
// test can drive and inspect each lifecycle.
type fakeBackend struct {
	mu        sync.Mutex
	width     int
	height    int
	deviceErr error
	targetErr error
	openErr   error
	startErr  error

	deviceAttempts int

	devices   []*fakeDevice
	pools     []*fakeFramePool
	sessions  []*fakeSession
	processes []*fakeProcess
}

func newFakeBackend(width, height int) *fakeBackend {
	return &fakeBackend{width: width, height: height}
}

func (b *fakeBackend) setDeviceErr(err error) {
	b.mu.Lock()
	b.deviceErr = err
	b.mu.Unlock()
}

func (b *fakeBackend) deviceAttemptCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.deviceAttempts
}

func (b *fakeBackend) NewDevice() (Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deviceAttempts = b.deviceAttempts + 1
	if b.deviceErr != nil {
		return nil, b.deviceErr
	}
	d := newFakeDevice()
	b.devices = append(b.devices, d)
	return d, nil
}

func (b *fakeBackend) NewTarget(win locator.Window) (Target, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.targetErr != nil {
		return nil, b.targetErr
	}
	return &fakeTarget{width: b.width, height: b.height}, nil
}

func (b *fakeBackend) NewFramePool(dev Device, target Target, width, height int) (FramePool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := &fakeFramePool{}
	b.pools = append(b.pools, p)
	return p, nil
}

func (b *fakeBackend) NewSession(pool FramePool, target Target) (Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := &fakeSession{startErr: b.startErr}
	b.sessions = append(b.sessions, s)
	return s, nil
}

func (b *fakeBackend) OpenProcess(pid int32) (ProcessHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openErr != nil {
		return nil, b.openErr
	}
	p := newFakeProcess(0)
	b.processes = append(b.processes, p)
	return p, nil
}

func (b *fakeBackend) sessionCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}

func (b *fakeBackend) pool(i int) *fakeFramePool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i >= len(b.pools) {
		return nil
	}
	return b.pools[i]
}

func (b *fakeBackend) process(i int) *fakeProcess {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i >= len(b.processes) {
		return nil
	}
	return b.processes[i]
}

func (b *fakeBackend) device(i int) *fakeDevice {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i >= len(b.devices) {
		return nil
	}
	return b.devices[i]
}

// fakeLocator pops scripted results; once the script is exhausted it keeps
// returning the last entry.
type fakeLocator struct {
	mu      sync.Mutex
	results []locatorResult
}

type locatorResult struct {
	target locator.TargetProcess
	ok     bool
}

func (l *fakeLocator) push(target locator.TargetProcess, ok bool) {
	l.mu.Lock()
	l.results = append(l.results, locatorResult{target: target, ok: ok})
	l.mu.Unlock()
}

func (l *fakeLocator) Find() (locator.TargetProcess, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.results) == 0 {
		return locator.TargetProcess{}, false
	}
	r := l.results[0]
	if len(l.results) > 1 {
		l.results = l.results[1:]
	}
	return r.target, r.ok
}

// recordedSession mirrors what a Recorder sees for one session.
type recordedSession struct {
	id        string
	pid       int32
	ended     bool
	exitCode  uint32
	exitKnown bool
	endCtxErr error
	frames    []string
}

type fakeRecorder struct {
	mu       sync.Mutex
	order    []string
	sessions map[string]*recordedSession
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{sessions: map[string]*recordedSession{}}
}

func (r *fakeRecorder) BeginSession(ctx context.Context, id string, pid int32, title string, width, height int, startedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, id)
	r.sessions[id] = &recordedSession{id: id, pid: pid}
	return nil
}

func (r *fakeRecorder) EndSession(ctx context.Context, id string, exitCode uint32, exitKnown bool, endedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.ended = true
		s.exitCode = exitCode
		s.exitKnown = exitKnown
		s.endCtxErr = ctx.Err()
	}
	return nil
}

func (r *fakeRecorder) RecordFrame(ctx context.Context, sessionID string, seq int, filename string, width, height int, savedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[sessionID]; ok {
		s.frames = append(s.frames, filename)
	}
	return nil
}

func (r *fakeRecorder) snapshot() []recordedSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]recordedSession, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.sessions[id])
	}
	return out
}

// manualClock has a settable now. After channels fire when Advance moves the
// clock past their deadline.
type manualClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []clockWaiter
}

type clockWaiter struct {
	deadline time.Time
	ch       chan time.Time
}

func newManualClock(start time.Time) *manualClock {
	return &manualClock{now: start}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	kept := c.waiters[:0]
	for _, w := range c.waiters {
		if !w.deadline.After(c.now) {
			w.ch <- c.now
		} else {
			kept = append(kept, w)
		}
	}
	c.waiters = kept
}

func (c *manualClock) waiterCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

func (c *manualClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	c.mu.Lock()
	defer c.mu.Unlock()
	if d <= 0 {
		ch <- c.now
		return ch
	}
	c.waiters = append(c.waiters, clockWaiter{deadline: c.now.Add(d), ch: ch})
	return ch
}
