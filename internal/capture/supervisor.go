package capture

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"nexuscap/internal/locator"
	"nexuscap/internal/logging"
)

// State names the supervisor's position in the session lifecycle.
type State string

const (
	StateSearching      State = "searching"
	StateDeviceReady    State = "device_ready"
	StateSessionStarted State = "session_started"
	StateMonitoring     State = "monitoring"
	StateTeardown       State = "teardown"
)

const (
	defaultSearchInterval = 2 * time.Second
	defaultRetryBackoff   = 2 * time.Second
	defaultMonitorPoll    = 500 * time.Millisecond
	defaultGraceDelay     = 750 * time.Millisecond

	// A "still waiting" line is emitted every Nth unsuccessful scan.
	waitingLogEvery = 15

	// heartbeatInterval refreshes the state sink while Monitoring, where no
	// transitions occur for the life of the target process.
	heartbeatInterval = 5 * time.Second
)

// StateSink receives supervisor state transitions (the heartbeat writer).
type StateSink interface {
	StateChanged(state State, sessionID string, pid int32, frameEvents uint64, framesSaved int)
}

// Supervisor drives the capture lifecycle: locate the target, open a capture
// session, run ingest and saver, wait for process exit, tear down, repeat.
// There is no terminal state; Run returns only when ctx is cancelled.
type Supervisor struct {
	backend   Backend
	locate    TargetLocator
	framesDir string
	recorder  Recorder
	sink      StateSink
	clock     Clock
	logger    *slog.Logger

	searchInterval time.Duration
	retryBackoff   time.Duration
	monitorPoll    time.Duration
	graceDelay     time.Duration
	saveInterval   time.Duration
}

// Option configures optional Supervisor behavior.
type Option func(*Supervisor)

// WithIntervals overrides the timing constants; zero values keep defaults.
// Used by tests to compress time.
func WithIntervals(search, retry, monitorPoll, grace, save time.Duration) Option {
	return func(s *Supervisor) {
		if search > 0 {
			s.searchInterval = search
		}
		if retry > 0 {
			s.retryBackoff = retry
		}
		if monitorPoll > 0 {
			s.monitorPoll = monitorPoll
		}
		if grace >= 0 {
			s.graceDelay = grace
		}
		if save > 0 {
			s.saveInterval = save
		}
	}
}

// WithStateSink registers a state transition receiver.
func WithStateSink(sink StateSink) Option {
	return func(s *Supervisor) { s.sink = sink }
}

// WithClock injects a clock; tests use a fake.
func WithClock(clock Clock) Option {
	return func(s *Supervisor) { s.clock = clock }
}

// NewSupervisor constructs the supervisor. framesDir must exist; recorder may
// be nil.
func NewSupervisor(backend Backend, locate TargetLocator, framesDir string, recorder Recorder, logger *slog.Logger, opts ...Option) *Supervisor {
	s := &Supervisor{
		backend:        backend,
		locate:         locate,
		framesDir:      framesDir,
		recorder:       recorder,
		clock:          SystemClock(),
		logger:         logging.NewComponentLogger(logger, "supervisor"),
		searchInterval: defaultSearchInterval,
		retryBackoff:   defaultRetryBackoff,
		monitorPoll:    defaultMonitorPoll,
		graceDelay:     defaultGraceDelay,
		saveInterval:   DefaultSaveInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run loops forever: Searching -> DeviceReady -> SessionStarted ->
// Monitoring -> Teardown -> Searching. Returns ctx.Err() on cancellation.
func (s *Supervisor) Run(ctx context.Context) error {
	scanCount := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		target, ok := s.locate.Find()
		if !ok {
			if scanCount%waitingLogEvery == 0 {
				s.logger.Info("waiting_for_process",
					logging.String("primary", locator.PrimaryExecutable),
					logging.String("alternate", locator.AltExecutable),
				)
			}
			scanCount++
			s.notify(StateSearching, "", 0, 0, 0)
			if !s.sleep(ctx, s.searchInterval) {
				return ctx.Err()
			}
			continue
		}
		scanCount = 0
		s.logger.Info("process_found",
			logging.Int("pid", int(target.PID)),
			logging.String("title", target.Title),
		)

		if !s.runSession(ctx, target) {
			if !s.sleep(ctx, s.retryBackoff) {
				return ctx.Err()
			}
		}
	}
}

// runSession executes one full session lifecycle. It reports false when setup
// failed before capture started, in which case the caller applies the retry
// backoff.
func (s *Supervisor) runSession(ctx context.Context, target locator.TargetProcess) bool {
	dev, err := s.backend.NewDevice()
	if err != nil {
		s.logger.Warn("device_fail", logging.Error(err))
		return false
	}
	defer dev.Close()

	item, err := s.backend.NewTarget(target.Window)
	if err != nil {
		s.logger.Warn("create_item_fail", logging.Error(err))
		return false
	}
	width, height := item.Size()
	if width <= 0 || height <= 0 {
		s.logger.Warn("invalid_size", logging.Int("width", width), logging.Int("height", height))
		return false
	}
	s.notify(StateDeviceReady, "", target.PID, 0, 0)

	pool, err := s.backend.NewFramePool(dev, item, width, height)
	if err != nil {
		s.logger.Warn("frame_pool_fail", logging.Error(err))
		return false
	}
	session, err := s.backend.NewSession(pool, item)
	if err != nil {
		pool.Close()
		s.logger.Warn("create_session_fail", logging.Error(err))
		return false
	}

	sessionID := uuid.NewString()
	sessionLogger := s.logger.With(logging.String(logging.FieldSessionID, sessionID))
	var running atomic.Bool
	running.Store(true)
	var events atomic.Uint64

	buffer := NewFrameBuffer(dev, sessionLogger)
	ingest := NewIngest(pool, buffer, &running, &events, sessionLogger)
	pool.OnFrameArrived(ingest.OnFrame)

	if err := session.Start(); err != nil {
		pool.OnFrameArrived(nil)
		session.Close()
		pool.Close()
		buffer.Close()
		s.logger.Warn("start_capture_fail", logging.Error(err))
		return false
	}
	sessionStart := s.clock.Now()
	sessionLogger.Info("starting_capture", logging.Int("width", width), logging.Int("height", height))
	s.notify(StateSessionStarted, sessionID, target.PID, 0, 0)

	if s.recorder != nil {
		if err := s.recorder.BeginSession(ctx, sessionID, target.PID, target.Title, width, height, sessionStart); err != nil {
			sessionLogger.Warn("session_record_failed", logging.Error(err))
		}
	}

	saver := NewSaver(dev, buffer, s.framesDir, sessionID, s.saveInterval, s.clock, &running, &events, s.recorder, sessionLogger)
	saverCtx, stopSaver := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		saver.Run(saverCtx)
	}()

	var exitCode uint32
	exitKnown := false
	proc, err := s.backend.OpenProcess(target.PID)
	if err != nil {
		// Capture already started; tear down immediately without monitoring.
		sessionLogger.Warn("open_proc_fail", logging.Error(err))
	} else {
		s.notify(StateMonitoring, sessionID, target.PID, events.Load(), 0)
		hbStop := make(chan struct{})
		var hbWG sync.WaitGroup
		hbWG.Add(1)
		go func() {
			defer hbWG.Done()
			for {
				select {
				case <-hbStop:
					return
				case <-s.clock.After(heartbeatInterval):
					s.notify(StateMonitoring, sessionID, target.PID, events.Load(), saver.Saved())
				}
			}
		}()
		code, known, observed := proc.Wait(ctx, s.monitorPoll)
		close(hbStop)
		hbWG.Wait()
		if observed {
			exitCode = code
			exitKnown = known
			// Grace period so one final frame can land on disk.
			s.sleep(ctx, s.graceDelay)
		}
		proc.Close()
	}

	// Fixed teardown order: stop accepting frames, revoke the callback,
	// close session and pool, stop and join the saver, then release the
	// buffer. A new session is never constructed before this completes.
	s.notify(StateTeardown, sessionID, target.PID, events.Load(), saver.Saved())
	running.Store(false)
	pool.OnFrameArrived(nil)
	session.Close()
	pool.Close()
	stopSaver()
	wg.Wait()
	buffer.Close()

	endedAt := s.clock.Now()
	if s.recorder != nil {
		// Teardown also runs when ctx was cancelled by shutdown; the session
		// row must still be closed out, so the write gets a detached context.
		if err := s.recorder.EndSession(context.WithoutCancel(ctx), sessionID, exitCode, exitKnown, endedAt); err != nil {
			sessionLogger.Warn("session_record_failed", logging.Error(err))
		}
	}
	if exitKnown {
		sessionLogger.Info("process_ended",
			logging.Uint64("exit_code", uint64(exitCode)),
			logging.Duration("uptime", endedAt.Sub(sessionStart)),
			logging.Uint64("frame_events", events.Load()),
			logging.Int("frames_saved", saver.Saved()),
		)
	} else {
		sessionLogger.Info("process_ended",
			logging.Uint64("frame_events", events.Load()),
			logging.Int("frames_saved", saver.Saved()),
		)
	}
	return true
}

func (s *Supervisor) notify(state State, sessionID string, pid int32, events uint64, saved int) {
	if s.sink != nil {
		s.sink.StateChanged(state, sessionID, pid, events, saved)
	}
}

// sleep waits for d or cancellation, reporting false when ctx ended first.
func (s *Supervisor) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-s.clock.After(d):
		return true
	}
}
