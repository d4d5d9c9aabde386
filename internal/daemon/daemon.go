package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"nexuscap/internal/config"
	"nexuscap/internal/logging"
	"nexuscap/internal/manifest"
)

// Runner is the long-lived capture loop the daemon supervises. Run blocks
// until ctx is cancelled.
type Runner interface {
	Run(ctx context.Context) error
}

// Daemon coordinates the capture supervisor and enforces single-instance
// execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *manifest.Store
	runner Runner

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	LockFilePath  string
	ManifestPath  string
	FramesDir     string
	HeartbeatPath string
}

// New constructs a daemon with initialized dependencies. store may be nil
// when manifest persistence is disabled.
func New(cfg *config.Config, store *manifest.Store, logger *slog.Logger, runner Runner) (*Daemon, error) {
	if cfg == nil || logger == nil || runner == nil {
		return nil, errors.New("daemon requires config, logger, and runner")
	}

	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		runner:   runner,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and launches the capture loop.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := d.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another capture daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.runner.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error("capture_loop_exited", logging.Error(err))
		}
	}()

	d.running.Store(true)
	d.logger.Info("daemon_started",
		logging.String("lock", d.lockPath),
		logging.String("frames_dir", d.cfg.FramesDir()),
	)
	return nil
}

// Stop cancels the capture loop, waits for the active session to tear down,
// and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("lock_release_failed", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon_stopped")
}

// Close stops the daemon and releases held resources.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether the capture loop is active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Status reports runtime information.
func (d *Daemon) Status() Status {
	return Status{
		Running:       d.running.Load(),
		LockFilePath:  d.lockPath,
		ManifestPath:  d.cfg.ManifestPath(),
		FramesDir:     d.cfg.FramesDir(),
		HeartbeatPath: d.cfg.HeartbeatPath(),
	}
}
