package daemon_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"nexuscap/internal/daemon"
	"nexuscap/internal/logging"
	"nexuscap/internal/testsupport"
)

type blockingRunner struct {
	started atomic.Bool
	stopped atomic.Bool
}

func (r *blockingRunner) Run(ctx context.Context) error {
	r.started.Store(true)
	<-ctx.Done()
	r.stopped.Store(true)
	return ctx.Err()
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &blockingRunner{}

	d, err := daemon.New(cfg, nil, logging.NewNop(), runner)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !d.Running() {
		t.Fatal("daemon should report running")
	}

	deadline := time.Now().Add(5 * time.Second)
	for !runner.started.Load() {
		if time.Now().After(deadline) {
			t.Fatal("runner never started")
		}
		time.Sleep(time.Millisecond)
	}

	d.Stop()
	if d.Running() {
		t.Fatal("daemon should not report running after Stop")
	}
	if !runner.stopped.Load() {
		t.Fatal("Stop returned before the runner exited")
	}
}

func TestDaemonSecondInstanceRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	first, err := daemon.New(cfg, nil, logging.NewNop(), &blockingRunner{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer first.Stop()

	second, err := daemon.New(cfg, nil, logging.NewNop(), &blockingRunner{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second instance acquired the lock")
	}
}

func TestDaemonStartValidatesDependencies(t *testing.T) {
	if _, err := daemon.New(nil, nil, logging.NewNop(), &blockingRunner{}); err == nil {
		t.Fatal("expected error for nil config")
	}
	cfg := testsupport.NewConfig(t)
	if _, err := daemon.New(cfg, nil, logging.NewNop(), nil); err == nil {
		t.Fatal("expected error for nil runner")
	}
}

func TestDaemonStatusPaths(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, err := daemon.New(cfg, nil, logging.NewNop(), &blockingRunner{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	status := d.Status()
	if status.Running {
		t.Fatal("status should report stopped before Start")
	}
	if status.LockFilePath != cfg.LockPath() || status.ManifestPath != cfg.ManifestPath() {
		t.Fatalf("status paths = %+v", status)
	}
	if status.FramesDir != cfg.FramesDir() || status.HeartbeatPath != cfg.HeartbeatPath() {
		t.Fatalf("status paths = %+v", status)
	}
}
