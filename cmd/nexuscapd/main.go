// Command nexuscapd is the capture daemon. It watches for the target
// process, captures its window for as long as it lives, and saves throttled
// stills under the session directory. It keeps running across target
// restarts until interrupted.
package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"nexuscap/internal/capture"
	"nexuscap/internal/config"
	"nexuscap/internal/daemon"
	"nexuscap/internal/heartbeat"
	"nexuscap/internal/locator"
	"nexuscap/internal/logging"
	"nexuscap/internal/manifest"
	"nexuscap/internal/platform/wincap"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	backend, err := wincap.NewBackend(logger)
	if err != nil {
		if errors.Is(err, capture.ErrUnsupported) {
			log.Fatal("window capture is not supported on this platform")
		}
		log.Fatalf("init capture backend: %v", err)
	}

	store, err := manifest.Open(cfg)
	if err != nil {
		logger.Error("open manifest store", logging.Error(err))
		return
	}

	loc := locator.New(wincap.NewProcessLister(), wincap.NewWindowEnumerator(), logger)
	hb := heartbeat.NewWriter(cfg.HeartbeatPath(), logger)
	supervisor := capture.NewSupervisor(backend, loc, cfg.FramesDir(), store, logger,
		capture.WithStateSink(hb))

	d, err := daemon.New(cfg, store, logger, supervisor)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		_ = store.Close()
		return
	}
	defer func() { _ = d.Close() }()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("shutting down")
	d.Stop()
	hb.Clear()
}
