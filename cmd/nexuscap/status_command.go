package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"nexuscap/internal/heartbeat"
	"nexuscap/internal/manifest"
)

// heartbeatStaleAfter is how old a heartbeat may be before the daemon is
// presumed dead.
const heartbeatStaleAfter = 15 * time.Second

type statusReport struct {
	Daemon    string              `json:"daemon"`
	Heartbeat *heartbeat.Snapshot `json:"heartbeat,omitempty"`
	Latest    *manifest.Session   `json:"latest_session,omitempty"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon heartbeat and the latest capture session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			report := statusReport{Daemon: "not running"}
			now := time.Now()

			snap, err := heartbeat.Read(cfg.HeartbeatPath())
			switch {
			case err == nil:
				report.Heartbeat = snap
				if snap.Age(now) > heartbeatStaleAfter {
					report.Daemon = "stale"
				} else {
					report.Daemon = "running"
				}
			case os.IsNotExist(err):
			default:
				return err
			}

			store, err := manifest.Open(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			latest, err := store.LatestSession(cmd.Context())
			if err != nil {
				return err
			}
			report.Latest = latest

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), report)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Daemon: %s\n", report.Daemon)
			if snap := report.Heartbeat; snap != nil {
				fmt.Fprintf(out, "State: %s (heartbeat %s ago, pid %d)\n",
					snap.State, formatDuration(snap.Age(now)), snap.DaemonPID)
				if snap.SessionID != "" {
					fmt.Fprintf(out, "Active session: %s (target pid %d, %d frame events, %d saved)\n",
						shortID(snap.SessionID), snap.PID, snap.FrameEvents, snap.FramesSaved)
				}
			}
			if latest == nil {
				fmt.Fprintln(out, "No capture sessions recorded.")
				return nil
			}
			fmt.Fprintf(out, "Latest session: %s  pid=%d  %dx%d  started=%s  duration=%s  frames=%d  exit=%s\n",
				shortID(latest.ID), latest.PID, latest.Width, latest.Height,
				formatTime(latest.StartedAt), formatDuration(latest.Duration(now)),
				latest.FramesSaved, formatExit(latest))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of text")
	return cmd
}
