package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"nexuscap/internal/manifest"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recorded capture sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := manifest.Open(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			sessions, err := store.ListSessions(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), sessions)
			}
			if len(sessions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No capture sessions recorded.")
				return nil
			}

			now := time.Now()
			rows := make([][]string, 0, len(sessions))
			for _, s := range sessions {
				rows = append(rows, sessionRow(s, now))
			}
			out := renderTable(
				[]string{"ID", "PID", "Title", "Size", "Started", "Duration", "Frames", "Exit", "State"},
				rows,
				1, 3, 5, 6, 7,
			)
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum sessions to list (0 lists all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a table")
	return cmd
}
