package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"nexuscap/internal/manifest"
)

func newFramesCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "frames <session-id|latest>",
		Short: "List the frames saved for a session",
		Args:  cobra.ExactArgs(1),
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

			sessionID := args[0]
			if strings.EqualFold(sessionID, "latest") {
				latest, err := store.LatestSession(cmd.Context())
				if err != nil {
					return err
				}
				if latest == nil {
					return fmt.Errorf("no capture sessions recorded")
				}
				sessionID = latest.ID
			}

			frames, err := store.ListFrames(cmd.Context(), sessionID)
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), frames)
			}
			if len(frames) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No frames recorded for session %s.\n", shortID(sessionID))
				return nil
			}

			rows := make([][]string, 0, len(frames))
			for _, f := range frames {
				rows = append(rows, []string{
					fmt.Sprintf("%d", f.Seq),
					f.Filename,
					fmt.Sprintf("%dx%d", f.Width, f.Height),
					formatTime(f.SavedAt),
				})
			}
			out := renderTable(
				[]string{"Seq", "Filename", "Size", "Saved"},
				rows,
				0, 2,
			)
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a table")
	return cmd
}
