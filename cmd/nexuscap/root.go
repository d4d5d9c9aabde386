package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var baseDirFlag string

	ctx := newCommandContext(&baseDirFlag)

	rootCmd := &cobra.Command{
		Use:           "nexuscap",
		Short:         "Inspect capture sessions and daemon state",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&baseDirFlag, "base-dir", "", "Base directory (defaults to $NEXUS_BASE_DIR)")

	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newSessionsCommand(ctx))
	rootCmd.AddCommand(newFramesCommand(ctx))

	return rootCmd
}
