package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eyestate",
		Short: "Eye-openness tracking with per-task session recording",
		Long: `Eyestate monitors a subject's eye-openness state from live video and records
per-frame eye measurements to CSV files, one file per experiment task.

The tracker and the session runner are separate processes that talk through
a file-based command channel, so recording can be started and stopped
without disturbing the sensing loop.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	// Add subcommands
	cmd.AddCommand(newTrackCmd())
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newPreviewCmd())
	cmd.AddCommand(newExportCmd())

	return cmd
}
