package cmd

import (
	"github.com/spf13/cobra"

	"github.com/fillupt/eyestate/internal/command"
	"github.com/fillupt/eyestate/internal/config"
	"github.com/fillupt/eyestate/internal/session"
)

func newPreviewCmd() *cobra.Command {
	var (
		cfgPath string
		name    string
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Preview the tracker with a visible window",
		Long: `Launches the tracker with its display window so the operator can verify
camera placement and detection quality before running a session. Close
the window or press ESC in it to finish.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if name == "" {
				name = cfg.Participant
			}

			idx := session.OrderIndex(cfg.SaveDir)
			code := session.OrderCode(session.TaskOrders[idx])

			runner := session.NewRunner(
				cfg,
				command.New(cfg.Workdir),
				session.TrackerLauncher(cfg, name, code),
				name,
				code,
				nil,
			)
			return runner.Preview(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", config.DefaultPath, "Session config file")
	cmd.Flags().StringVar(&name, "name", "", "Participant name")

	return cmd
}
