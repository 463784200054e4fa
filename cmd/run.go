package cmd

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/fillupt/eyestate/internal/command"
	"github.com/fillupt/eyestate/internal/config"
	"github.com/fillupt/eyestate/internal/session"
)

func newRunCmd() *cobra.Command {
	var (
		cfgPath string
		name    string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a full experiment session",
		Long: `Runs the experiment: launches a headless tracker, waits for it to become
ready, then presents the configured tasks in counterbalanced order,
recording one CSV file per task. The order rotates with the number of
recordings already present in the save directory.`,
		Example: `  # Run a session for participant ann
  eyestate run --name ann

  # Use a specific session config
  eyestate run --config lab.yaml --name ann`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if name == "" {
				name = cfg.Participant
			}
			if name == "" {
				return errors.New("participant name required (--name or config)")
			}

			idx := session.OrderIndex(cfg.SaveDir)
			order := session.TaskOrders[idx]
			code := session.OrderCode(order)
			slog.Info("Task order selected", "code", code, "index", idx)

			tasks := session.TasksFor(order, cfg.Tasks)
			if len(tasks) == 0 {
				return errors.New("no tasks configured; set task sources in the config file")
			}

			runner := session.NewRunner(
				cfg,
				command.New(cfg.Workdir),
				session.TrackerLauncher(cfg, name, code),
				name,
				code,
				tasks,
			)
			if err := runner.Run(cmd.Context()); err != nil {
				return err
			}
			slog.Info("Session complete", "participant", name, "order", code)
			return nil
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", config.DefaultPath, "Session config file")
	cmd.Flags().StringVar(&name, "name", "", "Participant name")

	return cmd
}
