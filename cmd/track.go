package cmd

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fillupt/eyestate/internal/capture"
	"github.com/fillupt/eyestate/internal/command"
	"github.com/fillupt/eyestate/internal/landmark"
	"github.com/fillupt/eyestate/internal/recording"
	"github.com/fillupt/eyestate/internal/sensor"
)

func newTrackCmd() *cobra.Command {
	var (
		name     string
		outdir   string
		order    string
		workdir  string
		mesh     string
		camera   int
		headless bool
	)

	cmd := &cobra.Command{
		Use:   "track",
		Short: "Run the eye-state tracker process",
		Long: `Starts the sensing loop: camera capture, face-mesh landmark extraction,
eye-aspect-ratio classification, and command-driven CSV recording.

The tracker is controlled through tracker.cmd in the shared working
directory and publishes tracker.ready once the first frame has been
processed. It is normally launched by "eyestate run" or
"eyestate preview" rather than by hand.`,
		Example: `  # Visible tracking window for camera verification
  eyestate track --mesh "python3 mesh_helper.py" --name ann

  # Background tracking for a session
  eyestate track --mesh "python3 mesh_helper.py" --headless --outdir /data/sessions --order RVI`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if mesh == "" {
				mesh = os.Getenv("EYESTATE_MESH")
			}
			if mesh == "" {
				return errors.New("no face-mesh helper configured (--mesh or EYESTATE_MESH)")
			}
			meshArgs := strings.Fields(mesh)

			detector, err := landmark.StartMeshWorker(meshArgs[0], meshArgs[1:]...)
			if err != nil {
				return err
			}

			cam, err := capture.OpenWebcam(camera)
			if err != nil {
				_ = detector.Close()
				return err
			}

			var display sensor.Display
			if !headless {
				display = capture.NewWindow()
			}

			slog.Info("Tracker starting",
				"name", name, "outdir", outdir, "order", order,
				"camera", camera, "headless", headless)

			loop := sensor.New(sensor.Options{
				Source:   cam,
				Detector: detector,
				Display:  display,
				Channel:  command.New(workdir),
				Recorder: recording.NewRecorder(outdir),
				Headless: headless,
				PID:      os.Getpid(),
			})
			loop.Run()
			slog.Info("Tracker stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Participant display name")
	cmd.Flags().StringVar(&outdir, "outdir", ".", "Directory for recording CSV files")
	cmd.Flags().StringVar(&order, "order", "", "Task order code used in filenames")
	cmd.Flags().StringVar(&workdir, "workdir", ".", "Directory for command and ready files")
	cmd.Flags().StringVar(&mesh, "mesh", "", "Face-mesh helper command (default $EYESTATE_MESH)")
	cmd.Flags().IntVar(&camera, "camera", 0, "Capture device index")
	cmd.Flags().BoolVar(&headless, "headless", false, "Run without a display window")

	return cmd
}
