package session

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/fillupt/eyestate/internal/config"
)

// Process is a handle on a launched tracker.
type Process interface {
	PID() int
	// Done is closed when the process exits.
	Done() <-chan struct{}
	// Terminate asks the process to stop.
	Terminate() error
	// Kill forcefully ends the process.
	Kill() error
}

// Launcher starts a tracker process.
type Launcher func(headless bool) (Process, error)

// TrackerLauncher launches this same binary's track subcommand as an
// independent child process.
func TrackerLauncher(cfg config.Config, participant, orderCode string) Launcher {
	return func(headless bool) (Process, error) {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to locate executable: %w", err)
		}

		args := []string{
			"track",
			"--outdir", cfg.SaveDir,
			"--order", orderCode,
			"--workdir", cfg.Workdir,
			"--camera", strconv.Itoa(cfg.Camera),
		}
		if cfg.Mesh != "" {
			args = append(args, "--mesh", cfg.Mesh)
		}
		if participant != "" {
			args = append(args, "--name", participant)
		}
		if headless {
			args = append(args, "--headless")
		}

		cmd := exec.Command(exe, args...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Start(); err != nil {
			return nil, fmt.Errorf("failed to start tracker: %w", err)
		}

		p := &osProcess{cmd: cmd, done: make(chan struct{})}
		go func() {
			p.err = cmd.Wait()
			close(p.done)
		}()
		return p, nil
	}
}

type osProcess struct {
	cmd  *exec.Cmd
	done chan struct{}
	err  error
}

func (p *osProcess) PID() int {
	return p.cmd.Process.Pid
}

func (p *osProcess) Done() <-chan struct{} {
	return p.done
}

func (p *osProcess) Terminate() error {
	return p.cmd.Process.Signal(os.Interrupt)
}

func (p *osProcess) Kill() error {
	return p.cmd.Process.Kill()
}
