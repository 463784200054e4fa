package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fillupt/eyestate/internal/command"
	"github.com/fillupt/eyestate/internal/config"
)

// Control is the runner's side of the tracker command channel.
type Control interface {
	Send(command.Message) error
	// Pending reports whether the last sent command is still
	// unconsumed.
	Pending() bool
	ReadyPID() (int, bool)
}

// Runner sequences one experiment session: it launches the tracker,
// waits for its readiness signal, runs the counterbalanced tasks with
// per-task recording, and shuts the tracker down, escalating to a
// forced kill if it does not exit in time.
//
// The command channel is a single last-write-wins slot, so after each
// recording command the runner waits for the tracker to consume it
// before issuing the next one. The tracker polls once per frame; a
// back-to-back send would silently replace the previous command.
type Runner struct {
	cfg         config.Config
	ctrl        Control
	launch      Launcher
	tasks       []Task
	participant string
	orderCode   string
	now         func() time.Time

	pollInterval   time.Duration
	settleDelay    time.Duration
	readyTimeout   time.Duration
	exitTimeout    time.Duration
	consumeTimeout time.Duration
}

func NewRunner(cfg config.Config, ctrl Control, launch Launcher, participant, orderCode string, tasks []Task) *Runner {
	return &Runner{
		cfg:         cfg,
		ctrl:        ctrl,
		launch:      launch,
		tasks:       tasks,
		participant: participant,
		orderCode:   orderCode,
		now:         time.Now,

		pollInterval:   500 * time.Millisecond,
		settleDelay:    1500 * time.Millisecond,
		readyTimeout:   30 * time.Second,
		exitTimeout:    3 * time.Second,
		consumeTimeout: 5 * time.Second,
	}
}

// Run executes the full session. The tracker runs headless; the
// operator verifies the camera beforehand with the preview flow.
func (r *Runner) Run(ctx context.Context) error {
	if len(r.tasks) == 0 {
		return errors.New("no tasks configured")
	}

	proc, err := r.launch(true)
	if err != nil {
		return fmt.Errorf("tracker launch failed: %w", err)
	}
	slog.Info("Tracker started", "pid", proc.PID(), "order", r.orderCode)

	if err := r.awaitReady(ctx, proc); err != nil {
		_ = proc.Kill()
		return err
	}
	slog.Info("Tracker confirmed running", "pid", proc.PID())

	runErr := r.runTasks(ctx, proc)
	shutErr := r.shutdown(proc)
	if runErr != nil {
		return runErr
	}
	return shutErr
}

// Preview launches a visible tracker for camera verification and waits
// for it to be closed by the operator (or the context).
func (r *Runner) Preview(ctx context.Context) error {
	proc, err := r.launch(false)
	if err != nil {
		return fmt.Errorf("tracker launch failed: %w", err)
	}
	slog.Info("Preview tracker started", "pid", proc.PID())

	if err := r.awaitReady(ctx, proc); err != nil {
		_ = proc.Kill()
		return err
	}
	slog.Info("Tracker confirmed running, close the window or press ESC to finish", "pid", proc.PID())

	select {
	case <-proc.Done():
		return nil
	case <-ctx.Done():
		return r.shutdown(proc)
	}
}

// awaitReady polls for the tracker's readiness file at a fixed
// interval, then applies a settle delay before confirming, guarding
// against a tracker that exits right after publishing readiness.
func (r *Runner) awaitReady(ctx context.Context, proc Process) error {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()
	timeout := time.NewTimer(r.readyTimeout)
	defer timeout.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-proc.Done():
			return errors.New("tracker exited before becoming ready")
		case <-timeout.C:
			return fmt.Errorf("tracker not ready after %s", r.readyTimeout)
		case <-ticker.C:
			pid, ok := r.ctrl.ReadyPID()
			if !ok {
				continue
			}
			slog.Debug("Tracker ready file seen", "pid", pid)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-proc.Done():
				return errors.New("tracker exited during startup settle")
			case <-time.After(r.settleDelay):
			}
			return nil
		}
	}
}

func (r *Runner) runTasks(ctx context.Context, proc Process) error {
	duration := r.cfg.Duration()

	for i, task := range r.tasks {
		select {
		case <-proc.Done():
			return fmt.Errorf("tracker exited unexpectedly, aborting before %s task", task.Kind())
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		filename := CSVFilename(r.now(), r.participant, r.orderCode, task.Kind().Tag())
		slog.Info("Starting task",
			"task", string(task.Kind()),
			"progress", fmt.Sprintf("%d/%d", i+1, len(r.tasks)),
			"file", filename)

		ready := func() {
			if err := r.sendAndAwait(proc, command.StartRecording(filename)); err != nil {
				slog.Error("Unable to deliver start command", "err", err)
			}
		}

		err := task.Run(ctx, duration, ready)

		if serr := r.sendAndAwait(proc, command.Message{Kind: command.KindStopRecording}); serr != nil {
			slog.Error("Unable to deliver stop command", "err", serr)
		}
		if err != nil {
			return fmt.Errorf("%s task failed: %w", task.Kind(), err)
		}
		slog.Info("Task completed", "task", string(task.Kind()))
	}
	return nil
}

// sendAndAwait writes one command and polls until the tracker has
// consumed it. Returning before consumption would let the next send
// overwrite the command in the single-slot channel.
func (r *Runner) sendAndAwait(proc Process, m command.Message) error {
	if err := r.ctrl.Send(m); err != nil {
		return err
	}

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(r.consumeTimeout)
	defer deadline.Stop()

	for r.ctrl.Pending() {
		select {
		case <-proc.Done():
			return fmt.Errorf("tracker exited with %s undelivered", m.Kind)
		case <-deadline.C:
			return fmt.Errorf("tracker did not consume %s within %s", m.Kind, r.consumeTimeout)
		case <-ticker.C:
		}
	}
	return nil
}

// shutdown sends SHUTDOWN and waits for the tracker to exit, escalating
// terminate -> kill on timeout.
func (r *Runner) shutdown(proc Process) error {
	if err := r.ctrl.Send(command.Message{Kind: command.KindShutdown}); err != nil {
		slog.Error("Unable to send shutdown command", "err", err)
	}

	select {
	case <-proc.Done():
		return nil
	case <-time.After(r.exitTimeout):
	}

	slog.Warn("Tracker did not exit, terminating", "pid", proc.PID())
	if err := proc.Terminate(); err != nil {
		slog.Warn("Terminate failed", "err", err)
	}

	select {
	case <-proc.Done():
		return nil
	case <-time.After(r.exitTimeout):
	}

	slog.Warn("Tracker unresponsive, killing", "pid", proc.PID())
	if err := proc.Kill(); err != nil {
		return fmt.Errorf("failed to kill tracker: %w", err)
	}
	return nil
}
