package session

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/fillupt/eyestate/internal/config"
)

// Task is one experiment segment. Run must call ready exactly once,
// when the task's presentation is in front of the participant, and then
// block until the task finishes or the duration elapses.
type Task interface {
	Kind() TaskKind
	Run(ctx context.Context, d time.Duration, ready func()) error
}

// TimedTask holds a recording window open for a fixed duration while an
// optional external viewer presents the task content. The actual
// reading/video/trivia UIs are separate programs.
type TimedTask struct {
	kind   TaskKind
	source string
	viewer string
}

func NewTimedTask(kind TaskKind, tc config.TaskConfig) *TimedTask {
	return &TimedTask{kind: kind, source: tc.Source, viewer: tc.Viewer}
}

func (t *TimedTask) Kind() TaskKind {
	return t.kind
}

func (t *TimedTask) Run(ctx context.Context, d time.Duration, ready func()) error {
	var viewer *exec.Cmd
	if t.viewer != "" {
		parts := strings.Fields(t.viewer)
		args := append(parts[1:], t.source)
		viewer = exec.CommandContext(ctx, parts[0], args...)
		if err := viewer.Start(); err != nil {
			return fmt.Errorf("failed to launch viewer for %s task: %w", t.kind, err)
		}
		defer func() {
			if viewer.Process != nil {
				_ = viewer.Process.Kill()
			}
			_ = viewer.Wait()
		}()
	}
	ready()

	bar := progressbar.NewOptions(int(d.Seconds()),
		progressbar.OptionSetDescription(string(t.kind)),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)
	defer func() { _ = bar.Finish() }()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	deadline := time.NewTimer(d)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_ = bar.Add(1)
		case <-deadline.C:
			return nil
		}
	}
}

// TasksFor builds the configured tasks in the given order, skipping
// tasks without a source.
func TasksFor(order [3]TaskKind, tasks config.Tasks) []Task {
	byKind := map[TaskKind]config.TaskConfig{
		TaskReading:     tasks.Reading,
		TaskVideo:       tasks.Video,
		TaskInteractive: tasks.Interactive,
	}
	var out []Task
	for _, kind := range order {
		tc := byKind[kind]
		if !tc.Configured() {
			continue
		}
		out = append(out, NewTimedTask(kind, tc))
	}
	return out
}
