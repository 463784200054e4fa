package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the session config file looked up when --config is not
// given.
const DefaultPath = "eyestate.yaml"

// TaskConfig points at one task's content and, optionally, an external
// viewer command used to present it. The presentation UIs themselves
// live outside this program.
type TaskConfig struct {
	// Source is a file path or URL handed to the viewer.
	Source string `yaml:"source"`
	// Viewer is an external command launched with Source appended.
	Viewer string `yaml:"viewer,omitempty"`
}

// Configured reports whether the task has content to present.
func (t TaskConfig) Configured() bool {
	return t.Source != ""
}

// Tasks holds the three experiment task definitions.
type Tasks struct {
	Reading     TaskConfig `yaml:"reading"`
	Video       TaskConfig `yaml:"video"`
	Interactive TaskConfig `yaml:"interactive"`
}

// Config is the session runner's configuration.
type Config struct {
	// SaveDir receives the recording CSV files and is scanned to pick
	// the counterbalanced task order.
	SaveDir string `yaml:"save_dir"`
	// Workdir hosts the tracker command and ready files; both
	// processes must agree on it.
	Workdir string `yaml:"workdir"`
	// DurationMinutes is the length of each task.
	DurationMinutes int `yaml:"duration_minutes"`
	// Camera is the capture device index passed to the tracker.
	Camera int `yaml:"camera"`
	// Mesh is the face-mesh helper command line for the tracker.
	Mesh string `yaml:"mesh,omitempty"`
	// Participant is the default participant name.
	Participant string `yaml:"participant,omitempty"`
	Tasks       Tasks  `yaml:"tasks"`
}

func Default() Config {
	return Config{
		SaveDir:         ".",
		Workdir:         ".",
		DurationMinutes: 5,
		Camera:          0,
	}
}

// Load reads the YAML config at path, falling back to defaults when the
// file does not exist. Environment variables override file values:
// EYESTATE_SAVE_DIR, EYESTATE_WORKDIR, EYESTATE_MESH.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Config file is optional.
	case err != nil:
		return cfg, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if cfg.DurationMinutes <= 0 {
		cfg.DurationMinutes = 5
	}
	if cfg.SaveDir == "" {
		cfg.SaveDir = "."
	}
	if cfg.Workdir == "" {
		cfg.Workdir = "."
	}

	if v := os.Getenv("EYESTATE_SAVE_DIR"); v != "" {
		cfg.SaveDir = v
	}
	if v := os.Getenv("EYESTATE_WORKDIR"); v != "" {
		cfg.Workdir = v
	}
	if v := os.Getenv("EYESTATE_MESH"); v != "" {
		cfg.Mesh = v
	}

	return cfg, nil
}

// Duration is the per-task duration.
func (c Config) Duration() time.Duration {
	return time.Duration(c.DurationMinutes) * time.Minute
}
