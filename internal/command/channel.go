package command

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	commandFile = "tracker.cmd"
	readyFile   = "tracker.ready"
)

// Channel is the half-duplex, file-based control channel between the
// session runner and the tracker. Commands travel runner -> tracker
// through a single-slot command file; readiness travels tracker ->
// runner through a ready file holding the tracker's pid.
//
// The command slot is last-write-wins: a second Send before the tracker
// polls silently replaces the first. That race is part of the protocol;
// the sender must wait for an observable effect before issuing the next
// command.
type Channel struct {
	dir string
}

// New returns a channel rooted at the shared working directory. Both
// processes must use the same directory.
func New(dir string) *Channel {
	return &Channel{dir: dir}
}

func (c *Channel) commandPath() string {
	return filepath.Join(c.dir, commandFile)
}

func (c *Channel) readyPath() string {
	return filepath.Join(c.dir, readyFile)
}

// Send writes one command to the channel, replacing any unconsumed one.
func (c *Channel) Send(m Message) error {
	return os.WriteFile(c.commandPath(), []byte(m.Encode()), 0o644)
}

// Poll consumes a pending command, if any. The command file is deleted
// immediately after reading so a command is delivered at most once.
// Unreadable or malformed content is logged and dropped; it never
// surfaces as an error to the sensing loop.
func (c *Channel) Poll() (Message, bool) {
	data, err := os.ReadFile(c.commandPath())
	if errors.Is(err, fs.ErrNotExist) {
		return Message{}, false
	}
	if err != nil {
		slog.Error("Unable to read command file", "err", err)
		return Message{}, false
	}

	// Delete before dispatching. A failed delete risks reprocessing on
	// the next poll, which is harmless for every command except a
	// colliding START_RECORDING filename.
	if err := os.Remove(c.commandPath()); err != nil {
		slog.Error("Unable to remove command file", "err", err)
	}

	m, err := Parse(strings.TrimSpace(string(data)))
	if err != nil {
		slog.Warn("Ignoring command", "err", err)
		return Message{}, false
	}
	return m, true
}

// Pending reports whether an unconsumed command sits in the slot.
// Senders use this to observe consumption before issuing the next
// command.
func (c *Channel) Pending() bool {
	_, err := os.Stat(c.commandPath())
	return err == nil
}

// Clear removes a stale command file, ignoring absence.
func (c *Channel) Clear() {
	if err := os.Remove(c.commandPath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Unable to clear command file", "err", err)
	}
}

// PublishReady writes the tracker's pid to the ready file. Written once
// per tracker lifetime, after the first successful processing cycle.
func (c *Channel) PublishReady(pid int) error {
	return os.WriteFile(c.readyPath(), []byte(strconv.Itoa(pid)), 0o644)
}

// RetractReady removes the readiness signal on clean shutdown.
func (c *Channel) RetractReady() {
	if err := os.Remove(c.readyPath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Unable to remove ready file", "err", err)
	}
}

// ReadyPID reports the pid published by a running tracker, if any.
func (c *Channel) ReadyPID() (int, bool) {
	data, err := os.ReadFile(c.readyPath())
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false
	}
	return pid, true
}
