package session

import (
	"fmt"
	"path/filepath"
	"time"
)

// TaskKind names one of the three experiment tasks.
type TaskKind string

const (
	TaskReading     TaskKind = "Reading"
	TaskVideo       TaskKind = "Video"
	TaskInteractive TaskKind = "Interactive"
)

// Tag is the one-letter filename tag for a task kind.
func (k TaskKind) Tag() string {
	return string(k[:1])
}

// TaskOrders is the fixed counterbalancing table: the 6 permutations of
// the three tasks, indexed by (existing result-file count mod 6).
var TaskOrders = [6][3]TaskKind{
	{TaskReading, TaskVideo, TaskInteractive},
	{TaskReading, TaskInteractive, TaskVideo},
	{TaskVideo, TaskReading, TaskInteractive},
	{TaskVideo, TaskInteractive, TaskReading},
	{TaskInteractive, TaskReading, TaskVideo},
	{TaskInteractive, TaskVideo, TaskReading},
}

// OrderCode renders an order as its letter code, e.g. "RVI".
func OrderCode(order [3]TaskKind) string {
	return order[0].Tag() + order[1].Tag() + order[2].Tag()
}

// OrderIndex counts previously produced recording files in saveDir and
// maps the count onto the order table. Identical counts always yield
// identical orders; an unset or unreadable directory yields order 0.
func OrderIndex(saveDir string) int {
	if saveDir == "" {
		return 0
	}
	matches, err := filepath.Glob(filepath.Join(saveDir, "*-*.csv"))
	if err != nil {
		return 0
	}
	return len(matches) % len(TaskOrders)
}

// CSVFilename composes a per-task recording filename:
// YYYYMMDDTHHMM[-participant]-ORDER-TAG.csv
func CSVFilename(now time.Time, participant, orderCode, tag string) string {
	name := ""
	if participant != "" {
		name = "-" + participant
	}
	return fmt.Sprintf("%s%s-%s-%s.csv", now.Format("20060102T1504"), name, orderCode, tag)
}
