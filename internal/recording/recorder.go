package recording

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Header is the exact CSV header line of a recording file.
const Header = "timestamp,left_ear,right_ear,LE_temporal,LE_nasal,RE_temporal,RE_nasal,LE_width,RE_width"

// Row is one processed frame's measurements while recording is armed.
// Parquet tags serve the export tooling; the recording files themselves
// are flat CSV.
type Row struct {
	Timestamp  float64 `parquet:"timestamp"`
	LeftEAR    float64 `parquet:"left_ear"`
	RightEAR   float64 `parquet:"right_ear"`
	LETemporal float64 `parquet:"LE_temporal"`
	LENasal    float64 `parquet:"LE_nasal"`
	RETemporal float64 `parquet:"RE_temporal"`
	RENasal    float64 `parquet:"RE_nasal"`
	LEWidth    float64 `parquet:"LE_width"`
	REWidth    float64 `parquet:"RE_width"`
}

func (r Row) csvLine() string {
	fields := []float64{
		r.Timestamp,
		r.LeftEAR, r.RightEAR,
		r.LETemporal, r.LENasal,
		r.RETemporal, r.RENasal,
		r.LEWidth, r.REWidth,
	}
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

// Recorder buffers classified frame rows in memory while armed and
// flushes them to a CSV file on disarm. It is owned exclusively by the
// sensing loop; best-effort telemetry, not a transactional record.
type Recorder struct {
	outDir   string
	armed    bool
	filename string
	rows     []Row
}

func NewRecorder(outDir string) *Recorder {
	return &Recorder{outDir: outDir}
}

// Arm starts buffering rows for the given filename. A second Arm while
// already armed is a no-op: the active filename and buffer are kept.
func (r *Recorder) Arm(filename string) {
	if r.armed {
		slog.Info("Already recording, ignoring start", "active", r.filename, "requested", filename)
		return
	}
	r.rows = nil
	r.filename = filename
	r.armed = true
	slog.Info("Recording started", "file", filename)
}

// Append buffers one frame row. Ignored while disarmed.
func (r *Recorder) Append(row Row) {
	if !r.armed {
		return
	}
	r.rows = append(r.rows, row)
}

// DisarmAndFlush writes the buffered rows to the configured output
// directory and resets to the disarmed state. A write failure loses the
// buffered data; it is logged and never escalated to the sensing loop.
func (r *Recorder) DisarmAndFlush() {
	if r.armed && len(r.rows) > 0 && r.filename != "" {
		path := filepath.Join(r.outDir, r.filename)
		if err := writeCSV(path, r.rows); err != nil {
			slog.Error("Unable to save recording", "path", path, "err", err)
		} else {
			slog.Info("Recording saved", "path", path, "frames", len(r.rows))
		}
	}
	r.armed = false
	r.filename = ""
	r.rows = nil
}

// Armed reports whether rows are currently being buffered.
func (r *Recorder) Armed() bool {
	return r.armed
}

// Filename is the destination of the armed session, empty if disarmed.
func (r *Recorder) Filename() string {
	return r.filename
}

// Len is the number of buffered rows.
func (r *Recorder) Len() int {
	return len(r.rows)
}

func writeCSV(path string, rows []Row) error {
	var b strings.Builder
	b.WriteString(Header)
	b.WriteByte('\n')
	for _, row := range rows {
		b.WriteString(row.csvLine())
		b.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}
