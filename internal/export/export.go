package export

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/fillupt/eyestate/internal/recording"
)

// ReadRecording parses a recording CSV produced by the tracker.
func ReadRecording(path string) ([]recording.Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read header: %w", err)
		}
		return nil, fmt.Errorf("empty recording file %s", path)
	}
	if got := strings.TrimRight(scanner.Text(), "\r"); got != recording.Header {
		return nil, fmt.Errorf("unexpected header %q in %s", got, path)
	}

	var rows []recording.Row
	lineNum := 1
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		row, err := parseRow(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read recording: %w", err)
	}
	return rows, nil
}

func parseRow(line string) (recording.Row, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 9 {
		return recording.Row{}, fmt.Errorf("expected 9 fields, got %d", len(parts))
	}
	vals := make([]float64, 9)
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return recording.Row{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		vals[i] = v
	}
	return recording.Row{
		Timestamp:  vals[0],
		LeftEAR:    vals[1],
		RightEAR:   vals[2],
		LETemporal: vals[3],
		LENasal:    vals[4],
		RETemporal: vals[5],
		RENasal:    vals[6],
		LEWidth:    vals[7],
		REWidth:    vals[8],
	}, nil
}

// WriteParquet writes rows to a parquet file at path.
func WriteParquet(rows []recording.Row, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}

	writer := parquet.NewGenericWriter[recording.Row](file)
	if _, err := writer.Write(rows); err != nil {
		file.Close()
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		file.Close()
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return file.Close()
}

// ConvertDir converts every recording CSV under inDir to a parquet file
// with the same base name under outDir. Unparsable files are skipped
// with a warning. Returns the number of files converted.
func ConvertDir(inDir, outDir string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(inDir, "*.csv"))
	if err != nil {
		return 0, fmt.Errorf("failed to scan %s: %w", inDir, err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	converted := 0
	for _, path := range matches {
		rows, err := ReadRecording(path)
		if err != nil {
			slog.Warn("Skipping file", "path", path, "err", err)
			continue
		}

		base := strings.TrimSuffix(filepath.Base(path), ".csv")
		out := filepath.Join(outDir, base+".parquet")
		if err := WriteParquet(rows, out); err != nil {
			return converted, fmt.Errorf("%s: %w", path, err)
		}
		slog.Info("Converted recording", "in", path, "out", out, "rows", len(rows))
		converted++
	}
	return converted, nil
}
