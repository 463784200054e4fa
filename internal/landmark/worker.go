package landmark

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os/exec"

	"github.com/fillupt/eyestate/internal/geometry"
)

// MeshWorker adapts an external face-mesh helper process into a Source.
// The helper reads frames from stdin and answers on stdout, one
// request per frame:
//
//	request:  uint32 big-endian JPEG length, then the JPEG bytes
//	response: uint32 big-endian point count, then count (x, y) pairs of
//	          float64 big-endian pixel coordinates; count 0 = no face
//
// A helper failure is permanent: Detect reports it as an error so the
// tracker shuts down rather than running blind for the rest of the
// session.
type MeshWorker struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	err    error
}

// StartMeshWorker launches the helper command and wires its pipes.
func StartMeshWorker(name string, args ...string) (*MeshWorker, error) {
	cmd := exec.Command(name, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("face-mesh helper failed to start: %w", err)
	}

	return &MeshWorker{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdout),
	}, nil
}

// Detect sends the frame to the helper and reads back the landmark set.
func (w *MeshWorker) Detect(frame Frame) ([]geometry.Point, bool, error) {
	if w.err != nil {
		return nil, false, w.err
	}

	jpeg, err := frame.EncodeJPEG()
	if err != nil {
		// Per-frame encode trouble is transient; treat as no face.
		slog.Warn("Unable to encode frame for detection", "err", err)
		return nil, false, nil
	}

	pts, err := w.roundTrip(jpeg)
	if err != nil {
		w.err = fmt.Errorf("face-mesh helper failed: %w", err)
		return nil, false, w.err
	}
	if len(pts) == 0 {
		return nil, false, nil
	}
	return pts, true, nil
}

func (w *MeshWorker) roundTrip(jpeg []byte) ([]geometry.Point, error) {
	if err := binary.Write(w.stdin, binary.BigEndian, uint32(len(jpeg))); err != nil {
		return nil, err
	}
	if _, err := w.stdin.Write(jpeg); err != nil {
		return nil, err
	}

	var count uint32
	if err := binary.Read(w.stdout, binary.BigEndian, &count); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}

	coords := make([]float64, 2*count)
	if err := binary.Read(w.stdout, binary.BigEndian, coords); err != nil {
		return nil, err
	}

	pts := make([]geometry.Point, count)
	for i := range pts {
		pts[i] = geometry.Point{X: coords[2*i], Y: coords[2*i+1]}
	}
	return pts, nil
}

// Close shuts the helper down and reaps the process.
func (w *MeshWorker) Close() error {
	w.stdin.Close()
	return w.cmd.Wait()
}
