package capture

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/fillupt/eyestate/internal/landmark"
)

// Frame wraps a camera Mat as a landmark.Frame. The Mat is owned by the
// webcam and reused across reads; frames are valid only until the next
// Read, matching the per-frame ownership of the sensing loop.
type Frame struct {
	Mat gocv.Mat
}

func (f *Frame) Size() (int, int) {
	return f.Mat.Cols(), f.Mat.Rows()
}

func (f *Frame) EncodeJPEG() ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, f.Mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...), nil
}

// Webcam is the tracker's exclusive camera handle.
type Webcam struct {
	cam *gocv.VideoCapture
	mat gocv.Mat
}

// OpenWebcam opens the capture device by index.
func OpenWebcam(device int) (*Webcam, error) {
	cam, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %d: %w", device, err)
	}
	return &Webcam{cam: cam, mat: gocv.NewMat()}, nil
}

// Read grabs the next frame; ok is false on capture failure.
func (w *Webcam) Read() (landmark.Frame, bool) {
	if ok := w.cam.Read(&w.mat); !ok || w.mat.Empty() {
		return nil, false
	}
	return &Frame{Mat: w.mat}, true
}

func (w *Webcam) Close() error {
	if err := w.mat.Close(); err != nil {
		return err
	}
	return w.cam.Close()
}
