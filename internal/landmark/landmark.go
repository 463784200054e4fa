package landmark

import "github.com/fillupt/eyestate/internal/geometry"

// Frame is one camera image presented to a landmark source.
type Frame interface {
	// Size reports the frame's pixel dimensions.
	Size() (width, height int)
	// EncodeJPEG renders the frame as JPEG bytes for transport to an
	// out-of-process detector.
	EncodeJPEG() ([]byte, error)
}

// Source yields the primary face's landmark points for a frame, in
// pixel coordinates, with a stable indexing scheme (at least 468
// points, face-mesh layout). found is false when no face is in the
// frame. A non-nil error means the source has failed permanently and
// will produce no further detections; callers must stop using it.
// Additional faces beyond the primary one are ignored by contract.
type Source interface {
	Detect(frame Frame) (points []geometry.Point, found bool, err error)
	Close() error
}
