package geometry

import "math"

// Face-mesh indices for the six-point eye contours, ordered
// {temporal corner, top-temporal, top-nasal, nasal corner,
// bottom-nasal, bottom-temporal}.
var (
	LeftEye  = EyeIndices{33, 160, 158, 133, 153, 144}
	RightEye = EyeIndices{362, 385, 387, 263, 373, 380}
)

// EARThreshold is the eye-aspect-ratio below which an eye is classified
// as closed. A ratio exactly at the threshold classifies as open.
const EARThreshold = 0.25

// Point is a 2-D landmark position in pixel coordinates.
type Point struct {
	X float64
	Y float64
}

// EyeIndices selects one eye's six contour points out of a landmark set.
type EyeIndices [6]int

// State is the per-frame classification of a single eye.
type State int

const (
	StateUnknown State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "Open"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Metrics holds one eye's per-frame measurements. Distances are in
// whatever pixel coordinate frame the landmarks were expressed in.
type Metrics struct {
	EAR              float64
	TemporalVertical float64
	NasalVertical    float64
	Width            float64
}

func dist(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Measure computes the eye-aspect-ratio feature for one eye:
// EAR = (A + B) / (2C) where A and B are the temporal and nasal
// vertical distances and C is the horizontal width. A degenerate eye
// (zero width, or indices outside the landmark set) yields a NaN EAR;
// callers must treat that as no usable measurement for the frame.
func Measure(landmarks []Point, eye EyeIndices) Metrics {
	for _, idx := range eye {
		if idx < 0 || idx >= len(landmarks) {
			return Metrics{EAR: math.NaN()}
		}
	}

	a := dist(landmarks[eye[1]], landmarks[eye[5]])
	b := dist(landmarks[eye[2]], landmarks[eye[4]])
	c := dist(landmarks[eye[0]], landmarks[eye[3]])

	m := Metrics{
		TemporalVertical: a,
		NasalVertical:    b,
		Width:            c,
	}
	if c == 0 {
		m.EAR = math.NaN()
		return m
	}
	m.EAR = (a + b) / (2 * c)
	return m
}

// Classify maps an EAR to an eye state. No smoothing or hysteresis is
// applied; downstream analysis works on the raw per-frame values.
func Classify(ear float64) State {
	if math.IsNaN(ear) {
		return StateUnknown
	}
	if ear < EARThreshold {
		return StateClosed
	}
	return StateOpen
}

// FaceBounds returns the min/max extents of a landmark set.
func FaceBounds(landmarks []Point) (min, max Point, ok bool) {
	if len(landmarks) == 0 {
		return Point{}, Point{}, false
	}
	min, max = landmarks[0], landmarks[0]
	for _, p := range landmarks[1:] {
		if p.X < min.X {
			min.X = p.X
		}
		if p.Y < min.Y {
			min.Y = p.Y
		}
		if p.X > max.X {
			max.X = p.X
		}
		if p.Y > max.Y {
			max.Y = p.Y
		}
	}
	return min, max, true
}
