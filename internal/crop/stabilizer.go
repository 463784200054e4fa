package crop

import (
	"math"

	"github.com/fillupt/eyestate/internal/geometry"
)

// Canvas dimensions for the display/processing frame.
const (
	CanvasWidth  = 640
	CanvasHeight = 480
)

const (
	// Padding added around the face box, as a fraction of face extent.
	padFactor = 0.5
	// Zoom applied on top of the fit-to-canvas scale.
	zoomFactor = 1.5
	// Center displacement below this fraction of the face extent keeps
	// the previous crop (jitter suppression).
	jitterFraction = 0.15
)

// Region is an axis-aligned crop rectangle in source-frame pixels.
type Region struct {
	X1, Y1, X2, Y2 int
}

func (r Region) Width() int  { return r.X2 - r.X1 }
func (r Region) Height() int { return r.Y2 - r.Y1 }

func (r Region) center() (int, int) {
	return (r.X1 + r.X2) / 2, (r.Y1 + r.Y2) / 2
}

// Transform maps source-frame pixel coordinates into canvas coordinates
// for a given crop region: translate by the crop origin, scale, then
// subtract the symmetric-crop start and add the centering offset.
type Transform struct {
	Scale                  float64
	CropStartX, CropStartY int
	OffsetX, OffsetY       int
}

// Apply remaps a source-frame point into canvas coordinates. Results
// are truncated to whole pixels, matching the precision the recorded
// measurements are taken at.
func (t Transform) Apply(p geometry.Point, r Region) geometry.Point {
	x := (p.X-float64(r.X1))*t.Scale - float64(t.CropStartX) + float64(t.OffsetX)
	y := (p.Y-float64(r.Y1))*t.Scale - float64(t.CropStartY) + float64(t.OffsetY)
	return geometry.Point{X: math.Trunc(x), Y: math.Trunc(y)}
}

// Stabilizer damps frame-to-frame crop jitter: a candidate crop whose
// center moved less than 15% of the face extent on both axes is
// discarded in favor of the previously adopted region. One Stabilizer
// is owned by the sensing loop and carried across frames.
type Stabilizer struct {
	prev *Region
}

func NewStabilizer() *Stabilizer {
	return &Stabilizer{}
}

// Update computes this frame's crop region from the face extents,
// reusing the previous region under sub-threshold motion. The returned
// region is remembered for the next frame. On face loss, callers simply
// skip Update and the previous region is retained.
func (s *Stabilizer) Update(faceMin, faceMax geometry.Point, frameW, frameH int) Region {
	faceW := faceMax.X - faceMin.X
	faceH := faceMax.Y - faceMin.Y
	padW := int(faceW * padFactor)
	padH := int(faceH * padFactor)

	cand := Region{
		X1: maxInt(0, int(faceMin.X)-padW),
		Y1: maxInt(0, int(faceMin.Y)-padH),
		X2: minInt(frameW, int(faceMax.X)+padW),
		Y2: minInt(frameH, int(faceMax.Y)+padH),
	}

	if s.prev != nil {
		pcx, pcy := s.prev.center()
		ccx, ccy := cand.center()
		if math.Abs(float64(ccx-pcx)) < faceW*jitterFraction &&
			math.Abs(float64(ccy-pcy)) < faceH*jitterFraction {
			cand = *s.prev
		}
	}

	adopted := cand
	s.prev = &adopted
	return cand
}

// Reset forgets the previous crop region.
func (s *Stabilizer) Reset() {
	s.prev = nil
}

// CanvasTransform derives the coordinate transform that centers the
// zoomed crop in the canvas. Content exceeding the canvas on an axis is
// cropped symmetrically from that axis instead of letterboxed, with the
// centering offset zeroed.
func (s *Stabilizer) CanvasTransform(r Region) Transform {
	w, h := r.Width(), r.Height()
	if w <= 0 || h <= 0 {
		return Transform{Scale: 1}
	}

	scale := math.Min(float64(CanvasWidth)/float64(w), float64(CanvasHeight)/float64(h)) * zoomFactor
	zoomedW := int(float64(w) * scale)
	zoomedH := int(float64(h) * scale)

	t := Transform{Scale: scale}
	if zoomedW > CanvasWidth {
		t.CropStartX = (zoomedW - CanvasWidth) / 2
	} else {
		t.OffsetX = (CanvasWidth - zoomedW) / 2
	}
	if zoomedH > CanvasHeight {
		t.CropStartY = (zoomedH - CanvasHeight) / 2
	} else {
		t.OffsetY = (CanvasHeight - zoomedH) / 2
	}
	return t
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
