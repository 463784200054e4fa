package capture

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/fillupt/eyestate/internal/crop"
	"github.com/fillupt/eyestate/internal/geometry"
	"github.com/fillupt/eyestate/internal/landmark"
	"github.com/fillupt/eyestate/internal/sensor"
)

const windowTitle = "Eye State Detection"

var (
	colorOpen     = color.RGBA{G: 255}
	colorClosed   = color.RGBA{R: 255}
	colorVertical = color.RGBA{R: 255, B: 255}
)

// Window renders the zoomed face crop with classified eye overlays in a
// fixed 640x480 window and reports user close/exit gestures.
type Window struct {
	win    *gocv.Window
	closed bool
}

func NewWindow() *Window {
	win := gocv.NewWindow(windowTitle)
	win.ResizeWindow(crop.CanvasWidth, crop.CanvasHeight)
	return &Window{win: win}
}

// Show composes and renders one frame, then samples pending input.
func (w *Window) Show(frame landmark.Frame, view sensor.View) sensor.Gesture {
	if w.closed {
		return sensor.GestureNone
	}
	f, ok := frame.(*Frame)
	if !ok {
		return sensor.GestureNone
	}

	img, owned := w.compose(f.Mat, view)
	w.win.IMShow(img)
	if owned {
		img.Close()
	}
	key := w.win.WaitKey(1)

	if w.win.GetWindowProperty(gocv.WindowPropertyVisible) < 1 {
		return sensor.GestureCloseWindow
	}
	if key == 27 { // ESC
		return sensor.GestureExit
	}
	return sensor.GestureNone
}

// compose builds the display image: the raw frame when no face was
// found, otherwise the stabilized crop zoomed onto a black canvas with
// the eye contours drawn on top.
func (w *Window) compose(src gocv.Mat, v sensor.View) (gocv.Mat, bool) {
	if !v.FaceFound {
		return src, false
	}
	rect := image.Rect(v.Crop.X1, v.Crop.Y1, v.Crop.X2, v.Crop.Y2)
	if rect.Dx() <= 0 || rect.Dy() <= 0 {
		return src, false
	}

	cropped := src.Region(rect)
	defer cropped.Close()

	zoomW := int(float64(v.Crop.Width()) * v.Trans.Scale)
	zoomH := int(float64(v.Crop.Height()) * v.Trans.Scale)
	if zoomW <= 0 || zoomH <= 0 {
		return src, false
	}

	zoomed := gocv.NewMat()
	defer zoomed.Close()
	gocv.Resize(cropped, &zoomed, image.Pt(zoomW, zoomH), 0, 0, gocv.InterpolationLinear)

	visW := minInt(zoomW, crop.CanvasWidth)
	visH := minInt(zoomH, crop.CanvasHeight)
	visible := zoomed.Region(image.Rect(
		v.Trans.CropStartX, v.Trans.CropStartY,
		v.Trans.CropStartX+visW, v.Trans.CropStartY+visH,
	))
	defer visible.Close()

	canvas := gocv.NewMatWithSizeFromScalar(
		gocv.NewScalar(0, 0, 0, 0),
		crop.CanvasHeight, crop.CanvasWidth, gocv.MatTypeCV8UC3,
	)
	dst := canvas.Region(image.Rect(
		v.Trans.OffsetX, v.Trans.OffsetY,
		v.Trans.OffsetX+visW, v.Trans.OffsetY+visH,
	))
	visible.CopyTo(&dst)
	dst.Close()

	drawEye(&canvas, v.LeftEye, stateColor(v.LeftState))
	drawEye(&canvas, v.RightEye, stateColor(v.RightState))
	return canvas, true
}

// drawEye draws the six-point contour hexagon plus the temporal and
// nasal vertical measurement segments.
func drawEye(img *gocv.Mat, eye [6]geometry.Point, c color.RGBA) {
	var pts [6]image.Point
	for i, p := range eye {
		pts[i] = image.Pt(int(p.X), int(p.Y))
	}
	for _, p := range pts {
		gocv.Circle(img, p, 2, c, -1)
	}
	for i := range pts {
		gocv.Line(img, pts[i], pts[(i+1)%len(pts)], c, 1)
	}
	gocv.Line(img, pts[1], pts[5], colorVertical, 2)
	gocv.Line(img, pts[2], pts[4], colorVertical, 2)
}

func stateColor(s geometry.State) color.RGBA {
	if s == geometry.StateClosed {
		return colorClosed
	}
	return colorOpen
}

func (w *Window) Close() {
	if w.closed {
		return
	}
	w.closed = true
	w.win.Close()
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
