package sensor

import (
	"log/slog"
	"math"
	"time"

	"github.com/fillupt/eyestate/internal/command"
	"github.com/fillupt/eyestate/internal/crop"
	"github.com/fillupt/eyestate/internal/geometry"
	"github.com/fillupt/eyestate/internal/landmark"
	"github.com/fillupt/eyestate/internal/recording"
)

// FrameSource yields camera frames. The loop is the sole owner of the
// source for its entire lifetime.
type FrameSource interface {
	// Read returns the next frame, or ok=false on camera failure.
	Read() (landmark.Frame, bool)
	Close() error
}

// Gesture is user input observed by the display between frames.
type Gesture int

const (
	GestureNone Gesture = iota
	// GestureCloseWindow hides the display; sensing continues.
	GestureCloseWindow
	// GestureExit stops the tracker.
	GestureExit
)

// Display renders one frame per iteration and reports input gestures.
type Display interface {
	Show(frame landmark.Frame, view View) Gesture
	Close()
}

// View is everything the display needs to render one processed frame:
// the adopted crop, its canvas transform, and the classified eye
// contours in canvas coordinates.
type View struct {
	FaceFound  bool
	Crop       crop.Region
	Trans      crop.Transform
	LeftEye    [6]geometry.Point
	RightEye   [6]geometry.Point
	LeftState  geometry.State
	RightState geometry.State
}

// Phase is the loop's lifecycle state.
type Phase int

const (
	PhaseRunning Phase = iota
	PhaseStopped
)

// State is the loop's explicit per-iteration state. Step consumes a
// State and returns the next one; nothing is mutated in place.
type State struct {
	Phase          Phase
	WindowClosed   bool
	ReadyPublished bool
}

// Options configure a sensing loop.
type Options struct {
	Source   FrameSource
	Detector landmark.Source
	Display  Display // nil when headless
	Channel  *command.Channel
	Recorder *recording.Recorder
	Headless bool
	PID      int

	// Overridable for tests.
	Now   func() time.Time
	Sleep func(time.Duration)
}

// Loop is the tracker's single-threaded sensing driver. Each iteration
// polls the command channel, reads one frame, extracts landmarks,
// stabilizes the crop, classifies both eyes, optionally records a row,
// and renders, strictly in that order with no overlap between
// iterations.
type Loop struct {
	src      FrameSource
	det      landmark.Source
	disp     Display
	ch       *command.Channel
	rec      *recording.Recorder
	stab     *crop.Stabilizer
	headless bool
	pid      int
	now      func() time.Time
	sleep    func(time.Duration)
}

func New(opts Options) *Loop {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	return &Loop{
		src:      opts.Source,
		det:      opts.Detector,
		disp:     opts.Display,
		ch:       opts.Channel,
		rec:      opts.Recorder,
		stab:     crop.NewStabilizer(),
		headless: opts.Headless,
		pid:      opts.PID,
		now:      now,
		sleep:    sleep,
	}
}

// Run drives the loop until it stops, then releases all resources.
func (l *Loop) Run() {
	st := State{Phase: PhaseRunning}
	for st.Phase == PhaseRunning {
		st = l.Step(st)
	}
	l.shutdown(st)
}

// Step performs exactly one iteration.
func (l *Loop) Step(st State) State {
	if msg, ok := l.ch.Poll(); ok {
		st = l.dispatch(st, msg)
		if st.Phase == PhaseStopped {
			return st
		}
	}

	frame, ok := l.src.Read()
	if !ok {
		slog.Error("Camera read failed, stopping tracker")
		st.Phase = PhaseStopped
		return st
	}

	// Readiness is published after the first successful frame cycle;
	// a failed write is retried next iteration.
	if !st.ReadyPublished {
		if err := l.ch.PublishReady(l.pid); err != nil {
			slog.Warn("Unable to publish ready file", "err", err)
		} else {
			st.ReadyPublished = true
		}
	}

	pts, found, err := l.det.Detect(frame)
	if err != nil {
		slog.Error("Landmark source failed, stopping tracker", "err", err)
		st.Phase = PhaseStopped
		return st
	}
	var view View
	if found {
		view = l.process(frame, pts)
	}

	if !l.headless && !st.WindowClosed && l.disp != nil {
		switch l.disp.Show(frame, view) {
		case GestureCloseWindow:
			st.WindowClosed = true
			l.disp.Close()
			slog.Info("Window closed, continuing tracking in background")
		case GestureExit:
			st.Phase = PhaseStopped
		}
	} else {
		// Hidden or headless: bounded sleep instead of busy-spinning.
		l.sleep(10 * time.Millisecond)
	}

	return st
}

// process runs the per-frame sensing pipeline for a detected face.
func (l *Loop) process(frame landmark.Frame, pts []geometry.Point) View {
	w, h := frame.Size()
	faceMin, faceMax, ok := geometry.FaceBounds(pts)
	if !ok {
		return View{}
	}

	region := l.stab.Update(faceMin, faceMax, w, h)
	trans := l.stab.CanvasTransform(region)

	canvasPts := make([]geometry.Point, len(pts))
	for i, p := range pts {
		canvasPts[i] = trans.Apply(p, region)
	}

	left := geometry.Measure(canvasPts, geometry.LeftEye)
	right := geometry.Measure(canvasPts, geometry.RightEye)

	view := View{
		FaceFound:  true,
		Crop:       region,
		Trans:      trans,
		LeftState:  geometry.Classify(left.EAR),
		RightState: geometry.Classify(right.EAR),
	}
	for i, idx := range geometry.LeftEye {
		view.LeftEye[i] = canvasPts[idx]
	}
	for i, idx := range geometry.RightEye {
		view.RightEye[i] = canvasPts[idx]
	}

	// Degenerate geometry on either eye skips the frame's row.
	if l.rec.Armed() && !math.IsNaN(left.EAR) && !math.IsNaN(right.EAR) {
		l.rec.Append(recording.Row{
			Timestamp:  float64(l.now().UnixNano()) / 1e9,
			LeftEAR:    left.EAR,
			RightEAR:   right.EAR,
			LETemporal: left.TemporalVertical,
			LENasal:    left.NasalVertical,
			RETemporal: right.TemporalVertical,
			RENasal:    right.NasalVertical,
			LEWidth:    left.Width,
			REWidth:    right.Width,
		})
	}

	return view
}

func (l *Loop) dispatch(st State, msg command.Message) State {
	switch msg.Kind {
	case command.KindStartRecording:
		l.rec.Arm(msg.Filename)
	case command.KindStopRecording:
		l.rec.DisarmAndFlush()
	case command.KindCloseWindow:
		if !st.WindowClosed && !l.headless {
			st.WindowClosed = true
			if l.disp != nil {
				l.disp.Close()
			}
			slog.Info("Window closed by command, continuing in background")
		}
	case command.KindShutdown:
		slog.Info("Shutdown command received")
		st.Phase = PhaseStopped
	}
	return st
}

// shutdown flushes a still-armed recording before retracting the
// readiness signal, then releases the camera and display.
func (l *Loop) shutdown(st State) {
	if l.rec.Armed() {
		l.rec.DisarmAndFlush()
	}
	l.ch.RetractReady()
	l.ch.Clear()

	if err := l.det.Close(); err != nil {
		slog.Warn("Landmark source shutdown", "err", err)
	}
	if err := l.src.Close(); err != nil {
		slog.Warn("Camera release", "err", err)
	}
	if l.disp != nil && !st.WindowClosed {
		l.disp.Close()
	}
}
