package sensor

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fillupt/eyestate/internal/command"
	"github.com/fillupt/eyestate/internal/geometry"
	"github.com/fillupt/eyestate/internal/landmark"
	"github.com/fillupt/eyestate/internal/recording"
)

type fakeFrame struct{ w, h int }

func (f fakeFrame) Size() (int, int)          { return f.w, f.h }
func (f fakeFrame) EncodeJPEG() ([]byte, error) { return []byte{0xff, 0xd8}, nil }

// fakeSource returns frames until the script runs out, invoking the
// optional hook before each successful read. Hooks let tests inject
// commands between loop iterations.
type fakeSource struct {
	frames int
	reads  int
	hook   func(read int)
	closed bool
}

func (s *fakeSource) Read() (landmark.Frame, bool) {
	if s.reads >= s.frames {
		return nil, false
	}
	if s.hook != nil {
		s.hook(s.reads)
	}
	s.reads++
	return fakeFrame{w: 1280, h: 720}, true
}

func (s *fakeSource) Close() error {
	s.closed = true
	return nil
}

type fakeDetector struct {
	pts []geometry.Point
	err error
}

func (d *fakeDetector) Detect(landmark.Frame) ([]geometry.Point, bool, error) {
	if d.err != nil {
		return nil, false, d.err
	}
	return d.pts, d.pts != nil, nil
}

func (d *fakeDetector) Close() error { return nil }

type fakeDisplay struct {
	gestures []Gesture
	shows    int
	closed   bool
}

func (d *fakeDisplay) Show(landmark.Frame, View) Gesture {
	d.shows++
	if len(d.gestures) == 0 {
		return GestureNone
	}
	g := d.gestures[0]
	d.gestures = d.gestures[1:]
	return g
}

func (d *fakeDisplay) Close() { d.closed = true }

// facePoints builds a full 468-point landmark set with plausible open
// eyes around a face spanning roughly (100,100)-(400,300).
func facePoints() []geometry.Point {
	pts := make([]geometry.Point, 468)
	for i := range pts {
		pts[i] = geometry.Point{X: 250, Y: 200}
	}
	pts[0] = geometry.Point{X: 100, Y: 100}
	pts[1] = geometry.Point{X: 400, Y: 300}

	set := func(eye geometry.EyeIndices, cx float64) {
		pts[eye[0]] = geometry.Point{X: cx - 20, Y: 180}
		pts[eye[1]] = geometry.Point{X: cx - 8, Y: 172}
		pts[eye[2]] = geometry.Point{X: cx + 8, Y: 172}
		pts[eye[3]] = geometry.Point{X: cx + 20, Y: 180}
		pts[eye[4]] = geometry.Point{X: cx + 8, Y: 188}
		pts[eye[5]] = geometry.Point{X: cx - 8, Y: 188}
	}
	set(geometry.LeftEye, 190)
	set(geometry.RightEye, 310)
	return pts
}

func newTestLoop(t *testing.T, src *fakeSource, det landmark.Source, disp Display, headless bool) (*Loop, *command.Channel, *recording.Recorder, string) {
	t.Helper()
	workdir := t.TempDir()
	outdir := t.TempDir()
	ch := command.New(workdir)
	rec := recording.NewRecorder(outdir)
	loop := New(Options{
		Source:   src,
		Detector: det,
		Display:  disp,
		Channel:  ch,
		Recorder: rec,
		Headless: headless,
		PID:      4242,
		Now:      func() time.Time { return time.Unix(1700000000, 0) },
		Sleep:    func(time.Duration) {},
	})
	return loop, ch, rec, outdir
}

func TestStepPublishesReadyAfterFirstFrame(t *testing.T) {
	src := &fakeSource{frames: 5}
	loop, ch, _, _ := newTestLoop(t, src, &fakeDetector{}, nil, true)

	st := loop.Step(State{Phase: PhaseRunning})
	if !st.ReadyPublished {
		t.Fatal("expected ready to be published after first frame")
	}
	pid, ok := ch.ReadyPID()
	if !ok || pid != 4242 {
		t.Errorf("ReadyPID = %d ok=%v, want 4242", pid, ok)
	}
}

func TestStepRecordsWhileArmed(t *testing.T) {
	src := &fakeSource{frames: 10}
	loop, ch, rec, outdir := newTestLoop(t, src, &fakeDetector{pts: facePoints()}, nil, true)

	st := State{Phase: PhaseRunning}
	st = loop.Step(st) // no command yet: nothing recorded
	if rec.Len() != 0 {
		t.Fatalf("recorded %d rows before arming", rec.Len())
	}

	if err := ch.Send(command.StartRecording("a.csv")); err != nil {
		t.Fatal(err)
	}
	st = loop.Step(st)
	st = loop.Step(st)
	if rec.Len() != 2 {
		t.Fatalf("recorded %d rows, want one per armed frame", rec.Len())
	}

	if err := ch.Send(command.Message{Kind: command.KindStopRecording}); err != nil {
		t.Fatal(err)
	}
	st = loop.Step(st)
	if st.Phase != PhaseRunning {
		t.Error("stop recording must not stop the loop")
	}
	if rec.Armed() {
		t.Error("expected recorder disarmed after stop")
	}

	data, err := os.ReadFile(filepath.Join(outdir, "a.csv"))
	if err != nil {
		t.Fatalf("reading recording: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Errorf("a.csv has %d lines, want header + 2 rows", len(lines))
	}
	if lines[0] != recording.Header {
		t.Errorf("header = %q", lines[0])
	}
}

func TestShutdownWhileArmedFlushesBeforeRetractingReady(t *testing.T) {
	var ch *command.Channel
	src := &fakeSource{frames: 10}
	src.hook = func(read int) {
		switch read {
		case 0:
			if err := ch.Send(command.StartRecording("run.csv")); err != nil {
				t.Error(err)
			}
		case 1:
			if err := ch.Send(command.Message{Kind: command.KindShutdown}); err != nil {
				t.Error(err)
			}
		}
	}

	loop, channel, _, outdir := newTestLoop(t, src, &fakeDetector{pts: facePoints()}, nil, true)
	ch = channel
	loop.Run()

	data, err := os.ReadFile(filepath.Join(outdir, "run.csv"))
	if err != nil {
		t.Fatalf("expected flushed recording despite shutdown: %v", err)
	}
	if got := strings.Count(string(data), "\n"); got != 2 {
		t.Errorf("run.csv has %d lines, want header + 1 armed frame", got)
	}

	if _, ok := channel.ReadyPID(); ok {
		t.Error("ready file must be retracted on shutdown")
	}
	if !src.closed {
		t.Error("camera must be released on shutdown")
	}
}

func TestCameraFailureStopsLoop(t *testing.T) {
	src := &fakeSource{frames: 0}
	loop, ch, _, _ := newTestLoop(t, src, &fakeDetector{}, nil, true)

	st := loop.Step(State{Phase: PhaseRunning})
	if st.Phase != PhaseStopped {
		t.Error("camera read failure must stop the loop")
	}
	if _, ok := ch.ReadyPID(); ok {
		t.Error("readiness must not be published without a successful frame")
	}
}

func TestDetectorFailureStopsLoop(t *testing.T) {
	src := &fakeSource{frames: 10}
	det := &fakeDetector{err: errors.New("helper exited")}
	loop, ch, _, _ := newTestLoop(t, src, det, nil, true)

	loop.Run()

	if src.reads != 1 {
		t.Errorf("loop read %d frames, want stop on first detector failure", src.reads)
	}
	if _, ok := ch.ReadyPID(); ok {
		t.Error("readiness must be retracted after a detector failure")
	}
	if !src.closed {
		t.Error("camera must be released after a detector failure")
	}
}

func TestNoFaceSkipsRecording(t *testing.T) {
	src := &fakeSource{frames: 5}
	loop, ch, rec, _ := newTestLoop(t, src, &fakeDetector{pts: nil}, nil, true)

	if err := ch.Send(command.StartRecording("a.csv")); err != nil {
		t.Fatal(err)
	}
	st := State{Phase: PhaseRunning}
	st = loop.Step(st)
	st = loop.Step(st)
	if st.Phase != PhaseRunning {
		t.Fatal("no-face frames must not stop the loop")
	}
	if rec.Len() != 0 {
		t.Errorf("recorded %d rows with no face detected", rec.Len())
	}
}

func TestDegenerateGeometrySkipsRow(t *testing.T) {
	// Every landmark in one spot: zero eye width, NaN EAR.
	pts := make([]geometry.Point, 468)
	for i := range pts {
		pts[i] = geometry.Point{X: 250, Y: 200}
	}

	src := &fakeSource{frames: 5}
	loop, ch, rec, _ := newTestLoop(t, src, &fakeDetector{pts: pts}, nil, true)

	if err := ch.Send(command.StartRecording("a.csv")); err != nil {
		t.Fatal(err)
	}
	st := State{Phase: PhaseRunning}
	loop.Step(st)
	if rec.Len() != 0 {
		t.Errorf("recorded %d rows from degenerate geometry", rec.Len())
	}
}

func TestWindowCloseGestureGoesHeadless(t *testing.T) {
	src := &fakeSource{frames: 10}
	disp := &fakeDisplay{gestures: []Gesture{GestureNone, GestureCloseWindow}}
	loop, _, _, _ := newTestLoop(t, src, &fakeDetector{pts: facePoints()}, disp, false)

	st := State{Phase: PhaseRunning}
	st = loop.Step(st)
	st = loop.Step(st)
	if !st.WindowClosed {
		t.Fatal("close gesture must mark the window closed")
	}
	if st.Phase != PhaseRunning {
		t.Fatal("close gesture must not stop sensing")
	}
	if !disp.closed {
		t.Error("display must be closed")
	}

	shows := disp.shows
	st = loop.Step(st)
	if disp.shows != shows {
		t.Error("no rendering expected after window close")
	}
	if st.Phase != PhaseRunning {
		t.Error("sensing continues after window close")
	}
}

func TestExitGestureStopsLoop(t *testing.T) {
	src := &fakeSource{frames: 10}
	disp := &fakeDisplay{gestures: []Gesture{GestureExit}}
	loop, _, _, _ := newTestLoop(t, src, &fakeDetector{pts: facePoints()}, disp, false)

	st := loop.Step(State{Phase: PhaseRunning})
	if st.Phase != PhaseStopped {
		t.Error("exit gesture must stop the loop")
	}
}

func TestCloseWindowCommand(t *testing.T) {
	src := &fakeSource{frames: 10}
	disp := &fakeDisplay{}
	loop, ch, _, _ := newTestLoop(t, src, &fakeDetector{pts: facePoints()}, disp, false)

	st := State{Phase: PhaseRunning}
	st = loop.Step(st)

	if err := ch.Send(command.Message{Kind: command.KindCloseWindow}); err != nil {
		t.Fatal(err)
	}
	st = loop.Step(st)
	if !st.WindowClosed {
		t.Error("CLOSE_WINDOW must hide the display")
	}
	if st.Phase != PhaseRunning {
		t.Error("CLOSE_WINDOW must not stop sensing")
	}
	if !disp.closed {
		t.Error("display must be closed by command")
	}
}

func TestDuplicateStartKeepsSession(t *testing.T) {
	src := &fakeSource{frames: 10}
	loop, ch, rec, _ := newTestLoop(t, src, &fakeDetector{pts: facePoints()}, nil, true)

	st := State{Phase: PhaseRunning}
	if err := ch.Send(command.StartRecording("first.csv")); err != nil {
		t.Fatal(err)
	}
	st = loop.Step(st)

	if err := ch.Send(command.StartRecording("second.csv")); err != nil {
		t.Fatal(err)
	}
	loop.Step(st)

	if rec.Filename() != "first.csv" {
		t.Errorf("armed filename = %q, want first.csv", rec.Filename())
	}
	if rec.Len() != 2 {
		t.Errorf("buffer = %d rows, want duplicate start to keep buffering", rec.Len())
	}
}
