package session

import (
	"context"
	"errors"
	"io"
	"log"
	"reflect"
	"testing"

	"github.com/ayusman/podium/internal/capture"
	"github.com/ayusman/podium/internal/detector"
	"github.com/ayusman/podium/internal/display"
	"github.com/ayusman/podium/internal/emotion"
	"github.com/ayusman/podium/internal/face"
	"github.com/ayusman/podium/internal/gesture"
	"github.com/ayusman/podium/internal/plugin"
	"github.com/ayusman/podium/internal/presentation"
	"github.com/ayusman/podium/testdata"
	"gocv.io/x/gocv"
)

// scriptedEmotions returns one raw label per call, then repeats the last.
type scriptedEmotions struct {
	labels []string
	calls  int
}

func (s *scriptedEmotions) Classify(ctx context.Context, frame *gocv.Mat) (string, error) {
	s.calls++
	if len(s.labels) == 0 {
		return "neutral", nil
	}
	idx := s.calls - 1
	if idx >= len(s.labels) {
		idx = len(s.labels) - 1
	}
	return s.labels[idx], nil
}

func (s *scriptedEmotions) Close() error { return nil }

type fixture struct {
	session  *Session
	verifier *face.Mock
	hands    *detector.MockDetector
	emotions *scriptedEmotions
	surface  *display.Recorder
}

// newFixture builds a session over a deck of slideCount blank slides whose
// presenter authenticates on the first frame.
func newFixture(t *testing.T, slideCount int) *fixture {
	t.Helper()

	slides := make([]gocv.Mat, slideCount)
	for i := range slides {
		slides[i] = gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	}
	deck := presentation.NewDeck(slides)
	t.Cleanup(deck.Close)

	f := &fixture{
		verifier: &face.Mock{Results: []bool{true}},
		hands:    detector.NewMockDetector(),
		emotions: &scriptedEmotions{},
		surface:  display.NewRecorder(false),
	}
	t.Cleanup(func() { f.surface.Close() })

	s, err := New(Options{
		Gate:     face.NewGate(f.verifier, "Ada", face.DefaultMaxAttempts),
		Hands:    f.hands,
		Emotions: f.emotions,
		Surface:  f.surface,
		Deck:     deck,
		Logger:   log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	f.session = s
	return f
}

// step runs one frame on a blank image.
func (f *fixture) step(t *testing.T) Result {
	t.Helper()
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	r, err := f.session.Step(context.Background(), &frame)
	if err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	return r
}

// authenticate consumes the auth frame.
func (f *fixture) authenticate(t *testing.T) {
	t.Helper()
	if r := f.step(t); r.Phase != PhaseAuth || !r.Authenticated {
		t.Fatalf("auth frame = %+v, want authenticated auth phase", r)
	}
}

// gestureFrame runs one frame where hand is the only detected hand.
func (f *fixture) gestureFrame(t *testing.T, hand detector.HandLandmarks) Result {
	t.Helper()
	f.hands.Queue([]detector.HandLandmarks{hand})
	return f.step(t)
}

func TestNew_RequiresCollaborators(t *testing.T) {
	slides := []gocv.Mat{gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC3)}
	deck := presentation.NewDeck(slides)
	defer deck.Close()

	gate := face.NewGate(&face.Mock{}, "Ada", 1)
	hands := detector.NewMockDetector()
	surface := display.NewRecorder(false)
	defer surface.Close()

	tests := []struct {
		name string
		opts Options
	}{
		{"no gate", Options{Hands: hands, Surface: surface, Deck: deck}},
		{"no detector", Options{Gate: gate, Surface: surface, Deck: deck}},
		{"no surface", Options{Gate: gate, Hands: hands, Deck: deck}},
		{"no deck", Options{Gate: gate, Hands: hands, Surface: surface}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.opts); err == nil {
				t.Error("expected error")
			}
		})
	}

	_, err := New(Options{Gate: gate, Hands: hands, Surface: surface, Deck: presentation.NewDeck(nil)})
	if !errors.Is(err, presentation.ErrDeckMissing) {
		t.Errorf("empty deck error = %v, want ErrDeckMissing", err)
	}
}

func TestStep_AuthPhase(t *testing.T) {
	f := newFixture(t, 9)
	f.verifier.Results = []bool{false, false, true}

	for i := 1; i <= 3; i++ {
		r := f.step(t)
		if r.Phase != PhaseAuth {
			t.Fatalf("frame %d phase = %s, want auth", i, r.Phase)
		}
		if r.AuthAttempts != i {
			t.Errorf("frame %d attempts = %d, want %d", i, r.AuthAttempts, i)
		}
		if want := i == 3; r.Authenticated != want {
			t.Errorf("frame %d authenticated = %v, want %v", i, r.Authenticated, want)
		}
	}

	if f.hands.Calls() != 0 || f.emotions.calls != 0 {
		t.Errorf("gesture/emotion collaborators ran during auth: %d/%d", f.hands.Calls(), f.emotions.calls)
	}
	if f.surface.Frames != 3 {
		t.Errorf("rendered %d frames, want 3", f.surface.Frames)
	}

	r := f.step(t)
	if r.Phase != PhaseGesture || r.Forced {
		t.Errorf("frame 4 = %+v, want unforced gesture phase", r)
	}
	if f.verifier.Calls() != 3 {
		t.Errorf("verifier calls = %d, want 3", f.verifier.Calls())
	}
}

func TestStep_AuthFailsOpen(t *testing.T) {
	f := newFixture(t, 9)
	f.verifier.Results = []bool{false}

	for i := 0; i < face.DefaultMaxAttempts; i++ {
		if r := f.step(t); r.Phase != PhaseAuth {
			t.Fatalf("frame %d phase = %s, want auth", i+1, r.Phase)
		}
	}

	r := f.step(t)
	if r.Phase != PhaseGesture {
		t.Fatalf("frame 11 phase = %s, want gesture", r.Phase)
	}
	if !r.Authenticated || !r.Forced {
		t.Errorf("frame 11 = authenticated %v forced %v, want both", r.Authenticated, r.Forced)
	}
	if f.verifier.Calls() != face.DefaultMaxAttempts {
		t.Errorf("verifier calls = %d, want %d", f.verifier.Calls(), face.DefaultMaxAttempts)
	}
}

func TestStep_VerifierErrorCountsAsFailure(t *testing.T) {
	f := newFixture(t, 9)
	f.verifier.Err = errors.New("model crashed")

	r := f.step(t)
	if r.Authenticated || r.AuthAttempts != 1 {
		t.Errorf("result = %+v, want one failed attempt", r)
	}
}

func TestStep_Navigation(t *testing.T) {
	f := newFixture(t, 9)
	f.authenticate(t)

	steps := []struct {
		gesture gesture.Label
		want    presentation.State
		display string
		spoken  []string
	}{
		{gesture.Start, presentation.ActiveAt(1), "Show(1)", []string{"Presentation started", "Showing slide 1"}},
		{gesture.Next, presentation.ActiveAt(2), "Show(2)", []string{"Next slide activated", "Showing slide 2"}},
		{gesture.Next, presentation.ActiveAt(3), "Show(3)", []string{"Next slide activated", "Showing slide 3"}},
		{gesture.Previous, presentation.ActiveAt(2), "Show(2)", []string{"Previous slide activated", "Showing slide 2"}},
		{gesture.End, presentation.Inactive, "Clear", []string{"Presentation ended"}},
	}

	for i, st := range steps {
		r := f.gestureFrame(t, testdata.Hand(st.gesture))
		if r.Gesture != st.gesture {
			t.Fatalf("step %d gesture = %s, want %s", i, r.Gesture, st.gesture)
		}
		if r.State != st.want {
			t.Errorf("step %d state = %s, want %s", i, r.State, st.want)
		}
		if r.Display() != st.display {
			t.Errorf("step %d display = %q, want %q", i, r.Display(), st.display)
		}
		if !reflect.DeepEqual(r.Spoken, st.spoken) {
			t.Errorf("step %d spoken = %q, want %q", i, r.Spoken, st.spoken)
		}
	}

	if !reflect.DeepEqual(f.surface.Slides, []int{1, 2, 3, 2}) {
		t.Errorf("slides shown = %v, want [1 2 3 2]", f.surface.Slides)
	}
	if f.surface.Clears != 1 || f.surface.SlideOpen {
		t.Errorf("clears = %d open = %v, want 1 closed", f.surface.Clears, f.surface.SlideOpen)
	}
	if f.session.LastGesture() != gesture.End {
		t.Errorf("LastGesture() = %s, want End", f.session.LastGesture())
	}
}

func TestStep_Boundaries(t *testing.T) {
	f := newFixture(t, 2)
	f.authenticate(t)

	f.gestureFrame(t, testdata.Hand(gesture.Start))

	r := f.gestureFrame(t, testdata.Hand(gesture.Previous))
	if r.State != presentation.ActiveAt(1) || r.Command != nil {
		t.Errorf("Previous at slide 1 = %s %q, want no-op", r.State, r.Display())
	}
	if !reflect.DeepEqual(r.Spoken, []string{"Previous slide activated"}) {
		t.Errorf("spoken = %q, want only the announcement", r.Spoken)
	}

	f.gestureFrame(t, testdata.Hand(gesture.Next))
	r = f.gestureFrame(t, testdata.Hand(gesture.Next))
	if r.State != presentation.ActiveAt(2) || r.Command != nil {
		t.Errorf("Next at last slide = %s %q, want no-op", r.State, r.Display())
	}

	r = f.gestureFrame(t, testdata.Hand(gesture.Start))
	if r.State != presentation.ActiveAt(1) || r.Display() != "Show(1)" {
		t.Errorf("Start while active = %s %q, want restart at 1", r.State, r.Display())
	}
}

func TestStep_NavigationBeforeStartIsIgnored(t *testing.T) {
	f := newFixture(t, 9)
	f.authenticate(t)

	for _, g := range []gesture.Label{gesture.Next, gesture.Previous} {
		r := f.gestureFrame(t, testdata.Hand(g))
		if r.State != presentation.Inactive || r.Command != nil {
			t.Errorf("%s while inactive = %s %q, want no-op", g, r.State, r.Display())
		}
	}
	if len(f.surface.Slides) != 0 {
		t.Errorf("slides shown = %v, want none", f.surface.Slides)
	}
}

func TestStep_NoHand(t *testing.T) {
	f := newFixture(t, 9)
	f.authenticate(t)

	r := f.step(t)
	if r.HandPresent || r.Gesture != gesture.None {
		t.Errorf("no hand result = %+v", r)
	}
	if len(r.Spoken) != 0 {
		t.Errorf("spoken = %q, want nothing without a hand", r.Spoken)
	}

	r = f.gestureFrame(t, testdata.Hand(gesture.None))
	if !r.HandPresent || r.Gesture != gesture.None {
		t.Errorf("fist result = %+v, want visible hand with no gesture", r)
	}
	if !reflect.DeepEqual(r.Spoken, []string{"No gesture detected"}) {
		t.Errorf("spoken = %q, want No gesture detected", r.Spoken)
	}
}

func TestStep_DetectorErrorMeansNoHand(t *testing.T) {
	f := newFixture(t, 9)
	f.authenticate(t)
	f.hands.SetError(errors.New("service down"))

	r := f.step(t)
	if r.HandPresent || r.Gesture != gesture.None || r.Command != nil {
		t.Errorf("result = %+v, want no hand and no command", r)
	}
	if r.Emotion != emotion.Happy {
		t.Errorf("emotion = %s, want happy", r.Emotion)
	}
}

func TestStep_SadPausesSlideshow(t *testing.T) {
	f := newFixture(t, 9)
	f.authenticate(t)
	f.emotions.labels = []string{"happy", "happy", "angry", "neutral"}

	f.gestureFrame(t, testdata.Hand(gesture.Start))
	f.gestureFrame(t, testdata.Hand(gesture.Next))

	// The gesture on a sad frame is classified but not applied.
	r := f.gestureFrame(t, testdata.Hand(gesture.Next))
	if r.Emotion != emotion.Sad || !r.Paused {
		t.Fatalf("sad frame = emotion %s paused %v", r.Emotion, r.Paused)
	}
	if r.State != presentation.Inactive || r.Display() != "Clear" {
		t.Errorf("sad frame = %s %q, want Inactive Clear", r.State, r.Display())
	}
	if !reflect.DeepEqual(r.Spoken, []string{"Next slide activated", PausedPhrase}) {
		t.Errorf("spoken = %q", r.Spoken)
	}
	if f.surface.SlideOpen {
		t.Error("slideshow window should be closed")
	}

	// Recovery does not resume on its own; a fresh Start is needed.
	r = f.gestureFrame(t, testdata.Hand(gesture.Next))
	if r.State != presentation.Inactive || r.Command != nil {
		t.Errorf("after recovery Next = %s %q, want no-op", r.State, r.Display())
	}
	if !reflect.DeepEqual(r.Spoken, []string{"Next slide activated", RecoveredPhrase}) {
		t.Errorf("spoken = %q", r.Spoken)
	}

	r = f.gestureFrame(t, testdata.Hand(gesture.Start))
	if r.State != presentation.ActiveAt(1) {
		t.Errorf("Start after pause = %s, want Active(1)", r.State)
	}
}

func TestStep_SadWhileInactive(t *testing.T) {
	f := newFixture(t, 9)
	f.authenticate(t)
	f.emotions.labels = []string{"sad"}

	r := f.gestureFrame(t, testdata.Hand(gesture.Start))
	if r.State != presentation.Inactive {
		t.Errorf("state = %s, want Inactive", r.State)
	}
	if r.Paused {
		t.Error("Paused should only be set when a slideshow was stopped")
	}
	if len(f.surface.Slides) != 0 {
		t.Errorf("slides shown = %v, want none", f.surface.Slides)
	}
}

func TestStep_ForwardsGestures(t *testing.T) {
	f := newFixture(t, 9)
	// No plugins are installed, so each run fails but is still recorded.
	dispatcher := plugin.NewDispatcher(plugin.NewManager(""), plugin.NewExecutor(0), nil, 16)
	f.session.plugins = dispatcher
	f.authenticate(t)
	f.emotions.labels = []string{"happy", "sad", "sad", "happy", "happy"}

	f.gestureFrame(t, testdata.Hand(gesture.Start))
	f.gestureFrame(t, testdata.Hand(gesture.Next)) // pause forwards End
	f.gestureFrame(t, testdata.Hand(gesture.Next)) // sad while inactive
	f.gestureFrame(t, testdata.Hand(gesture.None))
	f.gestureFrame(t, testdata.Hand(gesture.Start))
	dispatcher.Close()

	var got []gesture.Label
	for _, r := range dispatcher.Results() {
		got = append(got, r.Gesture)
	}
	want := []gesture.Label{gesture.Start, gesture.End, gesture.Start}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("forwarded %v, want %v", got, want)
	}
}

func TestStep_Observers(t *testing.T) {
	f := newFixture(t, 9)

	var seen []Result
	f.session.AddObserver(ObserverFunc(func(r Result, frame *gocv.Mat) {
		if frame == nil || frame.Empty() {
			t.Error("observer got an empty frame")
		}
		seen = append(seen, r)
	}))

	f.authenticate(t)
	f.gestureFrame(t, testdata.Hand(gesture.Start))

	if len(seen) != 2 {
		t.Fatalf("observer saw %d frames, want 2", len(seen))
	}
	if seen[0].Phase != PhaseAuth || seen[1].State != presentation.ActiveAt(1) {
		t.Errorf("observed = %+v", seen)
	}
	if seen[1].SessionID != f.session.ID() || seen[1].Frame != 2 {
		t.Errorf("observed frame = %s/%d", seen[1].SessionID, seen[1].Frame)
	}
}

func TestStep_CancelledContext(t *testing.T) {
	f := newFixture(t, 9)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	if _, err := f.session.Step(ctx, &frame); !errors.Is(err, context.Canceled) {
		t.Errorf("Step() error = %v, want context.Canceled", err)
	}
	if f.session.Frames() != 0 {
		t.Errorf("Frames() = %d, want 0", f.session.Frames())
	}
}

func newLoopCamera(t *testing.T) *capture.MockCamera {
	t.Helper()
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { frame.Close() })

	cam := capture.NewMockCamera([]*gocv.Mat{&frame}, true)
	if err := cam.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { cam.Close() })
	return cam
}

func TestRun_QuitKey(t *testing.T) {
	f := newFixture(t, 9)
	f.surface.PressKeys(-1, -1, display.QuitKey)

	if err := f.session.Run(context.Background(), newLoopCamera(t)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if f.session.Frames() != 3 {
		t.Errorf("Frames() = %d, want 3", f.session.Frames())
	}
}

func TestRun_Cancelled(t *testing.T) {
	f := newFixture(t, 9)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := f.session.Run(ctx, newLoopCamera(t)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if f.session.Frames() != 0 {
		t.Errorf("Frames() = %d, want 0", f.session.Frames())
	}
}

func TestRun_CameraFailure(t *testing.T) {
	f := newFixture(t, 9)
	cam := capture.NewMockCamera(nil, false)

	err := f.session.Run(context.Background(), cam)
	if !errors.Is(err, capture.ErrCameraNotOpen) {
		t.Errorf("Run() error = %v, want ErrCameraNotOpen", err)
	}
}
