// Package session drives the per-frame presentation loop: presenter
// authentication, gesture and emotion reads, slideshow state updates and
// overlay rendering.
package session

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ayusman/podium/internal/capture"
	"github.com/ayusman/podium/internal/detector"
	"github.com/ayusman/podium/internal/display"
	"github.com/ayusman/podium/internal/emotion"
	"github.com/ayusman/podium/internal/face"
	"github.com/ayusman/podium/internal/gesture"
	"github.com/ayusman/podium/internal/plugin"
	"github.com/ayusman/podium/internal/presentation"
	"github.com/ayusman/podium/internal/voice"
	"github.com/google/uuid"
	"gocv.io/x/gocv"
)

// Spoken feedback for emotion events.
const (
	PausedPhrase    = "Presentation paused"
	RecoveredPhrase = "Show a peace sign to resume"
)

// Phase is the stage a frame was processed in.
type Phase string

const (
	PhaseAuth    Phase = "auth"
	PhaseGesture Phase = "gesture"
)

// Observer receives every processed frame after it has been annotated.
// Observers must not retain frame past the call.
type Observer interface {
	Observe(r Result, frame *gocv.Mat)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(r Result, frame *gocv.Mat)

// Observe calls f.
func (f ObserverFunc) Observe(r Result, frame *gocv.Mat) { f(r, frame) }

// Options wires a session to its collaborators. Gate, Hands, Surface and
// Deck are required; the rest may be nil.
type Options struct {
	Gate      *face.Gate
	Hands     detector.Detector
	Emotions  emotion.Classifier
	Voice     *voice.Voice
	Surface   display.Surface
	Deck      *presentation.Deck
	Plugins   *plugin.Dispatcher
	Observers []Observer
	// Logger defaults to a stderr logger prefixed with the session ID.
	Logger *log.Logger
}

// Session holds the state of one presentation run.
type Session struct {
	id        string
	log       *log.Logger
	gate      *face.Gate
	hands     detector.Detector
	emotions  emotion.Classifier
	voice     *voice.Voice
	surface   display.Surface
	deck      *presentation.Deck
	plugins   *plugin.Dispatcher
	observers []Observer

	state       presentation.State
	frames      int
	pausedSad   bool
	lastGesture gesture.Label
}

// New creates a session in the inactive state.
func New(opts Options) (*Session, error) {
	if opts.Gate == nil {
		return nil, fmt.Errorf("session: gate is required")
	}
	if opts.Hands == nil {
		return nil, fmt.Errorf("session: hand detector is required")
	}
	if opts.Surface == nil {
		return nil, fmt.Errorf("session: display surface is required")
	}
	if opts.Deck == nil || opts.Deck.Count() == 0 {
		return nil, fmt.Errorf("session: %w", presentation.ErrDeckMissing)
	}

	id := uuid.NewString()
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, fmt.Sprintf("[podium %s] ", id[:8]), log.LstdFlags)
	}

	return &Session{
		id:          id,
		log:         logger,
		gate:        opts.Gate,
		hands:       opts.Hands,
		emotions:    opts.Emotions,
		voice:       opts.Voice,
		surface:     opts.Surface,
		deck:        opts.Deck,
		plugins:     opts.Plugins,
		observers:   opts.Observers,
		lastGesture: gesture.None,
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current slideshow state.
func (s *Session) State() presentation.State { return s.state }

// Frames returns the number of frames processed.
func (s *Session) Frames() int { return s.frames }

// AddObserver registers o for subsequent frames.
func (s *Session) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
}

// Step processes one camera frame and annotates it in place. Collaborator
// failures are logged and replaced with safe defaults; the only error
// returned is a cancelled context.
func (s *Session) Step(ctx context.Context, frame *gocv.Mat) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	s.frames++
	r := Result{
		SessionID: s.id,
		Frame:     s.frames,
		Time:      time.Now(),
		Gesture:   gesture.None,
		Emotion:   emotion.Happy,
		Previous:  s.state,
	}
	overlay := display.Overlay{
		Presenter:  s.gate.Presenter(),
		Emotion:    emotion.Happy,
		SlideCount: s.deck.Count(),
	}

	if !s.gate.Open() {
		r.Phase = PhaseAuth
		s.gate.Attempt(ctx, frame)
		r.Authenticated = s.gate.Open()
		r.Forced = s.gate.Forced()
		r.AuthAttempts = s.gate.Attempts()
	} else {
		r.Phase = PhaseGesture
		r.Authenticated = true
		r.Forced = s.gate.Forced()
		r.AuthAttempts = s.gate.Attempts()
		s.present(ctx, frame, &r, &overlay)
	}

	r.State = s.state
	overlay.Authenticated = r.Authenticated
	overlay.Slide = s.state.Slide
	display.Draw(frame, overlay)
	s.surface.ShowFrame(frame)

	for _, o := range s.observers {
		o.Observe(r, frame)
	}

	return r, nil
}

// present runs the gesture phase of a frame.
func (s *Session) present(ctx context.Context, frame *gocv.Mat, r *Result, overlay *display.Overlay) {
	hands, err := s.hands.Detect(frame)
	if err != nil {
		s.log.Printf("Hand detection error: %v", err)
	}
	if hand, ok := detector.First(hands); ok {
		r.HandPresent = true
		r.Gesture, r.Diagnostics = gesture.Classify(hand)
		overlay.Hand = &hand
		overlay.Gesture = r.Gesture
		overlay.Diagnostics = r.Diagnostics
		s.say(r, r.Gesture.Announcement())
		if r.Gesture != gesture.None {
			s.lastGesture = r.Gesture
		}
	}

	r.Emotion = emotion.Detect(ctx, s.emotions, frame)
	overlay.Emotion = r.Emotion

	out := presentation.Step(s.state, r.Gesture, r.Emotion, s.deck.Count())
	r.Command = out.Command
	r.Paused = out.Paused
	if out.State != s.state {
		s.log.Printf("Slideshow %s -> %s", s.state, out.State)
	}
	s.state = out.State

	switch {
	case out.Paused:
		s.pausedSad = true
		s.say(r, PausedPhrase)
		s.plugins.Dispatch(gesture.End, 0)
	case r.Emotion == emotion.Happy && s.pausedSad:
		s.pausedSad = false
		s.say(r, RecoveredPhrase)
	}

	if out.Command != nil {
		s.apply(r, *out.Command)
		// A sad frame suppresses the gesture, so nothing is forwarded.
		if r.Emotion != emotion.Sad && r.Gesture != gesture.None {
			s.plugins.Dispatch(r.Gesture, s.state.Slide)
		}
	}
}

// apply performs a display command on the slideshow surface.
func (s *Session) apply(r *Result, cmd presentation.Command) {
	switch cmd.Kind {
	case presentation.Show:
		s.surface.ShowSlide(cmd.Slide, s.deck.Slide(cmd.Slide))
		s.say(r, fmt.Sprintf("Showing slide %d", cmd.Slide))
	case presentation.Clear:
		s.surface.ClearSlide()
	}
}

func (s *Session) say(r *Result, text string) {
	if text == "" {
		return
	}
	r.Spoken = append(r.Spoken, text)
	s.voice.Say(text)
}

// LastGesture returns the most recent recognized gesture, or None.
func (s *Session) LastGesture() gesture.Label { return s.lastGesture }

// Run reads frames from camera until the quit key is pressed, the camera
// fails or ctx is cancelled. It returns nil on a quit key or cancellation.
func (s *Session) Run(ctx context.Context, camera capture.Camera) error {
	s.log.Printf("Session %s started (%d slides)", s.id, s.deck.Count())
	defer s.log.Printf("Session %s stopped after %d frames", s.id, s.frames)

	for {
		if ctx.Err() != nil {
			return nil
		}

		frame, err := camera.ReadFrame()
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}

		_, err = s.Step(ctx, frame)
		frame.Close()
		if err != nil {
			return nil
		}

		if key := s.surface.PollKey(); key == display.QuitKey {
			s.log.Println("Quit key pressed")
			return nil
		}
	}
}
