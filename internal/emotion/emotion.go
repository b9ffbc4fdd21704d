// Package emotion reads the presenter's mood from a frame and collapses it to
// the two states the slideshow reacts to.
package emotion

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ayusman/podium/internal/pyservice"
	"gocv.io/x/gocv"
)

// Label is the collapsed emotion.
type Label string

const (
	// Happy covers every emotion that lets the slideshow continue.
	Happy Label = "happy"
	// Sad covers the negative emotions that pause the slideshow.
	Sad Label = "sad"
)

// negative lists the raw labels that collapse to Sad.
var negative = map[string]bool{
	"sad":   true,
	"angry": true,
	"fear":  true,
}

// Collapse maps a raw classifier label (e.g. "neutral", "Angry") to Happy or Sad.
// Unknown labels are Happy.
func Collapse(raw string) Label {
	if negative[strings.ToLower(strings.TrimSpace(raw))] {
		return Sad
	}
	return Happy
}

// Classifier returns the dominant raw emotion label for a frame.
type Classifier interface {
	Classify(ctx context.Context, frame *gocv.Mat) (string, error)
	Close() error
}

// Detect classifies frame and collapses the result. Any classifier failure
// yields Happy so a broken model never pauses the slideshow.
func Detect(ctx context.Context, c Classifier, frame *gocv.Mat) Label {
	if c == nil {
		return Happy
	}

	raw, err := c.Classify(ctx, frame)
	if err != nil {
		log.Printf("Emotion detection error: %v", err)
		return Happy
	}

	return Collapse(raw)
}

// Script is the DeepFace emotion service script.
const Script = "emotion_service.py"

// DeepFaceClassifier classifies emotions through a Python DeepFace service.
type DeepFaceClassifier struct {
	service *pyservice.Service
}

// NewDeepFaceClassifier locates the emotion service script. An empty script
// selects the default name.
func NewDeepFaceClassifier(script string) (*DeepFaceClassifier, error) {
	if script == "" {
		script = Script
	}

	svc, err := pyservice.New(pyservice.Config{Script: script})
	if err != nil {
		return nil, fmt.Errorf("emotion classifier: %w", err)
	}
	return &DeepFaceClassifier{service: svc}, nil
}

// Classify returns the dominant emotion reported by the service.
func (c *DeepFaceClassifier) Classify(ctx context.Context, frame *gocv.Mat) (string, error) {
	var response struct {
		DominantEmotion string `json:"dominant_emotion"`
	}
	if err := c.service.Call(ctx, frame, &response); err != nil {
		return "", err
	}
	return response.DominantEmotion, nil
}

// Close shuts down the Python process.
func (c *DeepFaceClassifier) Close() error {
	return c.service.Close()
}

// Static is a Classifier that always reports the same label, used when no
// emotion model is installed and in tests.
type Static struct {
	Raw string
	Err error
}

// Classify returns the configured label or error.
func (s *Static) Classify(ctx context.Context, frame *gocv.Mat) (string, error) {
	return s.Raw, s.Err
}

// Close is a no-op.
func (s *Static) Close() error {
	return nil
}
