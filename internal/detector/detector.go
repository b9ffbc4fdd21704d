package detector

import (
	"time"

	"gocv.io/x/gocv"
)

// Detector defines the interface for hand detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 1).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// Script overrides the hand service script location.
	Script string

	// Timeout bounds a single detection once the service is loaded. Zero
	// means no limit.
	Timeout time.Duration
}

// DefaultConfig returns a Config tuned for a single presenter hand.
func DefaultConfig() Config {
	return Config{
		MaxHands:      1,
		MinConfidence: 0.3,
	}
}
