package detector

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ayusman/podium/internal/pyservice"
	"gocv.io/x/gocv"
)

// HandScript is the MediaPipe hand landmark service script.
const HandScript = "hand_service.py"

// MediaPipeDetector implements Detector using a Python MediaPipe subprocess.
type MediaPipeDetector struct {
	config  Config
	service *pyservice.Service
}

// NewMediaPipeDetector creates a new MediaPipe detector.
// The Python process is started lazily on first detection. Model loading is
// not charged against config.Timeout.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	script := config.Script
	if script == "" {
		script = HandScript
	}

	svc, err := pyservice.New(pyservice.Config{
		Script: script,
		Args: []string{
			"--max-hands", strconv.Itoa(config.MaxHands),
			"--min-confidence", strconv.FormatFloat(config.MinConfidence, 'f', 2, 64),
		},
		CallTimeout: config.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("mediapipe detector: %w", err)
	}

	return &MediaPipeDetector{
		config:  config,
		service: svc,
	}, nil
}

// Detect analyzes a frame and returns detected hand landmarks.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	var response struct {
		Hands []jsonHand `json:"hands"`
	}
	if err := d.service.Call(context.Background(), frame, &response); err != nil {
		return nil, err
	}

	result := make([]HandLandmarks, 0, len(response.Hands))
	for _, h := range response.Hands {
		// A partial skeleton cannot be classified.
		if len(h.Points) < NumLandmarks {
			continue
		}
		result = append(result, h.toHandLandmarks())
	}

	return result, nil
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	return d.service.Close()
}

// jsonHand represents the JSON structure from the Python service.
type jsonHand struct {
	Points     []Point3D `json:"points"`
	Handedness string    `json:"handedness"`
	Score      float64   `json:"score"`
}

func (h jsonHand) toHandLandmarks() HandLandmarks {
	lm := HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}
	copy(lm.Points[:], h.Points)
	return lm
}
