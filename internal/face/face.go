// Package face verifies that the person in front of the camera is the
// registered presenter.
package face

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ayusman/podium/internal/pyservice"
	"gocv.io/x/gocv"
)

// ErrReferenceMissing is returned when the presenter reference image is absent.
var ErrReferenceMissing = errors.New("reference image not found")

// Verifier compares a live frame with the presenter's reference image.
type Verifier interface {
	Verify(ctx context.Context, frame *gocv.Mat) (bool, error)
	Close() error
}

// CheckReference reports ErrReferenceMissing when path is not a readable file.
func CheckReference(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, ErrReferenceMissing)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory: %w", path, ErrReferenceMissing)
	}
	return nil
}

// Script is the DeepFace verification service script.
const Script = "face_service.py"

// Verification model settings passed to the service.
const (
	DefaultModel  = "VGG-Face"
	DefaultMetric = "cosine"
)

// DeepFaceVerifier verifies faces through a Python DeepFace service started
// with the reference image path.
type DeepFaceVerifier struct {
	reference string
	service   *pyservice.Service
}

// NewDeepFaceVerifier checks the reference image and locates the service
// script. An empty script selects the default name.
func NewDeepFaceVerifier(script, reference string) (*DeepFaceVerifier, error) {
	if err := CheckReference(reference); err != nil {
		return nil, err
	}
	if script == "" {
		script = Script
	}

	svc, err := pyservice.New(pyservice.Config{
		Script: script,
		Args:   []string{"--reference", reference, "--model", DefaultModel, "--metric", DefaultMetric},
	})
	if err != nil {
		return nil, fmt.Errorf("face verifier: %w", err)
	}

	return &DeepFaceVerifier{reference: reference, service: svc}, nil
}

// Verify reports whether the frame shows the reference presenter.
func (v *DeepFaceVerifier) Verify(ctx context.Context, frame *gocv.Mat) (bool, error) {
	var response struct {
		Verified bool    `json:"verified"`
		Distance float64 `json:"distance"`
	}
	if err := v.service.Call(ctx, frame, &response); err != nil {
		return false, err
	}
	return response.Verified, nil
}

// Close shuts down the Python process.
func (v *DeepFaceVerifier) Close() error {
	return v.service.Close()
}
