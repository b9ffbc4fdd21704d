// Package testdata builds synthetic slide decks, reference photos, camera
// frames and gesture scripts for tests.
package testdata

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/ayusman/podium/internal/detector"
	"github.com/ayusman/podium/internal/gesture"
	"gocv.io/x/gocv"
)

// Frame dimensions used by the synthetic camera.
const (
	FrameWidth  = 640
	FrameHeight = 480
)

// WriteDeck writes count solid-color slides named 1.jpg..count.jpg into dir.
func WriteDeck(dir string, count int) error {
	for i := 1; i <= count; i++ {
		img := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
		img.SetTo(gocv.NewScalar(float64(i*20%255), 80, 160, 0))
		ok := gocv.IMWrite(filepath.Join(dir, strconv.Itoa(i)+".jpg"), img)
		img.Close()
		if !ok {
			return fmt.Errorf("write slide %d", i)
		}
	}
	return nil
}

// WriteReference writes a placeholder reference photo to path.
func WriteReference(path string) error {
	img := gocv.NewMatWithSize(64, 64, gocv.MatTypeCV8UC3)
	defer img.Close()
	if !gocv.IMWrite(path, img) {
		return fmt.Errorf("write reference %s", path)
	}
	return nil
}

// Frames returns n blank camera frames. The caller closes them.
func Frames(n int) []*gocv.Mat {
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		m := gocv.NewMatWithSize(FrameHeight, FrameWidth, gocv.MatTypeCV8UC3)
		frames[i] = &m
	}
	return frames
}

// CloseFrames releases frames returned by Frames.
func CloseFrames(frames []*gocv.Mat) {
	for _, f := range frames {
		f.Close()
	}
}

// Hand returns a preset hand that classifies as g. None yields a closed fist.
func Hand(g gesture.Label) detector.HandLandmarks {
	switch g {
	case gesture.Start:
		return detector.PeaceLandmarks()
	case gesture.Previous:
		return detector.ThumbsUpLandmarks()
	case gesture.Next:
		return detector.ThumbsDownLandmarks()
	case gesture.End:
		return detector.OpenPalmLandmarks()
	default:
		return detector.FistLandmarks()
	}
}

// NoHand marks a frame without a visible hand in Script.
const NoHand gesture.Label = ""

// Script converts gestures into per-frame detector results for
// MockDetector.Queue. NoHand entries produce frames without a hand.
func Script(gestures ...gesture.Label) [][]detector.HandLandmarks {
	frames := make([][]detector.HandLandmarks, len(gestures))
	for i, g := range gestures {
		if g == NoHand {
			continue
		}
		frames[i] = []detector.HandLandmarks{Hand(g)}
	}
	return frames
}
