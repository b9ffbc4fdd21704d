package display

import (
	"fmt"
	"image"
	"image/color"

	"github.com/ayusman/podium/internal/detector"
	"github.com/ayusman/podium/internal/emotion"
	"github.com/ayusman/podium/internal/gesture"
	"gocv.io/x/gocv"
)

var (
	green  = color.RGBA{G: 255}
	red    = color.RGBA{R: 255}
	black  = color.RGBA{}
	cyan   = color.RGBA{G: 255, B: 255}
	yellow = color.RGBA{R: 255, G: 255}
	white  = color.RGBA{R: 255, G: 255, B: 255}
)

const (
	lineHeight = 30
	leftMargin = 10
)

// Overlay is everything drawn over one camera frame.
type Overlay struct {
	Presenter     string
	Authenticated bool
	Gesture       gesture.Label
	Emotion       emotion.Label
	Diagnostics   gesture.Diagnostics
	Hand          *detector.HandLandmarks
	Slide         int
	SlideCount    int
}

// Lines returns the text lines of the overlay in drawing order, without
// positions. Used by Draw and by tests.
func (o Overlay) Lines() []string {
	status := "Not Authenticated"
	if o.Authenticated {
		status = "Authenticated"
	}

	lines := []string{fmt.Sprintf("Presenter: %s (%s)", o.Presenter, status)}
	if o.Gesture != "" && o.Gesture != gesture.None {
		lines = append(lines, fmt.Sprintf("Gesture: %s", o.Gesture))
	}
	lines = append(lines, o.emotionLine())
	lines = append(lines, gesture.Instructions...)
	lines = append(lines, o.debugLines()...)
	return lines
}

func (o Overlay) emotionLine() string {
	if o.Emotion == emotion.Sad {
		return "Paused: Sad emotion detected"
	}
	return "Emotion: Happy"
}

func (o Overlay) debugLines() []string {
	return []string{
		fmt.Sprintf("Ext. Fingers: %d/4", o.Diagnostics.ExtendedCount),
		fmt.Sprintf("Thumb Y Diff: %.2f", o.Diagnostics.ThumbOffset),
		fmt.Sprintf("Finger Spread: %.2f", o.Diagnostics.Spread),
	}
}

// Draw renders the overlay onto frame in place.
func Draw(frame *gocv.Mat, o Overlay) {
	if frame == nil || frame.Empty() {
		return
	}

	if o.Hand != nil {
		drawHand(frame, o.Hand)
	}

	statusColor := red
	if o.Authenticated {
		statusColor = green
	}
	status := o.Lines()[0]
	putText(frame, status, 30, 1, statusColor)

	y := 60
	if o.Gesture != "" && o.Gesture != gesture.None {
		putText(frame, fmt.Sprintf("Gesture: %s", o.Gesture), y, 1, green)
		y += lineHeight
	}

	// The emotion line has a fixed slot and may overlap the first instruction.
	emotionColor := green
	if o.Emotion == emotion.Sad {
		emotionColor = red
	}
	putText(frame, o.emotionLine(), 90, 1, emotionColor)

	for i, line := range gesture.Instructions {
		putText(frame, line, y+i*lineHeight, 0.7, black)
	}
	for i, line := range o.debugLines() {
		putText(frame, line, y+(len(gesture.Instructions)+i)*lineHeight, 0.7, cyan)
	}

	if o.SlideCount > 0 {
		label := "Slideshow: off"
		if o.Slide > 0 {
			label = fmt.Sprintf("Slide %d/%d", o.Slide, o.SlideCount)
		}
		putText(frame, label, frame.Rows()-15, 0.7, yellow)
	}
}

func putText(frame *gocv.Mat, text string, y int, scale float64, c color.RGBA) {
	gocv.PutText(frame, text, image.Pt(leftMargin, y), gocv.FontHersheySimplex, scale, c, 2)
}

// drawHand draws the landmark skeleton scaled to the frame size.
func drawHand(frame *gocv.Mat, hand *detector.HandLandmarks) {
	w, h := float64(frame.Cols()), float64(frame.Rows())
	pt := func(i int) image.Point {
		p := hand.Points[i]
		return image.Pt(int(p.X*w), int(p.Y*h))
	}

	for _, c := range detector.HandConnections {
		gocv.Line(frame, pt(c[0]), pt(c[1]), white, 2)
	}
	for i := 0; i < detector.NumLandmarks; i++ {
		gocv.Circle(frame, pt(i), 4, red, -1)
	}
}
