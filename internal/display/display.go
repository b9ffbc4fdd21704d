// Package display owns the on-screen windows: the annotated camera view and
// the slideshow.
package display

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Window titles.
const (
	MainWindow  = "Presentation Assistant"
	SlideWindow = "Slideshow"
)

// QuitKey stops the session when pressed in any window.
const QuitKey = 'q'

// Surface is where frames and slides are shown.
type Surface interface {
	// ShowFrame displays the annotated camera frame.
	ShowFrame(frame *gocv.Mat)
	// ShowSlide opens the slideshow window if needed and displays slide n.
	ShowSlide(n int, slide *gocv.Mat)
	// ClearSlide closes the slideshow window. Closing a closed window is a no-op.
	ClearSlide()
	// PollKey pumps window events and returns the pressed key, or -1.
	PollKey() int
	// Close destroys all windows.
	Close() error
}

// Windows is a Surface backed by OpenCV HighGUI windows.
type Windows struct {
	main  *gocv.Window
	slide *gocv.Window
}

// NewWindows opens the main window. The slideshow window is created on the
// first ShowSlide.
func NewWindows() *Windows {
	return &Windows{main: gocv.NewWindow(MainWindow)}
}

// ShowFrame displays frame in the main window.
func (w *Windows) ShowFrame(frame *gocv.Mat) {
	if frame == nil || frame.Empty() {
		return
	}
	w.main.IMShow(*frame)
}

// ShowSlide displays slide n in the slideshow window.
func (w *Windows) ShowSlide(n int, slide *gocv.Mat) {
	if slide == nil || slide.Empty() {
		return
	}
	if w.slide == nil {
		w.slide = gocv.NewWindow(SlideWindow)
	}
	w.slide.SetWindowTitle(fmt.Sprintf("%s %d", SlideWindow, n))
	w.slide.IMShow(*slide)
}

// ClearSlide destroys the slideshow window.
func (w *Windows) ClearSlide() {
	if w.slide == nil {
		return
	}
	w.slide.Close()
	w.slide = nil
}

// PollKey waits 1ms for a key press.
func (w *Windows) PollKey() int {
	key := w.main.WaitKey(1)
	if key < 0 {
		return -1
	}
	return key & 0xFF
}

// Close destroys both windows.
func (w *Windows) Close() error {
	w.ClearSlide()
	if w.main != nil {
		err := w.main.Close()
		w.main = nil
		return err
	}
	return nil
}

// Recorder is a headless Surface that records what would have been shown.
type Recorder struct {
	mu         sync.Mutex
	Frames     int
	Slides     []int
	Clears     int
	SlideOpen  bool
	keys       []int
	closed     bool
	LastFrame  gocv.Mat
	keepFrames bool
}

// NewRecorder creates a Recorder. When keepFrames is set, a copy of the last
// shown frame is retained in LastFrame.
func NewRecorder(keepFrames bool) *Recorder {
	return &Recorder{keepFrames: keepFrames, LastFrame: gocv.NewMat()}
}

// PressKeys queues keys returned by successive PollKey calls.
func (r *Recorder) PressKeys(keys ...int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, keys...)
}

// ShowFrame counts the frame.
func (r *Recorder) ShowFrame(frame *gocv.Mat) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Frames++
	if r.keepFrames && frame != nil {
		frame.CopyTo(&r.LastFrame)
	}
}

// ShowSlide records the slide number.
func (r *Recorder) ShowSlide(n int, slide *gocv.Mat) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Slides = append(r.Slides, n)
	r.SlideOpen = true
}

// ClearSlide records a clear.
func (r *Recorder) ClearSlide() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Clears++
	r.SlideOpen = false
}

// PollKey returns the next queued key, or -1.
func (r *Recorder) PollKey() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.keys) == 0 {
		return -1
	}
	k := r.keys[0]
	r.keys = r.keys[1:]
	return k
}

// Close releases the retained frame.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.LastFrame.Close()
		r.closed = true
	}
	return nil
}

// Closed reports whether Close was called.
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
