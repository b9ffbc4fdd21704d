// Package tray provides a system tray menu showing the presentation status.
package tray

import (
	"fmt"
	"sync"

	"github.com/ayusman/podium/internal/gesture"
	"github.com/ayusman/podium/internal/presentation"
	"github.com/ayusman/podium/internal/session"
	"github.com/getlantern/systray"
	"gocv.io/x/gocv"
)

// Tray represents the system tray application. It implements
// session.Observer so the menu follows the running session.
type Tray struct {
	slideCount   int
	onStatusPage func()
	onQuit       func()
	mu           sync.RWMutex

	status      string
	slide       string
	lastGesture string

	// Menu items stored for later updates
	menuStatus      *systray.MenuItem
	menuSlide       *systray.MenuItem
	menuLastGesture *systray.MenuItem
}

// New creates a new Tray for a deck of slideCount slides.
func New(slideCount int) *Tray {
	return &Tray{
		slideCount:  slideCount,
		status:      StatusTitle(session.Result{}),
		slide:       SlideTitle(presentation.Inactive, slideCount),
		lastGesture: GestureTitle(gesture.None),
	}
}

// OnStatusPage sets the callback for the status page menu item. The item is
// only shown when a callback is set before Run.
func (t *Tray) OnStatusPage(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onStatusPage = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit removes the tray icon and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Podium")
	systray.SetTooltip("Podium presentation controller")

	t.mu.Lock()
	t.menuStatus = systray.AddMenuItem(t.status, "Presenter authentication")
	t.menuStatus.Disable()
	t.menuSlide = systray.AddMenuItem(t.slide, "Current slide")
	t.menuSlide.Disable()
	t.menuLastGesture = systray.AddMenuItem(t.lastGesture, "Last recognized gesture")
	t.menuLastGesture.Disable()
	systray.AddSeparator()

	var statusClicks chan struct{}
	if t.onStatusPage != nil {
		statusClicks = systray.AddMenuItem("Open Status Page...", "Open the status page in a browser").ClickedCh
		systray.AddSeparator()
	}
	t.mu.Unlock()

	menuQuit := systray.AddMenuItem("Quit", "Stop the presentation")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-statusClicks:
				t.handleStatusPage()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

func (t *Tray) handleStatusPage() {
	t.mu.RLock()
	callback := t.onStatusPage
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback()
	}

	systray.Quit()
}

// Observe updates the menu from a processed frame.
func (t *Tray) Observe(r session.Result, frame *gocv.Mat) {
	t.update(r)
}

// update applies r to the menu titles, touching only items that changed.
func (t *Tray) update(r session.Result) {
	status := StatusTitle(r)
	slide := SlideTitle(r.State, t.slideCount)

	t.mu.Lock()
	defer t.mu.Unlock()

	if status != t.status {
		t.status = status
		if t.menuStatus != nil {
			t.menuStatus.SetTitle(status)
		}
	}
	if slide != t.slide {
		t.slide = slide
		if t.menuSlide != nil {
			t.menuSlide.SetTitle(slide)
		}
	}
	if r.Gesture != "" && r.Gesture != gesture.None {
		last := GestureTitle(r.Gesture)
		if last != t.lastGesture {
			t.lastGesture = last
			if t.menuLastGesture != nil {
				t.menuLastGesture.SetTitle(last)
			}
		}
	}
}

// Titles returns the current status, slide and last gesture menu titles.
func (t *Tray) Titles() (status, slide, lastGesture string) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status, t.slide, t.lastGesture
}

// StatusTitle describes the authentication state of r.
func StatusTitle(r session.Result) string {
	switch {
	case r.Forced:
		return "Presenter: unverified"
	case r.Authenticated:
		return "Presenter: verified"
	case r.AuthAttempts > 0:
		return fmt.Sprintf("Authenticating (attempt %d)", r.AuthAttempts)
	default:
		return "Authenticating..."
	}
}

// SlideTitle describes the slideshow position.
func SlideTitle(s presentation.State, slideCount int) string {
	if !s.Active {
		return "Slideshow: off"
	}
	return fmt.Sprintf("Slide %d/%d", s.Slide, slideCount)
}

// GestureTitle describes the last recognized gesture.
func GestureTitle(g gesture.Label) string {
	if g == "" || g == gesture.None {
		return "Last: none"
	}
	return fmt.Sprintf("Last: %s (%s)", g, g.Pose())
}
