// Package app wires the podium presentation controller together: it loads the
// deck, starts the recognition services, opens the camera and drives the
// session until the presenter quits.
package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"runtime"
	"sync"

	"github.com/ayusman/podium/internal/capture"
	"github.com/ayusman/podium/internal/config"
	"github.com/ayusman/podium/internal/detector"
	"github.com/ayusman/podium/internal/display"
	"github.com/ayusman/podium/internal/emotion"
	"github.com/ayusman/podium/internal/face"
	"github.com/ayusman/podium/internal/plugin"
	"github.com/ayusman/podium/internal/presentation"
	"github.com/ayusman/podium/internal/server"
	"github.com/ayusman/podium/internal/session"
	"github.com/ayusman/podium/internal/tray"
	"github.com/ayusman/podium/internal/voice"
)

// Deps holds the constructors App uses for hardware and model-backed
// collaborators. Tests replace them with fakes.
type Deps struct {
	NewCamera   func(deviceID int) capture.Camera
	NewHands    func(cfg detector.Config) (detector.Detector, error)
	NewVerifier func(script, reference string) (face.Verifier, error)
	NewEmotions func(script string) (emotion.Classifier, error)
	NewSurface  func() display.Surface
	OpenVoice   func(rate, queueSize int) (*voice.Voice, error)
	// Progress receives the slide loading bar. Nil discards it.
	Progress io.Writer
}

// DefaultDeps returns the production constructors.
func DefaultDeps() Deps {
	return Deps{
		NewCamera: capture.NewCamera,
		NewHands: func(cfg detector.Config) (detector.Detector, error) {
			d, err := detector.NewMediaPipeDetector(cfg)
			if err != nil {
				return nil, err
			}
			return d, nil
		},
		NewVerifier: func(script, reference string) (face.Verifier, error) {
			v, err := face.NewDeepFaceVerifier(script, reference)
			if err != nil {
				return nil, err
			}
			return v, nil
		},
		NewEmotions: func(script string) (emotion.Classifier, error) {
			c, err := emotion.NewDeepFaceClassifier(script)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
		NewSurface: func() display.Surface { return display.NewWindows() },
		OpenVoice:  voice.Open,
		Progress:   os.Stderr,
	}
}

// App owns every resource of one presentation run.
type App struct {
	cfg config.Config

	deck     *presentation.Deck
	voice    *voice.Voice
	hands    detector.Detector
	verifier face.Verifier
	emotions emotion.Classifier
	manager  *plugin.Manager
	plugins  *plugin.Dispatcher
	camera   capture.Camera
	surface  display.Surface

	session *session.Session
	server  *server.Server
	tray    *tray.Tray

	closeOnce sync.Once
}

// New acquires resources in startup order. Missing slides, a missing
// reference image or no usable camera are fatal; everything acquired before
// the failure is released. Unavailable speech and recognition models degrade
// with a log line instead.
func New(cfg config.Config, deps Deps) (*App, error) {
	a := &App{cfg: cfg}

	deck, err := presentation.LoadDeck(cfg.ImagesDir, cfg.Slides, deps.Progress)
	if err != nil {
		return nil, fmt.Errorf("load slides: %w", err)
	}
	a.deck = deck

	if err := face.CheckReference(cfg.Reference); err != nil {
		a.Close()
		return nil, fmt.Errorf("presenter reference: %w", err)
	}

	a.openVoice(deps)
	a.openModels(deps)
	a.openPlugins()

	camera, id, err := capture.OpenFirst(cfg.Cameras, deps.NewCamera)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.camera = camera
	camera.SetFPS(cfg.FPS)
	log.Printf("Using camera %d", id)

	a.surface = deps.NewSurface()

	var observers []session.Observer
	if cfg.StatusAddr != "" {
		a.server = server.New(server.Config{
			Bindings: plugin.DefaultBindings(),
			Plugins:  a.manager,
			Slides:   deck,
		})
		observers = append(observers, a.server.Hub())
	}
	if cfg.Tray {
		a.tray = tray.New(deck.Count())
		observers = append(observers, a.tray)
	}

	s, err := session.New(session.Options{
		Gate:      face.NewGate(a.verifier, cfg.Presenter, cfg.AuthAttempts),
		Hands:     a.hands,
		Emotions:  a.emotions,
		Voice:     a.voice,
		Surface:   a.surface,
		Deck:      deck,
		Plugins:   a.plugins,
		Observers: observers,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.session = s

	return a, nil
}

func (a *App) openVoice(deps Deps) {
	if a.cfg.Mute {
		log.Println("Voice feedback muted")
		return
	}
	v, err := deps.OpenVoice(a.cfg.VoiceRate, a.cfg.VoiceQueue)
	if err != nil {
		log.Printf("Voice feedback unavailable (%v), continuing silently", err)
		return
	}
	a.voice = v
}

// openModels starts the hand, face and emotion services. A hand detector
// that cannot start is replaced by the mock so the windows still come up.
func (a *App) openModels(deps Deps) {
	hc := detector.DefaultConfig()
	hc.Script = a.cfg.HandScript
	hc.Timeout = a.cfg.HandTimeout
	if hands, err := deps.NewHands(hc); err == nil {
		a.hands = hands
		log.Println("Using MediaPipe hand detection")
	} else {
		log.Printf("MediaPipe not available (%v), using mock detector", err)
		a.hands = detector.NewMockDetector()
	}

	if v, err := deps.NewVerifier(a.cfg.FaceScript, a.cfg.Reference); err == nil {
		a.verifier = v
	} else {
		log.Printf("Face verification not available (%v), authentication will time out open", err)
	}

	if c, err := deps.NewEmotions(a.cfg.EmotionScript); err == nil {
		a.emotions = c
	} else {
		log.Printf("Emotion detection not available (%v), assuming happy", err)
	}
}

// openPlugins enables gesture key forwarding when the keyboard plugin is
// installed.
func (a *App) openPlugins() {
	manager := plugin.NewManager(a.cfg.PluginDir)
	if err := manager.Discover(); err != nil {
		log.Printf("Failed to discover plugins: %v", err)
		return
	}
	a.manager = manager
	for _, p := range manager.List() {
		log.Printf("Plugin %s %s: %v", p.Manifest.Name, p.Manifest.Version, p.Manifest.Actions)
	}
	if _, err := manager.Get(plugin.KeyboardPlugin); err != nil {
		log.Printf("Keyboard plugin not found in %q, gestures will not be forwarded", a.cfg.PluginDir)
		return
	}
	a.plugins = plugin.NewDispatcher(manager, plugin.NewExecutor(a.cfg.PluginTimeout), nil, 0)
	log.Printf("Forwarding gestures through the %s plugin", plugin.KeyboardPlugin)
}

// Session returns the running session.
func (a *App) Session() *session.Session {
	return a.session
}

// Server returns the status server, or nil when it is disabled.
func (a *App) Server() *server.Server {
	return a.server
}

// Run drives the session until the quit key, a tray quit, a camera failure or
// ctx cancellation. The status server and tray stop with it.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if a.server != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.server.ListenAndServe(ctx, a.cfg.StatusAddr); err != nil {
				log.Printf("Status server error: %v", err)
			}
		}()
	}

	if a.startTray(cancel) {
		defer a.tray.Quit()
	}

	err := a.session.Run(ctx, a.camera)
	cancel()
	wg.Wait()
	return err
}

// startTray runs the tray menu in the background. HighGUI owns the main
// thread on macOS, so the tray is skipped there.
func (a *App) startTray(cancel context.CancelFunc) bool {
	if a.tray == nil {
		return false
	}
	if runtime.GOOS == "darwin" {
		log.Println("System tray is not available alongside the camera windows on macOS")
		return false
	}

	a.tray.OnQuit(cancel)
	if a.server != nil {
		url := "http://" + a.cfg.StatusAddr
		a.tray.OnStatusPage(func() {
			if err := openBrowser(url); err != nil {
				log.Printf("Failed to open %s: %v", url, err)
			}
		})
	}
	go a.tray.Run()
	return true
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// Close releases every resource in reverse startup order. It is safe to call
// more than once and on a partially built App.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		if a.surface != nil {
			if err := a.surface.Close(); err != nil {
				log.Printf("Error closing windows: %v", err)
			}
		}
		if a.camera != nil {
			if err := a.camera.Close(); err != nil {
				log.Printf("Error closing camera: %v", err)
			}
		}
		a.plugins.Close()
		if a.emotions != nil {
			a.emotions.Close()
		}
		if a.verifier != nil {
			a.verifier.Close()
		}
		if a.hands != nil {
			if err := a.hands.Close(); err != nil {
				log.Printf("Error closing detector: %v", err)
			}
		}
		a.voice.Close()
		if a.deck != nil {
			a.deck.Close()
		}
		log.Println("Podium stopped")
	})
}
