// Package voice speaks short feedback phrases without blocking the frame loop.
package voice

import (
	"errors"
	"fmt"
	"log"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

// Defaults for the speech queue and engine.
const (
	DefaultRate      = 120
	DefaultQueueSize = 8
)

// ErrNoEngine is returned when no speech program is installed.
var ErrNoEngine = errors.New("no speech engine available")

// Engine speaks one phrase and returns when playback is done.
type Engine interface {
	Say(text string) error
}

// ExecEngine speaks through a platform speech program.
type ExecEngine struct {
	Program string
	Args    func(text string) []string
}

// Say runs the speech program for text.
func (e *ExecEngine) Say(text string) error {
	cmd := exec.Command(e.Program, e.Args(text)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", e.Program, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// DetectEngine picks the speech program for the current platform: say on
// macOS, espeak or spd-say on Linux, System.Speech through PowerShell on
// Windows.
func DetectEngine(rate int) (*ExecEngine, error) {
	if rate <= 0 {
		rate = DefaultRate
	}
	r := strconv.Itoa(rate)

	var candidates []*ExecEngine
	switch runtime.GOOS {
	case "darwin":
		candidates = []*ExecEngine{
			{Program: "say", Args: func(text string) []string { return []string{"-r", r, text} }},
		}
	case "windows":
		candidates = []*ExecEngine{
			{Program: "powershell", Args: func(text string) []string {
				quoted := strings.ReplaceAll(text, "'", "''")
				return []string{"-NoProfile", "-Command",
					"Add-Type -AssemblyName System.Speech; " +
						"(New-Object System.Speech.Synthesis.SpeechSynthesizer).Speak('" + quoted + "')"}
			}},
		}
	default:
		candidates = []*ExecEngine{
			{Program: "espeak", Args: func(text string) []string { return []string{"-s", r, text} }},
			{Program: "spd-say", Args: func(text string) []string { return []string{"-w", text} }},
		}
	}

	for _, c := range candidates {
		if path, err := exec.LookPath(c.Program); err == nil {
			c.Program = path
			return c, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", runtime.GOOS, ErrNoEngine)
}

// Voice queues phrases for a single playback goroutine. A nil *Voice is valid
// and means speech is unavailable; its methods only log.
type Voice struct {
	engine Engine
	queue  chan string
	wg     sync.WaitGroup
	once   sync.Once

	mu     sync.Mutex
	last   string
	closed bool
}

// New starts a Voice on engine. queueSize <= 0 selects DefaultQueueSize.
func New(engine Engine, queueSize int) *Voice {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	v := &Voice{
		engine: engine,
		queue:  make(chan string, queueSize),
	}
	v.wg.Add(1)
	go v.run()
	return v
}

// Open detects the platform engine and starts a Voice. It returns a nil
// Voice and the detection error when no engine is installed.
func Open(rate, queueSize int) (*Voice, error) {
	engine, err := DetectEngine(rate)
	if err != nil {
		return nil, err
	}
	log.Printf("Voice engine initialized with %s", engine.Program)
	return New(engine, queueSize), nil
}

// Say queues text and returns immediately. A phrase equal to the newest
// pending one is skipped. When the queue is full the oldest pending phrase is
// dropped so the latest feedback is always heard.
func (v *Voice) Say(text string) {
	if v == nil {
		log.Printf("Voice feedback unavailable: Engine not initialized. Fallback: %s", text)
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	// The newest queued phrase is still pending while the queue is non-empty.
	if len(v.queue) > 0 && text == v.last {
		return
	}

	select {
	case v.queue <- text:
	default:
		select {
		case old := <-v.queue:
			log.Printf("Voice feedback queue full, dropped: %s", old)
		default:
		}
		select {
		case v.queue <- text:
		default:
			log.Printf("Voice feedback queue full, dropped: %s", text)
		}
	}
	v.last = text
}

// Available reports whether phrases will actually be spoken.
func (v *Voice) Available() bool {
	return v != nil
}

// Close stops accepting phrases and waits for queued ones to finish.
func (v *Voice) Close() {
	if v == nil {
		return
	}
	v.once.Do(func() {
		v.mu.Lock()
		v.closed = true
		close(v.queue)
		v.mu.Unlock()
	})
	v.wg.Wait()
}

func (v *Voice) run() {
	defer v.wg.Done()
	for text := range v.queue {
		if err := v.engine.Say(text); err != nil {
			log.Printf("Voice feedback error: %v. Fallback: %s", err, text)
			continue
		}
		log.Printf("Voice feedback: %s", text)
	}
}
