// Package pyservice runs a long-lived Python model service as a subprocess and
// exchanges frames with it.
//
// Wire protocol, one request at a time:
//
//	request:  4-byte big-endian length, then a JPEG-encoded frame
//	response: a single JSON object terminated by '\n'
//
// Before serving, the script writes one {"ready": true} line once its models
// are loaded. A response carrying a non-empty "error" field is reported as
// ErrService.
package pyservice

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

const (
	// DefaultIdleTimeout is how long an unused service process stays alive.
	DefaultIdleTimeout = 30 * time.Second
	// DefaultStartTimeout bounds interpreter start and model loading.
	DefaultStartTimeout = 2 * time.Minute
)

var (
	// ErrScriptNotFound is returned when the service script cannot be located.
	ErrScriptNotFound = errors.New("service script not found")
	// ErrService wraps an error reported by the Python side.
	ErrService = errors.New("service error")
	// ErrNotReady is returned when the script exits or stalls before its
	// ready line.
	ErrNotReady = errors.New("service not ready")
)

// Config describes how to launch a service.
type Config struct {
	// Script is the script file name (looked up with FindScript) or a path.
	Script string
	// Args are passed to the script after its path.
	Args []string
	// Interpreter overrides the Python interpreter. When empty a virtual
	// environment interpreter is preferred, then python3.
	Interpreter string
	// IdleTimeout shuts the process down after this long without a call.
	// Zero means DefaultIdleTimeout; negative disables the idle shutdown.
	IdleTimeout time.Duration
	// StartTimeout bounds the wait for the ready line. Zero means
	// DefaultStartTimeout.
	StartTimeout time.Duration
	// CallTimeout bounds a single exchange once the process is ready. Zero
	// means no limit beyond the caller's context.
	CallTimeout time.Duration
}

// Service is a lazily started subprocess speaking the frame protocol.
type Service struct {
	name        string
	script      string
	args        []string
	interpreter string
	idle        time.Duration
	startLimit  time.Duration
	callLimit   time.Duration

	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	stdoutRC  io.ReadCloser
	mu        sync.Mutex
	started   bool
	idleTimer *time.Timer
}

// New resolves the service script. The process is started on first call.
func New(cfg Config) (*Service, error) {
	script := cfg.Script
	if _, err := os.Stat(script); err != nil {
		script = FindScript(cfg.Script)
	}
	if script == "" {
		return nil, fmt.Errorf("%s: %w", cfg.Script, ErrScriptNotFound)
	}

	idle := cfg.IdleTimeout
	if idle == 0 {
		idle = DefaultIdleTimeout
	}
	startLimit := cfg.StartTimeout
	if startLimit <= 0 {
		startLimit = DefaultStartTimeout
	}

	return &Service{
		name:        filepath.Base(cfg.Script),
		script:      script,
		args:        cfg.Args,
		interpreter: cfg.Interpreter,
		idle:        idle,
		startLimit:  startLimit,
		callLimit:   cfg.CallTimeout,
	}, nil
}

// Name returns the script base name, used in log lines.
func (s *Service) Name() string {
	return s.name
}

// Call sends frame to the service and decodes its JSON reply into out.
// On a protocol failure the process is torn down so the next call restarts it.
func (s *Service) Call(ctx context.Context, frame *gocv.Mat, out any) error {
	if frame == nil || frame.Empty() {
		return errors.New("empty frame")
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	return s.CallRaw(ctx, buf.GetBytes(), out)
}

// CallRaw sends an already encoded payload.
func (s *Service) CallRaw(ctx context.Context, payload []byte, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureStarted(ctx); err != nil {
		return err
	}

	// The per-call limit starts once the models are loaded.
	if s.callLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.callLimit)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() { done <- s.exchange(payload, out) }()

	select {
	case err := <-done:
		if err != nil {
			if !errors.Is(err, ErrService) {
				s.shutdown()
			}
			return err
		}
	case <-ctx.Done():
		s.abort(done)
		return fmt.Errorf("%s: %w", s.name, ctx.Err())
	}

	s.resetIdleTimer()
	return nil
}

// exchange writes one request and reads its reply. The caller holds s.mu.
func (s *Service) exchange(payload []byte, out any) error {
	if err := WriteFrame(s.stdin, payload); err != nil {
		return err
	}
	return ReadResponse(s.stdout, out)
}

// Close shuts down the Python process.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown()
}

// WriteFrame writes one length-prefixed payload.
func WriteFrame(w io.Writer, data []byte) error {
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	if _, err := w.Write(length); err != nil {
		return fmt.Errorf("write length: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write data: %w", err)
	}
	return nil
}

// ReadResponse reads one JSON line and decodes it into out.
func ReadResponse(r *bufio.Reader, out any) error {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(line, &envelope); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	if envelope.Error != "" {
		return fmt.Errorf("%w: %s", ErrService, envelope.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(line, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// Start launches the process and waits for its ready line. Calls start the
// service on demand; Start lets a caller pay the model load up front.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureStarted(ctx)
}

// abort kills the process and waits for the pending read in done to return.
// Closing our end of stdout unblocks that read even if a child of the
// service still holds the pipe.
func (s *Service) abort(done <-chan error) {
	s.cmd.Process.Kill()
	s.stdoutRC.Close()
	<-done
	s.shutdown()
}

func (s *Service) ensureStarted(ctx context.Context) error {
	if s.started {
		return nil
	}

	interpreter := s.interpreter
	if interpreter == "" {
		interpreter = FindVenvPython()
	}
	if interpreter == "" {
		interpreter = "python3"
	}

	args := append([]string{s.script}, s.args...)
	s.cmd = exec.Command(interpreter, args...)

	stdin, err := s.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := s.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	// Model libraries are chatty; keep their output visible.
	s.cmd.Stderr = os.Stderr

	if err := s.cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", s.name, err)
	}

	s.stdin = stdin
	s.stdout = bufio.NewReader(stdout)
	s.stdoutRC = stdout
	s.started = true
	log.Printf("Started %s (pid %d), waiting for models", s.name, s.cmd.Process.Pid)

	return s.awaitReady(ctx)
}

// awaitReady reads the ready line under the start limit.
func (s *Service) awaitReady(ctx context.Context) error {
	timer := time.NewTimer(s.startLimit)
	defer timer.Stop()

	done := make(chan error, 1)
	go func() {
		var ready struct {
			Ready bool `json:"ready"`
		}
		err := ReadResponse(s.stdout, &ready)
		if err == nil && !ready.Ready {
			err = errors.New("unexpected first line")
		}
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			s.cmd.Process.Kill()
			s.shutdown()
			return fmt.Errorf("%s: %w: %w", s.name, ErrNotReady, err)
		}
	case <-timer.C:
		s.abort(done)
		return fmt.Errorf("%s: %w after %v", s.name, ErrNotReady, s.startLimit)
	case <-ctx.Done():
		s.abort(done)
		return fmt.Errorf("%s: %w", s.name, ctx.Err())
	}

	log.Printf("%s ready", s.name)
	return nil
}

func (s *Service) shutdown() error {
	if !s.started {
		return nil
	}

	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}

	if s.stdin != nil {
		s.stdin.Close()
	}

	err := s.cmd.Wait()
	s.started = false
	s.cmd = nil
	s.stdin = nil
	s.stdout = nil
	s.stdoutRC = nil

	return err
}

func (s *Service) resetIdleTimer() {
	if s.idle < 0 {
		return
	}
	if s.idleTimer != nil {
		s.idleTimer.Stop()
	}
	s.idleTimer = time.AfterFunc(s.idle, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.shutdown()
	})
}

// FindScript looks for a service script in the usual install locations.
func FindScript(name string) string {
	if name == "" {
		return ""
	}

	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("scripts", name),
		filepath.Join("..", "scripts", name),
		filepath.Join(execDir, "scripts", name),
		filepath.Join(os.Getenv("HOME"), ".podium", "scripts", name),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// FindVenvPython looks for a Python interpreter in a virtual environment.
func FindVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".podium/venv/bin/python"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}
