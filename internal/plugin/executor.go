package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/ayusman/podium/internal/gesture"
)

// DefaultTimeoutMs bounds a single plugin run.
const DefaultTimeoutMs = 5000

// Executor starts a plugin once per request: the request goes to stdin as
// JSON and one JSON Response is read back from stdout.
type Executor struct {
	timeout time.Duration
}

// NewExecutor bounds every run by timeoutMs. Non-positive values fall back to
// DefaultTimeoutMs.
func NewExecutor(timeoutMs int) *Executor {
	if timeoutMs <= 0 {
		timeoutMs = DefaultTimeoutMs
	}
	return &Executor{timeout: time.Duration(timeoutMs) * time.Millisecond}
}

// Timeout returns the per-run timeout.
func (e *Executor) Timeout() time.Duration {
	return e.timeout
}

// Run performs binding b on p for gesture g recognized at slide. A binding
// whose action p does not declare fails with ActionError without starting
// the plugin; a plugin that answers success=false fails with ResponseError.
func (e *Executor) Run(ctx context.Context, p *Plugin, b Binding, g gesture.Label, slide int) error {
	if !p.Supports(b.Action) {
		return &ActionError{Plugin: p.Manifest.Name, Action: b.Action}
	}

	resp, err := e.Execute(ctx, p, b.Request(g, slide))
	if err != nil {
		return err
	}
	if !resp.Success {
		return &ResponseError{Plugin: p.Manifest.Name, Message: resp.Error}
	}
	return nil
}

// Execute sends req to p and decodes its reply.
func (e *Executor) Execute(ctx context.Context, p *Plugin, req *Request) (*Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request for %s: %w", p.Manifest.Name, err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.Executable)
	cmd.Dir = p.Path
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("plugin %s timed out after %v", p.Manifest.Name, e.timeout)
	}
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("plugin %s: %w: %s", p.Manifest.Name, err, msg)
		}
		return nil, fmt.Errorf("plugin %s: %w", p.Manifest.Name, err)
	}

	var resp Response
	if err := json.Unmarshal(out, &resp); err != nil {
		return nil, fmt.Errorf("plugin %s sent %q: %w", p.Manifest.Name, bytes.TrimSpace(out), err)
	}
	return &resp, nil
}

// ActionError is returned when a binding names an action the plugin does not declare.
type ActionError struct {
	Plugin string
	Action string
}

func (e *ActionError) Error() string {
	return "plugin " + e.Plugin + " does not support action " + e.Action
}

// ResponseError carries a plugin's own failure message.
type ResponseError struct {
	Plugin  string
	Message string
}

func (e *ResponseError) Error() string {
	return "plugin " + e.Plugin + ": " + e.Message
}
