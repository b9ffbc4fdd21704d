// Package plugin runs external executables that act on recognized gestures,
// such as sending navigation keys to a presentation application.
package plugin

import (
	"encoding/json"

	"github.com/ayusman/podium/internal/gesture"
)

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Executable  string   `json:"executable"`
	Actions     []string `json:"actions"`
}

// Request represents a request sent to a plugin for execution.
type Request struct {
	Action  string          `json:"action"`
	Gesture string          `json:"gesture"`
	Slide   int             `json:"slide"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response represents the response from a plugin execution.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Supports reports whether the plugin declares action.
func (p *Plugin) Supports(action string) bool {
	for _, a := range p.Manifest.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Binding ties a gesture to one plugin action.
type Binding struct {
	Plugin string
	Action string
	Params json.RawMessage
}

// Request builds the plugin request for a gesture recognized at slide.
func (b Binding) Request(g gesture.Label, slide int) *Request {
	return &Request{
		Action:  b.Action,
		Gesture: string(g),
		Slide:   slide,
		Params:  b.Params,
	}
}

// KeyboardPlugin is the name of the bundled keyboard plugin.
const KeyboardPlugin = "keyboard"

// keyPress binds a gesture to a single key press on the keyboard plugin.
func keyPress(key string) Binding {
	params, _ := json.Marshal(map[string]string{"key": key})
	return Binding{Plugin: KeyboardPlugin, Action: "press", Params: params}
}

// DefaultBindings drives a presentation application from the keyboard:
// arrows step through slides, F5 starts the show and Escape leaves it.
func DefaultBindings() map[gesture.Label]Binding {
	return map[gesture.Label]Binding{
		gesture.Next:     keyPress("right"),
		gesture.Previous: keyPress("left"),
		gesture.Start:    keyPress("f5"),
		gesture.End:      keyPress("escape"),
	}
}
