// Package main provides a keyboard plugin that presses a single named key
// in the focused application. It uses AppleScript on macOS, xdotool on
// Linux and SendKeys on Windows.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action  string          `json:"action"`
	Gesture string          `json:"gesture"`
	Slide   int             `json:"slide"`
	Params  json.RawMessage `json:"params"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// PressParams names the key to press.
type PressParams struct {
	Key string `json:"key"`
}

// keyCodes maps key names to macOS virtual key codes.
var keyCodes = map[string]int{
	"right":  124,
	"left":   123,
	"up":     126,
	"down":   125,
	"escape": 53,
	"f5":     96,
	"space":  49,
	"return": 36,
}

// xdotoolKeys maps key names to X keysyms.
var xdotoolKeys = map[string]string{
	"right":  "Right",
	"left":   "Left",
	"up":     "Up",
	"down":   "Down",
	"escape": "Escape",
	"f5":     "F5",
	"space":  "space",
	"return": "Return",
}

// sendKeys maps key names to Windows SendKeys codes.
var sendKeys = map[string]string{
	"right":  "{RIGHT}",
	"left":   "{LEFT}",
	"up":     "{UP}",
	"down":   "{DOWN}",
	"escape": "{ESC}",
	"f5":     "{F5}",
	"space":  " ",
	"return": "{ENTER}",
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	switch req.Action {
	case "press":
		if err := handlePress(req.Params); err != nil {
			writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
			return
		}
	default:
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	writeSuccessResponse()
}

// handlePress processes the press action.
func handlePress(params json.RawMessage) error {
	var p PressParams
	if err := json.Unmarshal(params, &p); err != nil {
		return fmt.Errorf("failed to parse params: %w", err)
	}

	key := strings.ToLower(p.Key)
	if key == "" {
		return fmt.Errorf("key is required")
	}

	name, args, err := pressCommand(runtime.GOOS, key)
	if err != nil {
		return err
	}
	return run(name, args...)
}

// pressCommand returns the program and arguments that press key on goos.
func pressCommand(goos, key string) (string, []string, error) {
	switch goos {
	case "darwin":
		code, ok := keyCodes[key]
		if !ok {
			return "", nil, fmt.Errorf("unsupported key: %s", key)
		}
		script := fmt.Sprintf(`tell application "System Events" to key code %d`, code)
		return "osascript", []string{"-e", script}, nil
	case "windows":
		code, ok := sendKeys[key]
		if !ok {
			return "", nil, fmt.Errorf("unsupported key: %s", key)
		}
		script := fmt.Sprintf(`Add-Type -AssemblyName System.Windows.Forms; [System.Windows.Forms.SendKeys]::SendWait('%s')`, code)
		return "powershell", []string{"-NoProfile", "-Command", script}, nil
	default:
		sym, ok := xdotoolKeys[key]
		if !ok {
			return "", nil, fmt.Errorf("unsupported key: %s", key)
		}
		return "xdotool", []string{"key", sym}, nil
	}
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse() {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true})
}

// run executes a command and returns any error with its output.
func run(name string, args ...string) error {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
