package api

import (
	"net/http"

	"github.com/ayusman/podium/internal/session"
)

// StateSource yields the most recent frame result.
type StateSource interface {
	Latest() (session.Result, bool)
}

// StateHandler serves GET /api/state.
type StateHandler struct {
	source StateSource
}

// NewStateHandler creates a StateHandler reading from source.
func NewStateHandler(source StateSource) *StateHandler {
	return &StateHandler{source: source}
}

// stateResponse is the JSON snapshot of the session.
type stateResponse struct {
	session.Result
	Command string `json:"command,omitempty"`
}

// ServeHTTP returns the latest frame result, or 503 before the first frame.
func (h *StateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	result, ok := h.source.Latest()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "No frames processed yet")
		return
	}

	writeJSON(w, http.StatusOK, stateResponse{Result: result, Command: result.Display()})
}
